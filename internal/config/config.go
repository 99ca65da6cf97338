package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	Server   ServerConfig  `mapstructure:"server"`
	TTS      TTSConfig     `mapstructure:"tts"`
	Cloud    CloudConfig   `mapstructure:"cloud"`
	CLI      CLIConfig     `mapstructure:"cli"`
	Local    LocalConfig   `mapstructure:"local"`
	Metrics  MetricsConfig `mapstructure:"metrics"`
}

type ServerConfig struct {
	ListenAddr      string `mapstructure:"listen_addr"`
	Workers         int    `mapstructure:"workers"`
	MaxTextBytes    int    `mapstructure:"max_text_bytes"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
	AudioTTL        int    `mapstructure:"audio_ttl"`
	TempDir         string `mapstructure:"temp_dir"`
}

type TTSConfig struct {
	Backend         string   `mapstructure:"backend"`
	Languages       []string `mapstructure:"languages"`
	DefaultLanguage string   `mapstructure:"default_language"`
	Slow            bool     `mapstructure:"slow"`
}

// CloudConfig configures the gTTS HTTP client. Timeout is in seconds.
type CloudConfig struct {
	TLD               string  `mapstructure:"tld"`
	BaseURL           string  `mapstructure:"base_url"`
	Timeout           int     `mapstructure:"timeout"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CLIConfig struct {
	Command string `mapstructure:"command"`
}

type LocalConfig struct {
	ModelPath      string `mapstructure:"model_path"`
	TokenizerModel string `mapstructure:"tokenizer_model"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTAPIVersion  uint32 `mapstructure:"ort_api_version"`
	InputName      string `mapstructure:"input_name"`
	OutputName     string `mapstructure:"output_name"`
	SampleRate     int    `mapstructure:"sample_rate"`
	Normalize      bool   `mapstructure:"normalize"`
	ManifestPath   string `mapstructure:"manifest_path"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Server: ServerConfig{
			ListenAddr:      "0.0.0.0:7860",
			Workers:         2,
			MaxTextBytes:    5000,
			ShutdownTimeout: 30,
			AudioTTL:        600,
			TempDir:         "",
		},
		TTS: TTSConfig{
			Backend:         BackendCloud,
			Languages:       []string{"en", "es", "fr", "de"},
			DefaultLanguage: "en",
			Slow:            false,
		},
		Cloud: CloudConfig{
			TLD:               "com",
			BaseURL:           "",
			Timeout:           30,
			RequestsPerSecond: 2,
			Burst:             1,
		},
		CLI: CLIConfig{
			Command: "gtts-cli",
		},
		Local: LocalConfig{
			ModelPath:      "models/model.onnx",
			TokenizerModel: "models/tokenizer.model",
			ORTLibraryPath: "",
			ORTAPIVersion:  23,
			InputName:      "input_ids",
			OutputName:     "waveform",
			SampleRate:     16000,
			Normalize:      true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// flagKeys maps each registered flag to its configuration key.
var flagKeys = map[string]string{
	"log-level":             "log_level",
	"server-listen-addr":    "server.listen_addr",
	"workers":               "server.workers",
	"max-text-bytes":        "server.max_text_bytes",
	"shutdown-timeout":      "server.shutdown_timeout",
	"audio-ttl":             "server.audio_ttl",
	"temp-dir":              "server.temp_dir",
	"backend":               "tts.backend",
	"languages":             "tts.languages",
	"default-language":      "tts.default_language",
	"slow":                  "tts.slow",
	"cloud-tld":             "cloud.tld",
	"cloud-base-url":        "cloud.base_url",
	"cloud-timeout":         "cloud.timeout",
	"cloud-rps":             "cloud.requests_per_second",
	"cloud-burst":           "cloud.burst",
	"cli-command":           "cli.command",
	"local-model-path":      "local.model_path",
	"local-tokenizer-model": "local.tokenizer_model",
	"ort-lib":               "local.ort_library_path",
	"local-ort-api-version": "local.ort_api_version",
	"local-input-name":      "local.input_name",
	"local-output-name":     "local.output_name",
	"local-sample-rate":     "local.sample_rate",
	"local-normalize":       "local.normalize",
	"local-manifest":        "local.manifest_path",
	"metrics-enabled":       "metrics.enabled",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("log-level", defaults.LogLevel, "Log level: debug|info|warn|error")
	fs.String("server-listen-addr", defaults.Server.ListenAddr, "HTTP listen address")
	fs.Int("workers", defaults.Server.Workers, "Max concurrent synthesis requests (0 = unlimited)")
	fs.Int("max-text-bytes", defaults.Server.MaxTextBytes, "Maximum input text size in bytes")
	fs.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "Graceful shutdown timeout in seconds")
	fs.Int("audio-ttl", defaults.Server.AudioTTL, "Seconds an unfetched audio file is kept before deletion")
	fs.String("temp-dir", defaults.Server.TempDir, "Directory for generated audio (default: OS temp dir)")
	fs.String("backend", defaults.TTS.Backend, "Synthesizer backend: cloud|cli|local")
	fs.StringSlice("languages", defaults.TTS.Languages, "Supported language codes")
	fs.String("default-language", defaults.TTS.DefaultLanguage, "Language preselected in the UI")
	fs.Bool("slow", defaults.TTS.Slow, "Request slower speech from gTTS")
	fs.String("cloud-tld", defaults.Cloud.TLD, "Top-level domain of the Google Translate host")
	fs.String("cloud-base-url", defaults.Cloud.BaseURL, "Override the gTTS endpoint base URL")
	fs.Int("cloud-timeout", defaults.Cloud.Timeout, "gTTS HTTP timeout in seconds")
	fs.Float64("cloud-rps", defaults.Cloud.RequestsPerSecond, "Max gTTS requests per second (0 = unlimited)")
	fs.Int("cloud-burst", defaults.Cloud.Burst, "gTTS request burst size")
	fs.String("cli-command", defaults.CLI.Command, "gtts-cli command line")
	fs.String("local-model-path", defaults.Local.ModelPath, "Path to the ONNX TTS model")
	fs.String("local-tokenizer-model", defaults.Local.TokenizerModel, "Path to the SentencePiece tokenizer model")
	fs.String("ort-lib", defaults.Local.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.Uint32("local-ort-api-version", defaults.Local.ORTAPIVersion, "ONNX Runtime C API version")
	fs.String("local-input-name", defaults.Local.InputName, "Model input tensor name")
	fs.String("local-output-name", defaults.Local.OutputName, "Model output tensor name")
	fs.Int("local-sample-rate", defaults.Local.SampleRate, "Sample rate of the model output in Hz")
	fs.Bool("local-normalize", defaults.Local.Normalize, "Peak-normalize model output")
	fs.String("local-manifest", defaults.Local.ManifestPath, "Optional checksum manifest for the local model files")
	fs.Bool("metrics-enabled", defaults.Metrics.Enabled, "Serve Prometheus metrics on /metrics")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("TTSFORM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if err := v.BindEnv("local.ort_library_path", "TTSFORM_LOCAL_ORT_LIBRARY_PATH", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("ttsform")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings that would make the service unusable.
func (c Config) Validate() error {
	if _, err := NormalizeBackend(c.TTS.Backend); err != nil {
		return err
	}
	if len(c.TTS.Languages) == 0 {
		return errors.New("tts.languages must list at least one language")
	}
	if c.TTS.DefaultLanguage != "" && !contains(c.TTS.Languages, c.TTS.DefaultLanguage) {
		return fmt.Errorf("tts.default_language %q is not in tts.languages", c.TTS.DefaultLanguage)
	}
	if c.Server.MaxTextBytes < 1 {
		return fmt.Errorf("server.max_text_bytes must be >= 1, got %d", c.Server.MaxTextBytes)
	}
	if c.Local.SampleRate < 1 {
		return fmt.Errorf("local.sample_rate must be >= 1, got %d", c.Local.SampleRate)
	}
	return nil
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("server.listen_addr", c.Server.ListenAddr)
	v.SetDefault("server.workers", c.Server.Workers)
	v.SetDefault("server.max_text_bytes", c.Server.MaxTextBytes)
	v.SetDefault("server.shutdown_timeout", c.Server.ShutdownTimeout)
	v.SetDefault("server.audio_ttl", c.Server.AudioTTL)
	v.SetDefault("server.temp_dir", c.Server.TempDir)
	v.SetDefault("tts.backend", c.TTS.Backend)
	v.SetDefault("tts.languages", c.TTS.Languages)
	v.SetDefault("tts.default_language", c.TTS.DefaultLanguage)
	v.SetDefault("tts.slow", c.TTS.Slow)
	v.SetDefault("cloud.tld", c.Cloud.TLD)
	v.SetDefault("cloud.base_url", c.Cloud.BaseURL)
	v.SetDefault("cloud.timeout", c.Cloud.Timeout)
	v.SetDefault("cloud.requests_per_second", c.Cloud.RequestsPerSecond)
	v.SetDefault("cloud.burst", c.Cloud.Burst)
	v.SetDefault("cli.command", c.CLI.Command)
	v.SetDefault("local.model_path", c.Local.ModelPath)
	v.SetDefault("local.tokenizer_model", c.Local.TokenizerModel)
	v.SetDefault("local.ort_library_path", c.Local.ORTLibraryPath)
	v.SetDefault("local.ort_api_version", c.Local.ORTAPIVersion)
	v.SetDefault("local.input_name", c.Local.InputName)
	v.SetDefault("local.output_name", c.Local.OutputName)
	v.SetDefault("local.sample_rate", c.Local.SampleRate)
	v.SetDefault("local.normalize", c.Local.Normalize)
	v.SetDefault("local.manifest_path", c.Local.ManifestPath)
	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
