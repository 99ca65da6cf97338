// Package vocoder runs a local text-to-waveform ONNX model.
//
// The graph takes int64 token IDs of shape [1, T] and returns float32
// samples; any output shape is flattened to mono.
package vocoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/go-tts-form/internal/audio"
	"github.com/example/go-tts-form/internal/onnx"
	"github.com/example/go-tts-form/internal/tokenizer"
	"github.com/example/go-tts-form/internal/tts"
)

var ErrNoTokens = errors.New("no tokens produced from input")

// Config selects the model files and graph I/O names.
type Config struct {
	ModelPath      string
	TokenizerModel string
	ORTLibraryPath string
	ORTAPIVersion  uint32
	InputName      string
	OutputName     string
	SampleRate     int
	Normalize      bool
}

// Runner executes a loaded graph.
type Runner interface {
	Run(ctx context.Context, inputs map[string]*onnx.Tensor) (map[string]*onnx.Tensor, error)
	Close()
}

// Model is a loaded local synthesizer. It holds no mutable state after
// construction.
type Model struct {
	cfg       Config
	runtime   onnx.RuntimeInfo
	tokenizer tokenizer.Tokenizer
	runner    Runner
	logger    *slog.Logger
}

type Option func(*Model)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Load locates ONNX Runtime, opens the model graph and loads the tokenizer.
func Load(cfg Config, opts ...Option) (*Model, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	info, err := onnx.DetectRuntime(cfg.ORTLibraryPath)
	if err != nil {
		return nil, fmt.Errorf("onnx runtime: %w", err)
	}

	tok, err := tokenizer.NewSentencePieceTokenizer(cfg.TokenizerModel)
	if err != nil {
		return nil, err
	}

	runner, err := onnx.NewRunner(onnx.Graph{Name: "vocoder", Path: cfg.ModelPath}, onnx.RunnerConfig{
		LibraryPath: info.LibraryPath,
		APIVersion:  cfg.ORTAPIVersion,
	})
	if err != nil {
		return nil, err
	}

	m := New(cfg, tok, runner, opts...)
	m.runtime = info

	m.logger.Info("local model loaded",
		slog.String("model", cfg.ModelPath),
		slog.String("tokenizer", cfg.TokenizerModel),
		slog.String("ort_library", info.LibraryPath),
		slog.String("ort_version", info.Version),
		slog.Int("sample_rate", cfg.SampleRate),
	)

	return m, nil
}

// New assembles a Model from an already loaded tokenizer and runner.
func New(cfg Config, tok tokenizer.Tokenizer, runner Runner, opts ...Option) *Model {
	if cfg.InputName == "" {
		cfg.InputName = "input_ids"
	}
	if cfg.OutputName == "" {
		cfg.OutputName = "waveform"
	}

	m := &Model{
		cfg:       cfg,
		tokenizer: tok,
		runner:    runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (c Config) validate() error {
	switch {
	case c.ModelPath == "":
		return errors.New("model path must not be empty")
	case c.TokenizerModel == "":
		return tokenizer.ErrEmptyPath
	case c.SampleRate < 1:
		return fmt.Errorf("invalid sample rate: %d", c.SampleRate)
	}
	return nil
}

func (m *Model) Format() tts.Format { return tts.FormatWAV }

// SampleRate is the rate of the model's output waveform.
func (m *Model) SampleRate() int { return m.cfg.SampleRate }

// Runtime reports the ONNX Runtime library in use.
func (m *Model) Runtime() onnx.RuntimeInfo { return m.runtime }

// Synthesize tokenizes text, runs one forward pass and returns the
// waveform. The model is single-language, so lang only appears in logs.
func (m *Model) Synthesize(ctx context.Context, text, lang string) (tts.Audio, error) {
	ids, err := m.tokenizer.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("tokenize: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoTokens
	}

	input, err := onnx.TokenTensor(ids)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outputs, err := m.runner.Run(ctx, map[string]*onnx.Tensor{m.cfg.InputName: input})
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}

	out, ok := outputs[m.cfg.OutputName]
	if !ok {
		return nil, fmt.Errorf("model output %q missing", m.cfg.OutputName)
	}

	samples, err := out.Float32()
	if err != nil {
		return nil, fmt.Errorf("model output %q: %w", m.cfg.OutputName, err)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("model output %q is empty", m.cfg.OutputName)
	}

	if m.cfg.Normalize {
		audio.PeakNormalize(samples)
	}
	audio.Clamp(samples)

	m.logger.Debug("local inference done",
		slog.Int("tokens", len(ids)),
		slog.Int("samples", len(samples)),
		slog.String("language", lang),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	return tts.PCMAudio{Samples: samples, SampleRate: m.cfg.SampleRate}, nil
}

// Close releases the ONNX Runtime session.
func (m *Model) Close() {
	if m.runner != nil {
		m.runner.Close()
	}
}
