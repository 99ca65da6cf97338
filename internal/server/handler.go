package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/example/go-tts-form/internal/tts"
)

// Synthesizer is the request handler the UI drives. *tts.Handler
// implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.Request) tts.Result
	Languages() []string
	Format() tts.Format
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextBytes    int
	workers         int
	defaultLanguage string
	backend         string
	logger          *slog.Logger
	registry        *AudioRegistry
	metrics         http.Handler
}

func defaultOptions() options {
	return options{
		maxTextBytes: 5000,
		workers:      2,
		logger:       slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextBytes sets the maximum allowed text length in bytes.
func WithMaxTextBytes(n int) Option {
	return func(o *options) { o.maxTextBytes = n }
}

// WithWorkers sets the maximum number of concurrent synthesis calls.
// Zero disables the limit.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithDefaultLanguage preselects a language in the form.
func WithDefaultLanguage(lang string) Option {
	return func(o *options) { o.defaultLanguage = lang }
}

// WithBackend names the synthesizer backend reported by /health.
func WithBackend(name string) Option {
	return func(o *options) { o.backend = name }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithAudioRegistry shares a registry, so its janitor can run elsewhere.
func WithAudioRegistry(r *AudioRegistry) Option {
	return func(o *options) { o.registry = r }
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(o *options) { o.metrics = h }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

type handler struct {
	synth    Synthesizer
	opts     options
	sem      chan struct{}
	registry *AudioRegistry
	log      *slog.Logger
}

// NewHandler returns an http.Handler serving the form page, the synthesis
// API, one-shot audio downloads, /health, /languages and optionally
// /metrics.
func NewHandler(synth Synthesizer, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		synth:    synth,
		opts:     opts,
		registry: opts.registry,
		log:      opts.logger,
	}
	if h.registry == nil {
		h.registry = NewAudioRegistry(DefaultAudioTTL, opts.logger)
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/{$}", h.handleIndex)
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/languages", h.handleLanguages)
	mux.HandleFunc("/api/synthesize", h.handleSynthesize)
	mux.HandleFunc("/audio/{token}", h.handleAudio)
	if opts.metrics != nil {
		mux.Handle("/metrics", opts.metrics)
	}
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) defaultLanguage() string {
	if h.opts.defaultLanguage != "" {
		return h.opts.defaultLanguage
	}
	if langs := h.synth.Languages(); len(langs) > 0 {
		return langs[0]
	}
	return ""
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderIndex(w, pageData{
		Languages:       h.synth.Languages(),
		DefaultLanguage: h.defaultLanguage(),
		MaxTextBytes:    h.opts.maxTextBytes,
	}); err != nil {
		h.log.ErrorContext(r.Context(), "render index", slog.String("error", err.Error()))
	}
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
		"backend": h.opts.backend,
	})
}

type languagesResponse struct {
	Languages []string `json:"languages"`
	Default   string   `json:"default"`
}

func (h *handler) handleLanguages(w http.ResponseWriter, _ *http.Request) {
	langs := h.synth.Languages()
	if langs == nil {
		langs = []string{}
	}
	writeJSON(w, http.StatusOK, languagesResponse{Languages: langs, Default: h.defaultLanguage()})
}

type synthesizeRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type synthesizeResponse struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	AudioURL string `json:"audio_url,omitempty"`
}

func (h *handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req synthesizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if h.opts.maxTextBytes > 0 && len(req.Text) > h.opts.maxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("text exceeds maximum size of %d bytes", h.opts.maxTextBytes))
		return
	}

	// Acquire a worker slot, honouring cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	start := time.Now()
	res := h.synth.Synthesize(r.Context(), tts.Request{Text: req.Text, Language: req.Language})

	resp := synthesizeResponse{OK: res.OK(), Message: res.Message}
	if res.OK() {
		token := h.registry.Register(res.AudioPath, h.synth.Format().MIMEType)
		resp.AudioURL = "/audio/" + token
	}

	h.log.InfoContext(r.Context(), "synthesize request",
		slog.Bool("ok", res.OK()),
		slog.String("language", req.Language),
		slog.Int("text_len", len(req.Text)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)

	writeJSON(w, http.StatusOK, resp)
}

// handleAudio serves a registered file once and deletes it.
func (h *handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entry, ok := h.registry.Take(r.PathValue("token"))
	if !ok {
		writeError(w, http.StatusNotFound, "audio not found")
		return
	}
	defer h.registry.remove(entry.Path)

	f, err := os.Open(entry.Path)
	if err != nil {
		h.log.ErrorContext(r.Context(), "open audio", slog.String("error", err.Error()))
		writeError(w, http.StatusNotFound, "audio not found")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", entry.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		h.log.WarnContext(r.Context(), "audio download interrupted", slog.String("error", err.Error()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
