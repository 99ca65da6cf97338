package tts

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/example/go-tts-form/internal/text"
)

const (
	MsgEmptyInput  = "Error: Please enter text."
	MsgSuccess     = "Success! Audio generated."
	MsgSuccessGTTS = "Success! Audio generated using gTTS."

	msgErrorPrefix = "An error occurred: "
	msgUnavailable = "Error: TTS model is not available: "

	meterName = "github.com/example/go-tts-form/internal/tts"
)

// DefaultLanguages is the supported language set when none is configured.
var DefaultLanguages = []string{"en", "es", "fr", "de"}

// Handler is the boundary between a caller and a Synthesizer: every
// outcome, including panics, comes back as a Result.
type Handler struct {
	synth          Synthesizer
	store          FileStore
	languages      []string
	successMessage string
	logger         *slog.Logger
	meter          metric.Meter
	metrics        *handlerMetrics
}

type Option func(*Handler)

// WithLanguages sets the supported language codes. Codes are matched
// case-insensitively.
func WithLanguages(languages []string) Option {
	return func(h *Handler) {
		h.languages = h.languages[:0]
		for _, lang := range languages {
			if lang = normalizeLanguage(lang); lang != "" {
				h.languages = append(h.languages, lang)
			}
		}
	}
}

func WithSuccessMessage(msg string) Option {
	return func(h *Handler) {
		if msg != "" {
			h.successMessage = msg
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithMeter(meter metric.Meter) Option {
	return func(h *Handler) {
		if meter != nil {
			h.meter = meter
		}
	}
}

func NewHandler(synth Synthesizer, store FileStore, opts ...Option) *Handler {
	h := &Handler{
		synth:          synth,
		store:          store,
		languages:      append([]string(nil), DefaultLanguages...),
		successMessage: MsgSuccess,
		logger:         slog.Default(),
		meter:          otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.logger = h.logger.With(slog.String("component", "tts-handler"))

	m, err := newHandlerMetrics(h.meter)
	if err != nil {
		h.logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	h.metrics = m

	return h
}

// Languages returns the supported language codes.
func (h *Handler) Languages() []string {
	return append([]string(nil), h.languages...)
}

// Format reports the container of the files this handler produces.
func (h *Handler) Format() Format {
	return h.synth.Format()
}

// Ready reports whether the synthesizer can serve requests.
func (h *Handler) Ready() error {
	if cause := h.notReady(); cause != nil {
		return fmt.Errorf("%w: %w", ErrSynthesizerUnavailable, cause)
	}
	return nil
}

func (h *Handler) notReady() error {
	if r, ok := h.synth.(Readiness); ok {
		return r.Ready()
	}
	return nil
}

// Synthesize runs one request. On Ok the caller owns the file at
// AudioPath; on Failure no file is left behind.
func (h *Handler) Synthesize(ctx context.Context, req Request) (res Result) {
	start := time.Now()
	lang := normalizeLanguage(req.Language)
	logger := h.logger.With(
		slog.Int("text_len", len(req.Text)),
		slog.String("language", lang),
	)

	defer func() {
		if r := recover(); r != nil {
			res = h.fail(fmt.Errorf("%w: panic: %v", ErrSynthesisFailed, r), fmt.Sprint(r))
		}
		h.metrics.recordRequest(ctx, res)
		if res.OK() {
			logger.Info("synthesis completed",
				slog.String("path", res.AudioPath),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
			return
		}
		logger.Warn("synthesis failed",
			slog.String("reason", Reason(res.Err)),
			slog.String("error", errString(res.Err)),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}()

	if cause := h.notReady(); cause != nil {
		return Failure(msgUnavailable+cause.Error(), fmt.Errorf("%w: %w", ErrSynthesizerUnavailable, cause))
	}

	if text.IsBlank(req.Text) {
		return Failure(MsgEmptyInput, ErrEmptyInput)
	}

	if lang != "" && !h.supports(lang) {
		cause := fmt.Errorf("unsupported language %q (supported: %s)", lang, strings.Join(h.languages, ", "))
		return h.fail(fmt.Errorf("%w: %w", ErrUnsupportedLanguage, cause), cause.Error())
	}

	format := h.synth.Format()

	path, err := h.store.Allocate(format.Ext)
	if err != nil {
		cause := fmt.Errorf("allocate temp file: %w", err)
		return h.fail(fmt.Errorf("%w: %w", ErrEncodingFailed, cause), cause.Error())
	}

	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(path)
		}
	}()

	synthStart := time.Now()
	audio, err := h.synth.Synthesize(ctx, req.Text, lang)
	h.metrics.recordDuration(ctx, time.Since(synthStart))
	if err != nil {
		return h.fail(fmt.Errorf("%w: %w", ErrSynthesisFailed, err), err.Error())
	}
	if audio == nil {
		return h.fail(fmt.Errorf("%w: no audio returned", ErrSynthesisFailed), "no audio returned")
	}

	if err := writeAudio(path, audio); err != nil {
		return h.fail(fmt.Errorf("%w: %w", ErrEncodingFailed, err), err.Error())
	}

	keep = true

	return Ok(path, h.successMessage)
}

func (h *Handler) fail(err error, cause string) Result {
	return Failure(msgErrorPrefix+cause, err)
}

func (h *Handler) supports(lang string) bool {
	for _, l := range h.languages {
		if l == lang {
			return true
		}
	}
	return false
}

func writeAudio(path string, audio Audio) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}

	if err := audio.Encode(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write audio: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close audio file: %w", err)
	}

	return nil
}

func normalizeLanguage(lang string) string {
	return strings.ToLower(strings.TrimSpace(lang))
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
