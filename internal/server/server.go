package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-tts-form/internal/config"
)

// Server wires the HTTP handler into a net/http.Server with graceful
// shutdown and runs the audio janitor alongside it.
type Server struct {
	cfg             config.Config
	synth           Synthesizer
	opts            []Option
	registry        *AudioRegistry
	logger          *slog.Logger
	shutdownTimeout time.Duration
	janitorInterval time.Duration
	ready           chan string
}

// New builds a Server from cfg. Extra options are passed to the handler
// after the ones derived from cfg.
func New(cfg config.Config, synth Synthesizer, opts ...Option) *Server {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	ttl := time.Duration(cfg.Server.AudioTTL) * time.Second

	shutdownTimeout := time.Duration(cfg.Server.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	return &Server{
		cfg:             cfg,
		synth:           synth,
		opts:            opts,
		registry:        NewAudioRegistry(ttl, o.logger),
		logger:          o.logger,
		shutdownTimeout: shutdownTimeout,
		ready:           make(chan string, 1),
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// WithJanitorInterval overrides how often expired audio is swept.
func (s *Server) WithJanitorInterval(d time.Duration) *Server {
	s.janitorInterval = d
	return s
}

// Registry exposes the audio registry, mainly for tests.
func (s *Server) Registry() *AudioRegistry {
	return s.registry
}

// Ready yields the bound address once the listener is open.
func (s *Server) Ready() <-chan string {
	return s.ready
}

func (s *Server) Handler() http.Handler {
	opts := []Option{
		WithWorkers(s.cfg.Server.Workers),
		WithMaxTextBytes(s.cfg.Server.MaxTextBytes),
		WithDefaultLanguage(s.cfg.TTS.DefaultLanguage),
		WithBackend(s.cfg.TTS.Backend),
		WithAudioRegistry(s.registry),
	}
	return NewHandler(s.synth, append(opts, s.opts...)...)
}

// Start serves until ctx is cancelled or the listener fails. Unfetched
// audio files are deleted before it returns.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("http listen: %w", err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Info("server listening",
		slog.String("addr", ln.Addr().String()),
		slog.String("backend", s.cfg.TTS.Backend),
	)
	select {
	case s.ready <- ln.Addr().String():
	default:
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.registry.Run(gctx, s.janitorInterval)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	s.registry.Purge()

	return err
}

// ProbeHTTP checks that a server answers /health at addr.
func ProbeHTTP(addr string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
