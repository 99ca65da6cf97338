package server

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultAudioTTL is how long an unfetched audio file is kept.
const DefaultAudioTTL = 10 * time.Minute

// AudioFile is a registered audio file awaiting download.
type AudioFile struct {
	Path     string
	MIMEType string
	Created  time.Time
}

// AudioRegistry owns generated audio files between synthesis and the one
// download the browser makes. Files are deleted once served, when they
// expire, or on Purge.
type AudioRegistry struct {
	mu      sync.Mutex
	entries map[string]AudioFile
	ttl     time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewAudioRegistry(ttl time.Duration, logger *slog.Logger) *AudioRegistry {
	if ttl <= 0 {
		ttl = DefaultAudioTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AudioRegistry{
		entries: make(map[string]AudioFile),
		ttl:     ttl,
		now:     time.Now,
		log:     logger,
	}
}

// Register takes ownership of path and returns an unguessable token for it.
func (r *AudioRegistry) Register(path, mimeType string) string {
	token := uuid.NewString()

	r.mu.Lock()
	r.entries[token] = AudioFile{Path: path, MIMEType: mimeType, Created: r.now()}
	r.mu.Unlock()

	return token
}

// Take removes the entry for token. The caller must delete the file.
func (r *AudioRegistry) Take(token string) (AudioFile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[token]
	if ok {
		delete(r.entries, token)
	}
	return e, ok
}

func (r *AudioRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Expire deletes files registered longer than the TTL ago and returns how
// many were removed.
func (r *AudioRegistry) Expire() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []AudioFile
	for token, e := range r.entries {
		if e.Created.Before(cutoff) {
			expired = append(expired, e)
			delete(r.entries, token)
		}
	}
	r.mu.Unlock()

	for _, e := range expired {
		r.remove(e.Path)
	}
	return len(expired)
}

// Purge deletes every registered file.
func (r *AudioRegistry) Purge() int {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]AudioFile)
	r.mu.Unlock()

	for _, e := range entries {
		r.remove(e.Path)
	}
	return len(entries)
}

// Run expires files every interval until ctx is done, then purges the rest.
func (r *AudioRegistry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = r.ttl / 4
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := r.Purge(); n > 0 {
				r.log.Info("purged unfetched audio", slog.Int("files", n))
			}
			return
		case <-ticker.C:
			if n := r.Expire(); n > 0 {
				r.log.Info("expired unfetched audio", slog.Int("files", n))
			}
		}
	}
}

func (r *AudioRegistry) remove(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("failed to remove audio file", slog.String("path", path), slog.String("error", err.Error()))
	}
}
