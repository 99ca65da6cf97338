package tts

import (
	"context"
	"errors"
	"io"

	"github.com/example/go-tts-form/internal/audio"
)

// Format describes the container a synthesizer produces.
type Format struct {
	Ext      string
	MIMEType string
}

var (
	FormatMP3 = Format{Ext: ".mp3", MIMEType: "audio/mpeg"}
	FormatWAV = Format{Ext: ".wav", MIMEType: "audio/wav"}
)

// Audio is synthesized speech that can write itself to a file.
type Audio interface {
	Encode(w io.WriteSeeker) error
}

// EncodedAudio is an already-encoded audio stream, such as MP3 bytes.
type EncodedAudio []byte

func (a EncodedAudio) Encode(w io.WriteSeeker) error {
	if len(a) == 0 {
		return errors.New("empty audio stream")
	}

	_, err := w.Write(a)

	return err
}

// PCMAudio is a mono float waveform, encoded as 16-bit PCM WAV.
type PCMAudio struct {
	Samples    []float32
	SampleRate int
}

func (a PCMAudio) Encode(w io.WriteSeeker) error {
	return audio.WriteWAV(w, a.Samples, a.SampleRate)
}

// Synthesizer turns text into audio. An empty language selects the
// synthesizer's default.
type Synthesizer interface {
	Format() Format
	Synthesize(ctx context.Context, text, language string) (Audio, error)
}

// Readiness is implemented by synthesizers that can be constructed in a
// degraded state. A non-nil Ready error short-circuits every request.
type Readiness interface {
	Ready() error
}

// FileStore hands out fresh, uniquely named paths. It never deletes them.
type FileStore interface {
	Allocate(suffix string) (string, error)
}

type unavailable struct {
	format Format
	cause  error
}

// Unavailable returns a Synthesizer that refuses every request because its
// backing model could not be loaded.
func Unavailable(format Format, cause error) Synthesizer {
	if cause == nil {
		cause = errors.New("model not loaded")
	}

	return unavailable{format: format, cause: cause}
}

func (u unavailable) Format() Format { return u.format }

func (u unavailable) Ready() error { return u.cause }

func (u unavailable) Synthesize(context.Context, string, string) (Audio, error) {
	return nil, u.cause
}
