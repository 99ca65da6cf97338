package audio

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/cwbudde/wav"
)

// Output format written by WriteWAV. The sample rate is chosen by the caller.
const (
	Channels = 1
	BitDepth = 16
)

// ErrFormatMismatch is returned when a decoded WAV does not match the expected format.
var ErrFormatMismatch = errors.New("WAV format mismatch")

// DecodeWAV decodes mono 16-bit PCM WAV bytes and returns the samples
// together with the file's sample rate.
func DecodeWAV(data []byte) ([]float32, int, error) {
	if len(data) == 0 {
		return nil, 0, errors.New("empty WAV input")
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, 0, errors.New("invalid WAV file")
	}

	if dec.NumChans != Channels {
		return nil, 0, fmt.Errorf("%w: channels %d, want %d", ErrFormatMismatch, dec.NumChans, Channels)
	}
	if dec.BitDepth != BitDepth {
		return nil, 0, fmt.Errorf("%w: bit depth %d, want %d", ErrFormatMismatch, dec.BitDepth, BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading PCM data: %w", err)
	}

	return buf.Data, int(dec.SampleRate), nil
}
