package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEncodeWAV(t *testing.T) {
	t.Run("produces valid WAV with RIFF header", func(t *testing.T) {
		data, err := EncodeWAV(make([]float32, 100), 16000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) < 44 {
			t.Fatalf("WAV too short: %d bytes", len(data))
		}
		if string(data[:4]) != "RIFF" {
			t.Errorf("missing RIFF header")
		}
		if string(data[8:12]) != "WAVE" {
			t.Errorf("missing WAVE identifier")
		}
	})

	t.Run("writes the requested sample rate", func(t *testing.T) {
		for _, rate := range []int{16000, 22050, 24000} {
			data, err := EncodeWAV(make([]float32, 50), rate)
			if err != nil {
				t.Fatalf("rate %d: unexpected error: %v", rate, err)
			}
			if got := binary.LittleEndian.Uint32(data[24:28]); got != uint32(rate) {
				t.Errorf("sample rate = %d, want %d", got, rate)
			}
			if got := binary.LittleEndian.Uint16(data[22:24]); got != Channels {
				t.Errorf("channels = %d, want %d", got, Channels)
			}
			if got := binary.LittleEndian.Uint16(data[34:36]); got != BitDepth {
				t.Errorf("bit depth = %d, want %d", got, BitDepth)
			}
		}
	})

	t.Run("rejects invalid sample rate", func(t *testing.T) {
		if _, err := EncodeWAV([]float32{0}, 0); err == nil {
			t.Fatal("expected error for zero sample rate")
		}
	})
}

func TestWriteWAV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := WriteWAV(f, []float32{0.1, -0.1, 0.2, -0.2}, 16000); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	samples, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("rate = %d, want 16000", rate)
	}
	if len(samples) != 4 {
		t.Errorf("got %d samples, want 4", len(samples))
	}
}

func TestDecodeEncodeRoundtrip(t *testing.T) {
	original := []float32{0.0, 0.5, -0.5, 1.0, -1.0}
	encoded, err := EncodeWAV(append([]float32(nil), original...), 24000)
	if err != nil {
		t.Fatalf("encode error: %v", err)
	}

	decoded, rate, err := DecodeWAV(encoded)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if rate != 24000 {
		t.Errorf("rate = %d, want 24000", rate)
	}
	if len(decoded) != len(original) {
		t.Fatalf("roundtrip: got %d samples, want %d", len(decoded), len(original))
	}

	// 16-bit quantization introduces error up to ~1/32768.
	const tolerance = 1.0 / 32768.0 * 2
	for i, want := range original {
		if got := decoded[i]; math.Abs(float64(got-want)) > tolerance {
			t.Errorf("sample[%d] = %f, want %f (tolerance %f)", i, got, want, tolerance)
		}
	}
}

func TestDecodeWAV_Errors(t *testing.T) {
	t.Run("rejects invalid WAV data", func(t *testing.T) {
		if _, _, err := DecodeWAV([]byte("not a wav file")); err == nil {
			t.Fatal("expected error for invalid WAV")
		}
	})

	t.Run("rejects empty input", func(t *testing.T) {
		if _, _, err := DecodeWAV(nil); err == nil {
			t.Fatal("expected error for nil input")
		}
	})

	t.Run("rejects stereo", func(t *testing.T) {
		data, err := EncodeWAV(make([]float32, 8), 16000)
		if err != nil {
			t.Fatalf("EncodeWAV: %v", err)
		}
		binary.LittleEndian.PutUint16(data[22:24], 2)
		binary.LittleEndian.PutUint16(data[32:34], 4)
		_, _, err = DecodeWAV(data)
		if !errors.Is(err, ErrFormatMismatch) {
			t.Errorf("expected ErrFormatMismatch, got %v", err)
		}
	})
}

func TestEncodeWAV_PatchesRIFFSize(t *testing.T) {
	data, err := EncodeWAV([]float32{0.25}, 8000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	// RIFF size is patched after the data has been written.
	if got, want := binary.LittleEndian.Uint32(data[4:8]), uint32(len(data)-8); got != want {
		t.Errorf("RIFF size = %d, want %d", got, want)
	}
}
