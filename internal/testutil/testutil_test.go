package testutil_test

import (
	"testing"

	"github.com/example/go-tts-form/internal/audio"
	"github.com/example/go-tts-form/internal/testutil"
)

func TestRequireGTTSCLI_SkipsWhenAbsent(t *testing.T) {
	t.Setenv("TTSFORM_CLI_COMMAND", "/nonexistent/gtts-cli-binary")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireGTTSCLI(fakeT)
	if !skipped {
		t.Error("expected RequireGTTSCLI to skip when binary is absent")
	}
}

func TestRequireONNXRuntime_SkipsWhenAbsent(t *testing.T) {
	t.Setenv("ORT_LIBRARY_PATH", "/nonexistent/libonnxruntime.so")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireONNXRuntime(fakeT)
	if !skipped {
		t.Error("expected RequireONNXRuntime to skip when library is absent")
	}
}

func TestRequireNetwork_SkipsByDefault(t *testing.T) {
	t.Setenv("TTSFORM_TEST_NETWORK", "")

	skipped := false
	fakeT := &skipTracker{TB: t, onSkip: func() { skipped = true }}
	testutil.RequireNetwork(fakeT)
	if !skipped {
		t.Error("expected RequireNetwork to skip without TTSFORM_TEST_NETWORK")
	}
}

func TestAssertValidWAV_AcceptsEncodedAudio(t *testing.T) {
	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = 0.25
	}

	data, err := audio.EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}

	testutil.AssertValidWAV(t, data, 16000)
	testutil.AssertWAVDurationApprox(t, data, 16000, 0.09, 0.11)
}

func TestAssertMP3(t *testing.T) {
	testutil.AssertMP3(t, []byte("ID3\x04\x00"))
	testutil.AssertMP3(t, []byte{0xFF, 0xFB, 0x90, 0x00})

	failed := false
	fakeT := &skipTracker{TB: t, onFatal: func() { failed = true }}
	testutil.AssertMP3(fakeT, []byte("RIFF"))
	if !failed {
		t.Error("expected AssertMP3 to reject a WAV header")
	}
}

// skipTracker is a minimal testing.TB implementation that intercepts Skip
// and Fatal calls.
type skipTracker struct {
	testing.TB
	onSkip  func()
	onFatal func()
}

func (s *skipTracker) Helper() {}

// Do NOT forward to s.TB; that would skip or fail the outer test.
func (s *skipTracker) Skip(_ ...any)            { s.onSkip() }
func (s *skipTracker) Skipf(_ string, _ ...any) { s.onSkip() }
func (s *skipTracker) Fatalf(_ string, _ ...any) {
	if s.onFatal != nil {
		s.onFatal()
	}
}
