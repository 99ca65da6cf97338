// Package testutil provides shared skip helpers and assertions for
// integration tests.
//
// Each Require helper calls t.Skip with a clear human-readable reason when
// the named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    testutil.RequireGTTSCLI(t)
//	    ...
//	}
package testutil

import (
	"os"
	"os/exec"
	"testing"

	"github.com/example/go-tts-form/internal/onnx"
)

// RequireGTTSCLI skips the test if the gtts-cli binary is not found in PATH
// or at the path given by the TTSFORM_CLI_COMMAND environment variable.
func RequireGTTSCLI(tb testing.TB) {
	tb.Helper()

	exe := os.Getenv("TTSFORM_CLI_COMMAND")
	if exe == "" {
		exe = "gtts-cli"
	}

	if _, err := exec.LookPath(exe); err != nil {
		tb.Skipf("gtts-cli binary not available (%q not in PATH); set TTSFORM_CLI_COMMAND to override", exe)
	}
}

// RequireONNXRuntime skips the test if no ONNX Runtime shared library can be
// located. ORT_LIBRARY_PATH wins when set; otherwise the usual system paths
// are probed.
func RequireONNXRuntime(tb testing.TB) {
	tb.Helper()

	if p := os.Getenv("ORT_LIBRARY_PATH"); p != "" {
		if _, err := os.Stat(p); err != nil {
			tb.Skipf("ONNX Runtime library not found at ORT_LIBRARY_PATH=%q", p)
		}
		return
	}

	if _, err := onnx.DetectRuntime(""); err != nil {
		tb.Skipf("ONNX Runtime shared library not found (%v); set ORT_LIBRARY_PATH", err)
	}
}

// RequireNetwork skips the test unless TTSFORM_TEST_NETWORK is set. Tests
// that call the real gTTS endpoint use it.
func RequireNetwork(tb testing.TB) {
	tb.Helper()

	if os.Getenv("TTSFORM_TEST_NETWORK") == "" {
		tb.Skip("network tests disabled; set TTSFORM_TEST_NETWORK=1")
	}
}
