// Package doctor provides environment preflight checks for the configured
// synthesis backend.
package doctor

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strconv"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// FileCheck names a file that must exist on disk.
type FileCheck struct {
	Label string
	Path  string
}

// Config holds injectable dependencies for each doctor check. Nil funcs and
// empty fields skip the corresponding check.
type Config struct {
	// Backend is printed first so the output says what was checked.
	Backend string
	// CloudEndpoint is the gTTS endpoint the cloud backend will call.
	CloudEndpoint string
	// GTTSCLIVersion returns the output of `gtts-cli --version`.
	GTTSCLIVersion VersionFunc
	// ORTVersion returns the detected ONNX Runtime version.
	ORTVersion VersionFunc
	// Files lists model files the local backend needs.
	Files []FileCheck
	// VerifyModels checks the model files against a checksum manifest.
	VerifyModels func() error
	// TempDir must exist and be writable.
	TempDir string
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	if cfg.Backend != "" {
		fmt.Fprintf(w, "%s backend: %s\n", PassMark, cfg.Backend)
	}

	// ---- cloud endpoint ---------------------------------------------------
	if cfg.CloudEndpoint != "" {
		if err := checkEndpoint(cfg.CloudEndpoint); err != nil {
			res.fail(fmt.Sprintf("cloud endpoint: %v", err))
			fmt.Fprintf(w, "%s cloud endpoint %s: %v\n", FailMark, cfg.CloudEndpoint, err)
		} else {
			fmt.Fprintf(w, "%s cloud endpoint: %s\n", PassMark, cfg.CloudEndpoint)
		}
	}

	// ---- gtts-cli binary --------------------------------------------------
	if cfg.GTTSCLIVersion != nil {
		ver, err := cfg.GTTSCLIVersion()
		switch {
		case err != nil:
			res.fail(fmt.Sprintf("gtts-cli binary: %v", err))
			fmt.Fprintf(w, "%s gtts-cli binary: not found (%v)\n", FailMark, err)
		default:
			if verErr := checkGTTSVersion(ver); verErr != nil {
				res.fail(fmt.Sprintf("gtts-cli version: %v", verErr))
				fmt.Fprintf(w, "%s gtts-cli version %s: %v\n", FailMark, ver, verErr)
			} else {
				fmt.Fprintf(w, "%s gtts-cli binary: %s\n", PassMark, ver)
			}
		}
	}

	// ---- ONNX Runtime -----------------------------------------------------
	if cfg.ORTVersion != nil {
		ver, err := cfg.ORTVersion()
		if err != nil {
			res.fail(fmt.Sprintf("onnx runtime: %v", err))
			fmt.Fprintf(w, "%s onnx runtime: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s onnx runtime: %s\n", PassMark, ver)
		}
	}

	// ---- model files ------------------------------------------------------
	for _, f := range cfg.Files {
		if f.Path == "" {
			res.fail(fmt.Sprintf("%s: path not configured", f.Label))
			fmt.Fprintf(w, "%s %s: not configured\n", FailMark, f.Label)
			continue
		}
		if _, err := os.Stat(f.Path); err != nil {
			res.fail(fmt.Sprintf("%s %q: %v", f.Label, f.Path, err))
			fmt.Fprintf(w, "%s %s %s: not found\n", FailMark, f.Label, f.Path)
		} else {
			fmt.Fprintf(w, "%s %s: %s\n", PassMark, f.Label, f.Path)
		}
	}

	if cfg.VerifyModels != nil {
		if err := cfg.VerifyModels(); err != nil {
			res.fail(fmt.Sprintf("model checksums: %v", err))
			fmt.Fprintf(w, "%s model checksums: %v\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s model checksums: ok\n", PassMark)
		}
	}

	// ---- temp dir ---------------------------------------------------------
	if cfg.TempDir != "" {
		if err := checkWritable(cfg.TempDir); err != nil {
			res.fail(fmt.Sprintf("temp dir %q: %v", cfg.TempDir, err))
			fmt.Fprintf(w, "%s temp dir %s: %v\n", FailMark, cfg.TempDir, err)
		} else {
			fmt.Fprintf(w, "%s temp dir: %s\n", PassMark, cfg.TempDir)
		}
	}

	return res
}

func checkEndpoint(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("not a directory")
	}

	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)`)

// checkGTTSVersion returns an error if ver is older than 2.2, the first
// release speaking the batchexecute protocol. ver is the raw
// `gtts-cli --version` output, e.g. "gtts-cli, version 2.5.1".
func checkGTTSVersion(ver string) error {
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major < 2 || (major == 2 && minor < 2) {
		return fmt.Errorf("requires gTTS >=2.2, got %d.%d", major, minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	m := versionPattern.FindStringSubmatch(ver)
	if m == nil {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	minor, err = strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
