package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

type VerifyOptions struct {
	ManifestPath string
	Stdout       io.Writer
	Stderr       io.Writer
}

// Verify hashes every file in the manifest and reports mismatches. Each
// file gets one PASS or FAIL line.
func Verify(opts VerifyOptions) error {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}

	m, err := LoadManifest(opts.ManifestPath)
	if err != nil {
		return err
	}

	var failures []string

	for _, f := range m.Files {
		path := m.Path(f)

		ok, err := existingMatches(path, f.SHA256)
		switch {
		case err != nil:
			_, _ = fmt.Fprintf(opts.Stderr, "FAIL %s: %v\n", f.Filename, err)
			failures = append(failures, f.Filename)
		case !ok:
			_, _ = fmt.Fprintf(opts.Stderr, "FAIL %s: checksum mismatch\n", f.Filename)
			failures = append(failures, f.Filename)
		default:
			_, _ = fmt.Fprintf(opts.Stdout, "PASS %s\n", f.Filename)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("verify failed for %d file(s): %s", len(failures), strings.Join(failures, ", "))
	}

	return nil
}

func existingMatches(path, expected string) (bool, error) {
	got, err := fileSHA256(path)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(got, expected), nil
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
