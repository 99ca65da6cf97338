// Package model verifies local model files against a checksum manifest.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Manifest pins the files the local backend loads. Filenames are
// resolved relative to the manifest's directory.
type Manifest struct {
	Name  string      `json:"name"`
	Files []ModelFile `json:"files"`

	dir string
}

type ModelFile struct {
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
}

var shaHexPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

func isSHA256Hex(v string) bool {
	return shaHexPattern.MatchString(v)
}

// LoadManifest reads and validates a JSON manifest.
func LoadManifest(path string) (Manifest, error) {
	if path == "" {
		return Manifest{}, errors.New("manifest path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if len(m.Files) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s lists no files", path)
	}
	for _, f := range m.Files {
		if f.Filename == "" {
			return Manifest{}, fmt.Errorf("manifest %s: file entry without filename", path)
		}
		if !isSHA256Hex(f.SHA256) {
			return Manifest{}, fmt.Errorf("manifest %s: %s has invalid sha256 %q", path, f.Filename, f.SHA256)
		}
	}

	m.dir = filepath.Dir(path)
	return m, nil
}

// Path returns the on-disk location of f.
func (m Manifest) Path(f ModelFile) string {
	if filepath.IsAbs(f.Filename) {
		return f.Filename
	}
	return filepath.Join(m.dir, f.Filename)
}
