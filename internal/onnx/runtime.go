package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// RuntimeInfo describes a located ONNX Runtime shared library.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
}

var ErrRuntimeNotFound = errors.New("unable to detect ONNX Runtime library path")

var versionPattern = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

// LibraryCandidates are probed when no path is configured.
var LibraryCandidates = []string{
	"/usr/lib/libonnxruntime.so",
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"C:/onnxruntime/lib/onnxruntime.dll",
}

// DetectRuntime resolves the ORT library: the configured path, then
// ORT_LIBRARY_PATH, then LibraryCandidates.
func DetectRuntime(libraryPath string) (RuntimeInfo, error) {
	path := libraryPath
	if path == "" {
		path = os.Getenv("ORT_LIBRARY_PATH")
	}

	if path == "" {
		for _, c := range LibraryCandidates {
			if _, err := os.Stat(c); err == nil {
				path = c
				break
			}
		}
	}

	if path == "" {
		return RuntimeInfo{LibraryPath: "not found", Version: "unknown"}, ErrRuntimeNotFound
	}

	if _, err := os.Stat(path); err != nil {
		return RuntimeInfo{LibraryPath: path, Version: "unknown"}, fmt.Errorf("onnx runtime library path check failed: %w", err)
	}

	version := os.Getenv("ORT_VERSION")
	if version == "" {
		version = inferVersionFromPath(path)
	}

	if version == "" {
		version = "unknown"
	}

	return RuntimeInfo{LibraryPath: path, Version: version}, nil
}

// libonnxruntime.so.1.23.0 -> 1.23.0
func inferVersionFromPath(path string) string {
	name := filepath.Base(path)
	if m := versionPattern.FindStringSubmatch(name); len(m) == 2 {
		return m[1]
	}

	return ""
}
