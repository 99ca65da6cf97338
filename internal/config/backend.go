package config

import (
	"fmt"
	"strings"
)

const (
	BackendCloud = "cloud"
	BackendCLI   = "cli"
	BackendLocal = "local"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendCloud
	}

	switch backend {
	case BackendCloud, BackendCLI, BackendLocal:
		return backend, nil
	case "gtts":
		return BackendCloud, nil
	case "onnx":
		return BackendLocal, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s|%s)",
			raw,
			BackendCloud,
			BackendCLI,
			BackendLocal,
		)
	}
}
