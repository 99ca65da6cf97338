//go:build windows

package onnx

import (
	"context"
	"fmt"
)

const DefaultAPIVersion uint32 = 23

// RunnerConfig holds ORT library settings for creating runners.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// Graph names a single ONNX model file.
type Graph struct {
	Name string
	Path string
}

// Runner is unavailable in windows builds.
type Runner struct {
	name string
}

// NewRunner always returns an error in windows builds.
func NewRunner(graph Graph, _ RunnerConfig) (*Runner, error) {
	return nil, fmt.Errorf("native onnx runner is unavailable on windows for graph %q", graph.Name)
}

func (r *Runner) Run(_ context.Context, _ map[string]*Tensor) (map[string]*Tensor, error) {
	return nil, fmt.Errorf("native onnx runner is unavailable on windows for graph %q", r.name)
}

func (r *Runner) Close() {}

func (r *Runner) Name() string {
	return r.name
}
