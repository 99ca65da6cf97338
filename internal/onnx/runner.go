//go:build !windows

package onnx

import (
	"context"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"
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

// Runner wraps an ORT session for a single ONNX graph. A Runner is
// immutable after construction and safe for concurrent Run calls.
type Runner struct {
	name    string
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

// NewRunner loads the ORT shared library and opens a session for graph.
func NewRunner(graph Graph, cfg RunnerConfig) (*Runner, error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = DefaultAPIVersion
	}

	runtime, err := ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion)
	if err != nil {
		return nil, fmt.Errorf("ort runtime for %q: %w", graph.Name, err)
	}

	env, err := runtime.NewEnv("ttsform-"+graph.Name, ort.LoggingLevelWarning)
	if err != nil {
		_ = runtime.Close()
		return nil, fmt.Errorf("ort env for %q: %w", graph.Name, err)
	}

	session, err := runtime.NewSession(env, graph.Path, nil)
	if err != nil {
		env.Close()
		_ = runtime.Close()

		return nil, fmt.Errorf("ort session for %q (%s): %w", graph.Name, graph.Path, err)
	}

	return &Runner{
		name:    graph.Name,
		runtime: runtime,
		env:     env,
		session: session,
	}, nil
}

// Run executes the graph with the given named input tensors.
func (r *Runner) Run(ctx context.Context, inputs map[string]*Tensor) (map[string]*Tensor, error) {
	if r.session == nil {
		return nil, fmt.Errorf("run %q: runner closed", r.name)
	}

	ortInputs := make(map[string]*ort.Value, len(inputs))
	defer closeValues(ortInputs)

	for name, t := range inputs {
		v, err := toValue(r.runtime, t)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", name, err)
		}

		ortInputs[name] = v
	}

	ortOutputs, err := r.session.Run(ctx, ortInputs)
	if err != nil {
		return nil, fmt.Errorf("run %q: %w", r.name, err)
	}
	defer closeValues(ortOutputs)

	results := make(map[string]*Tensor, len(ortOutputs))
	for name, v := range ortOutputs {
		t, err := fromValue(v)
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", name, err)
		}

		results[name] = t
	}

	return results, nil
}

// Close releases all ORT resources. Safe to call multiple times.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}

	if r.env != nil {
		r.env.Close()
		r.env = nil
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
		r.runtime = nil
	}
}

func (r *Runner) Name() string {
	return r.name
}

func toValue(runtime *ort.Runtime, t *Tensor) (*ort.Value, error) {
	switch data := t.data.(type) {
	case []float32:
		return ort.NewTensorValue(runtime, data, t.shape)
	case []int64:
		return ort.NewTensorValue(runtime, data, t.shape)
	default:
		return nil, fmt.Errorf("unsupported tensor dtype %T", data)
	}
}

func fromValue(v *ort.Value) (*Tensor, error) {
	elemType, err := v.GetTensorElementType()
	if err != nil {
		return nil, fmt.Errorf("get element type: %w", err)
	}

	switch elemType {
	case ort.ONNXTensorElementDataTypeFloat:
		data, shape, err := ort.GetTensorData[float32](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	case ort.ONNXTensorElementDataTypeInt64:
		data, shape, err := ort.GetTensorData[int64](v)
		if err != nil {
			return nil, err
		}

		return NewTensor(data, shape)
	default:
		return nil, fmt.Errorf("unsupported ORT element type %d", elemType)
	}
}

func closeValues(vals map[string]*ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Close()
		}
	}
}
