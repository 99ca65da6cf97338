package onnx

import (
	"fmt"
	"math"
)

type DType string

const (
	DTypeFloat32 DType = "float32"
	DTypeInt64   DType = "int64"
)

// Tensor is a dense row-major tensor of float32 or int64 values.
type Tensor struct {
	dtype DType
	shape []int64
	data  any
}

func NewTensor[T int64 | float32](data []T, shape []int64) (*Tensor, error) {
	count, err := elementCount(shape)
	if err != nil {
		return nil, err
	}
	if count != len(data) {
		return nil, fmt.Errorf("shape %v expects %d elements, got %d", shape, count, len(data))
	}

	t := &Tensor{shape: append([]int64(nil), shape...)}
	switch d := any(append([]T(nil), data...)).(type) {
	case []float32:
		t.dtype, t.data = DTypeFloat32, d
	case []int64:
		t.dtype, t.data = DTypeInt64, d
	}
	return t, nil
}

// TokenTensor wraps a token sequence as an int64 tensor of shape [1, T].
func TokenTensor(ids []int64) (*Tensor, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("empty token sequence")
	}
	return NewTensor(ids, []int64{1, int64(len(ids))})
}

func (t *Tensor) DType() DType {
	return t.dtype
}

func (t *Tensor) Shape() []int64 {
	return append([]int64(nil), t.shape...)
}

// Len returns the number of elements.
func (t *Tensor) Len() int {
	switch d := t.data.(type) {
	case []float32:
		return len(d)
	case []int64:
		return len(d)
	}
	return 0
}

// Float32 returns a copy of the data of a float32 tensor.
func (t *Tensor) Float32() ([]float32, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tensor")
	}
	d, ok := t.data.([]float32)
	if !ok {
		return nil, fmt.Errorf("expected float32 tensor, got %s", t.dtype)
	}
	return append([]float32(nil), d...), nil
}

// Int64 returns a copy of the data of an int64 tensor.
func (t *Tensor) Int64() ([]int64, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tensor")
	}
	d, ok := t.data.([]int64)
	if !ok {
		return nil, fmt.Errorf("expected int64 tensor, got %s", t.dtype)
	}
	return append([]int64(nil), d...), nil
}

func elementCount(shape []int64) (int, error) {
	count := int64(1)
	for i, dim := range shape {
		if dim < 1 {
			return 0, fmt.Errorf("shape[%d]=%d is not positive", i, dim)
		}
		if count > math.MaxInt64/dim {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}
		count *= dim
	}
	if count > int64(math.MaxInt) {
		return 0, fmt.Errorf("shape %v exceeds platform int capacity", shape)
	}
	return int(count), nil
}
