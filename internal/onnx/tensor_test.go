package onnx

import (
	"reflect"
	"strings"
	"testing"
)

func TestNewTensor(t *testing.T) {
	t.Run("float32 ok", func(t *testing.T) {
		tt, err := NewTensor([]float32{1, 2, 3, 4}, []int64{2, 2})
		if err != nil {
			t.Fatalf("NewTensor failed: %v", err)
		}

		if tt.DType() != DTypeFloat32 {
			t.Fatalf("expected dtype float32, got %s", tt.DType())
		}

		if !reflect.DeepEqual(tt.Shape(), []int64{2, 2}) {
			t.Fatalf("unexpected shape: %v", tt.Shape())
		}

		got, err := tt.Float32()
		if err != nil {
			t.Fatalf("Float32 failed: %v", err)
		}

		if !reflect.DeepEqual(got, []float32{1, 2, 3, 4}) {
			t.Fatalf("unexpected data: %v", got)
		}

		if _, err := tt.Int64(); err == nil {
			t.Fatal("Int64 on a float32 tensor should fail")
		}
	})

	t.Run("int64 ok", func(t *testing.T) {
		tt, err := NewTensor([]int64{7, 8, 9}, []int64{1, 3})
		if err != nil {
			t.Fatalf("NewTensor failed: %v", err)
		}

		if tt.DType() != DTypeInt64 || tt.Len() != 3 {
			t.Fatalf("dtype=%s len=%d", tt.DType(), tt.Len())
		}

		got, err := tt.Int64()
		if err != nil {
			t.Fatalf("Int64 failed: %v", err)
		}

		if !reflect.DeepEqual(got, []int64{7, 8, 9}) {
			t.Fatalf("unexpected data: %v", got)
		}
	})

	t.Run("shape mismatch", func(t *testing.T) {
		_, err := NewTensor([]int64{1, 2, 3}, []int64{2, 2})
		if err == nil {
			t.Fatal("expected shape mismatch error")
		}

		if !strings.Contains(err.Error(), "expects 4 elements, got 3") {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("non-positive dim", func(t *testing.T) {
		if _, err := NewTensor([]float32{}, []int64{1, 0}); err == nil {
			t.Fatal("expected error for zero dimension")
		}
	})
}

func TestTensor_DataIsCopied(t *testing.T) {
	src := []float32{1, 2}
	tt, err := NewTensor(src, []int64{2})
	if err != nil {
		t.Fatalf("NewTensor: %v", err)
	}

	src[0] = 99
	got, _ := tt.Float32()
	if got[0] != 1 {
		t.Fatal("tensor aliases caller slice")
	}

	got[1] = 42
	again, _ := tt.Float32()
	if again[1] != 2 {
		t.Fatal("Float32 returns internal slice")
	}

	shape := tt.Shape()
	shape[0] = 5
	if tt.Shape()[0] != 2 {
		t.Fatal("Shape returns internal slice")
	}
}

func TestTokenTensor(t *testing.T) {
	tt, err := TokenTensor([]int64{5, 6, 7})
	if err != nil {
		t.Fatalf("TokenTensor: %v", err)
	}
	if !reflect.DeepEqual(tt.Shape(), []int64{1, 3}) {
		t.Errorf("shape = %v; want [1 3]", tt.Shape())
	}

	if _, err := TokenTensor(nil); err == nil {
		t.Error("expected error for empty tokens")
	}
}

func TestTensor_NilAccess(t *testing.T) {
	var tt *Tensor
	if _, err := tt.Float32(); err == nil {
		t.Error("expected error for nil tensor")
	}
	if _, err := tt.Int64(); err == nil {
		t.Error("expected error for nil tensor")
	}
}
