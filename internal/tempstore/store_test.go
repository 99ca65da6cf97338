package tempstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAllocate_UniqueWithSuffix(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		p, err := s.Allocate(".mp3")
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if seen[p] {
			t.Fatalf("path %q allocated twice", p)
		}
		seen[p] = true

		if filepath.Dir(p) != dir {
			t.Errorf("path %q not under %q", p, dir)
		}
		base := filepath.Base(p)
		if !strings.HasPrefix(base, "ttsform-") || !strings.HasSuffix(base, ".mp3") {
			t.Errorf("unexpected name %q", base)
		}

		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %q: %v", p, err)
		}
		if info.Size() != 0 {
			t.Errorf("new file should be empty, size %d", info.Size())
		}
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "audio")

	s, err := New(dir, WithPrefix("clip-"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("Dir() = %q; want %q", s.Dir(), dir)
	}

	p, err := s.Allocate(".wav")
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(p), "clip-") {
		t.Errorf("prefix not applied: %q", p)
	}
}

func TestNew_DefaultDir(t *testing.T) {
	s, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if s.Dir() != os.TempDir() {
		t.Errorf("Dir() = %q; want %q", s.Dir(), os.TempDir())
	}
}

func TestAllocate_MissingDirectory(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := os.Remove(dir); err != nil {
		t.Fatalf("remove dir: %v", err)
	}

	if _, err := s.Allocate(".mp3"); err == nil {
		t.Error("Allocate in removed directory should fail")
	}
}
