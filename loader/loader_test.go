package loader_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/loader"
)

func writeImage(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.bin")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func TestLoadImage(t *testing.T) {
	want := []byte{0x0E, 0x04, 0x41, 0xFF}
	path := writeImage(t, want)

	image, err := loader.LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage failed: %v", err)
	}
	if len(image) != len(want) {
		t.Errorf("got %d bytes, want %d", len(image), len(want))
	}
}

func TestLoadImage_Missing(t *testing.T) {
	if _, err := loader.LoadImage(filepath.Join(t.TempDir(), "nope.bin")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadImage_Empty(t *testing.T) {
	path := writeImage(t, nil)
	_, err := loader.LoadImage(path)
	if !errors.Is(err, loader.ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestLoadImage_TooLarge(t *testing.T) {
	path := writeImage(t, make([]byte, isa.MemorySize+1))
	if _, err := loader.LoadImage(path); err == nil {
		t.Error("expected an error for an oversized image")
	}
}

func TestLoadMachine(t *testing.T) {
	path := writeImage(t, []byte{0xFF})

	m, err := loader.LoadMachine(path)
	if err != nil {
		t.Fatalf("LoadMachine failed: %v", err)
	}
	if m.Memory[0] != 0xFF {
		t.Errorf("memory[0] = 0x%02X, want 0xFF", m.Memory[0])
	}
}
