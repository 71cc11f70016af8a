// Package loader reads program images from disk and prepares machines to
// run them.
package loader

import (
	"errors"
	"fmt"
	"os"

	"github.com/regvm/regvm/isa"
	"github.com/regvm/regvm/vm"
)

// ErrEmptyImage reports an image file with no content.
var ErrEmptyImage = errors.New("image is empty")

// LoadImage reads a binary image file and validates it: an image must be
// non-empty and fit in the machine's memory.
func LoadImage(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-specified image path
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyImage, path)
	}
	if len(data) > isa.MemorySize {
		return nil, fmt.Errorf("image %s is %d bytes, memory is %d", path, len(data), isa.MemorySize)
	}
	return data, nil
}

// LoadMachine reads an image file and constructs a machine with it loaded
// at offset 0.
func LoadMachine(path string) (*vm.Machine, error) {
	image, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	return vm.NewMachine(image)
}
