package terminal

import (
	"errors"
	"fmt"
)

// MaxDimension is the largest row or column count a pty window size can
// carry.
const MaxDimension = 1<<16 - 1

// ErrInvalidSize is returned for geometry outside [1, MaxDimension].
var ErrInvalidSize = errors.New("invalid terminal size")

// CheckSize reports whether rows and cols form a usable geometry. Grid
// itself clamps bad sizes; CheckSize is for callers that would rather
// reject them.
func CheckSize(rows, cols int) error {
	if rows < 1 || cols < 1 || rows > MaxDimension || cols > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, rows, cols)
	}
	return nil
}
