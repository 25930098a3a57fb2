// Package clipboard copies reports to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	cb "github.com/atotto/clipboard"
)

var ErrUnsupported = errors.New("no clipboard utility available (install xclip, xsel or wl-clipboard)")

// Available reports whether the platform has a usable clipboard.
func Available() bool {
	return !cb.Unsupported
}

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	return cb.ReadAll()
}

func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	if err := cb.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
