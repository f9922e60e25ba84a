// Package clipboard provides utilities for working with the system clipboard
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnsupported means no clipboard utility is available (e.g. no xclip/xsel on Linux)
var ErrUnsupported = errors.New("clipboard not available on this system")

// SetText puts text into the system clipboard
func SetText(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}
