package clipboard

import (
	"testing"

	"github.com/atotto/clipboard"
	"github.com/stretchr/testify/assert"
)

func TestSetTextWithoutClipboard(t *testing.T) {
	if !clipboard.Unsupported {
		t.Skip("a clipboard utility is installed")
	}
	assert.ErrorIs(t, SetText("results"), ErrUnsupported)
}
