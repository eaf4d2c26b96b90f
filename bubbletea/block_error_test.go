package bubbletea_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/fwojciec/vox"
	bt "github.com/fwojciec/vox/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestErrorBlock_View(t *testing.T) {
	t.Parallel()

	styles := bt.NewStyles(vox.DefaultTheme())

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status", fmt.Errorf("voicerobot: %w", &vox.StatusError{Code: 403}), "Error: Permission denied"},
		{"remote", &vox.RemoteError{Message: "quota exceeded"}, "Error: quota exceeded"},
		{"timeout", vox.ErrReadTimeout, "Error: Request timed out, please retry"},
		{"unknown", errors.New("dial tcp: connection refused"), "Error: Network error, please retry later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			view := bt.NewErrorBlock(tt.err, styles).View(80)
			assert.Contains(t, view, tt.want)
		})
	}
}
