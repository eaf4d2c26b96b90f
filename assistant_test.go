package vox_test

import (
	"testing"

	"github.com/fwojciec/vox"
	"github.com/stretchr/testify/assert"
)

func TestAssistant_Validate(t *testing.T) {
	t.Parallel()

	t.Run("name and prompt set", func(t *testing.T) {
		t.Parallel()
		a := vox.Assistant{Name: "Tutor", Prompt: "You teach Go."}
		assert.NoError(t, a.Validate())
	})

	t.Run("blank name", func(t *testing.T) {
		t.Parallel()
		a := vox.Assistant{Name: "  ", Prompt: "p"}
		err := a.Validate()
		assert.ErrorIs(t, err, vox.ErrValidation)
		assert.Contains(t, err.Error(), "name")
	})

	t.Run("missing prompt", func(t *testing.T) {
		t.Parallel()
		a := vox.Assistant{Name: "Tutor"}
		err := a.Validate()
		assert.ErrorIs(t, err, vox.ErrValidation)
		assert.Contains(t, err.Error(), "prompt")
	})
}

func TestAssistantUpdate_Apply(t *testing.T) {
	t.Parallel()

	name := "Renamed"
	a := vox.Assistant{ID: "1", Name: "Old", Description: "d", Prompt: "p"}

	got := vox.AssistantUpdate{Name: &name}.Apply(a)

	assert.Equal(t, vox.Assistant{ID: "1", Name: "Renamed", Description: "d", Prompt: "p"}, got)
	assert.Equal(t, "Old", a.Name, "Apply must not modify its argument")
}

func TestAssistantUpdate_IsEmpty(t *testing.T) {
	t.Parallel()
	assert.True(t, vox.AssistantUpdate{}.IsEmpty())
	p := ""
	assert.False(t, vox.AssistantUpdate{Prompt: &p}.IsEmpty())
}
