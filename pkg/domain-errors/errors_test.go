package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeValidation, "email is required")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("wrapped by fmt", func(t *testing.T) {
		err := fmt.Errorf("sign in: %w", New(CodeInvalidResponse, "no token"))
		assert.True(t, HasCode(err, CodeInvalidResponse))
		assert.Equal(t, CodeInvalidResponse, CodeOf(err))
	})

	t.Run("plain error", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, Is(err))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeUnavailable, "failed to persist session")

	assert.Equal(t, "failed to persist session", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestField(t *testing.T) {
	err := Field("password", "Password is required")
	assert.Equal(t, "password", err.Field)
	assert.True(t, HasCode(err, CodeValidation))
}
