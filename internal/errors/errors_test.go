package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	t.Run("Success_WrapPreservesChain", func(t *testing.T) {
		wrapped := Wrap(ErrNotFound, "credential lookup")

		assert.True(t, Is(wrapped, ErrNotFound))
		assert.Equal(t, "credential lookup: not found", wrapped.Error())
	})

	t.Run("Success_NilPassesThrough", func(t *testing.T) {
		assert.Nil(t, Wrap(nil, "no-op"))
	})

	t.Run("Success_DoubleWrap", func(t *testing.T) {
		inner := Wrap(ErrUnauthorized, "token expired")
		outer := Wrap(inner, "session check")

		assert.True(t, Is(outer, ErrUnauthorized))
	})
}

func TestAs(t *testing.T) {
	type timeoutError struct{ error }

	cause := timeoutError{error: New("deadline exceeded")}
	wrapped := fmt.Errorf("outer: %w", cause)

	var target timeoutError
	assert.True(t, As(wrapped, &target))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrUnauthorized, ErrForbidden, ErrUnavailable}

	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, Is(a, b), "%v must not match %v", a, b)
		}
	}
}
