package model_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storypath-server/internal/model"
)

func TestSentinelErrors(t *testing.T) {
	t.Run("identity survives wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("ошибка фиксации выбора: %w", model.ErrChoiceAlreadyTaken)
		require.ErrorIs(t, wrapped, model.ErrChoiceAlreadyTaken)
		assert.NotErrorIs(t, wrapped, model.ErrNotFound)
	})

	t.Run("sentinels are distinct", func(t *testing.T) {
		sentinels := []error{
			model.ErrNotFound,
			model.ErrUserNotFound,
			model.ErrUserAlreadyExists,
			model.ErrEmailAlreadyExists,
			model.ErrInvalidCredentials,
			model.ErrUnauthorized,
			model.ErrForbidden,
			model.ErrChoiceAlreadyTaken,
			model.ErrStoryEnded,
			model.ErrConfirmationRequired,
			model.ErrGenerationFailed,
			model.ErrAPIKeyMissing,
			model.ErrInvalidInput,
		}
		for i, a := range sentinels {
			for j, b := range sentinels {
				if i == j {
					continue
				}
				assert.NotErrorIs(t, a, b)
			}
		}
	})
}
