package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "valid8/pkg/domain-errors"
)

func TestParseUserID(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseUserID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseUserID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseUserID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, UserID(valid), id)
	})
}

func TestTypeDistinction(t *testing.T) {
	userID := NewUserID()
	sessionID := NewSessionID()

	// These would fail to compile if types were interchangeable:
	// var _ UserID = sessionID  // compile error
	// var _ SessionID = userID  // compile error

	assert.NotEqual(t, uuid.UUID(userID), uuid.UUID(sessionID))
}
