package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		token, err := GenerateToken(8)
		require.NoError(t, err)
		assert.Len(t, token, 8)
		assert.True(t, IsAlphanumeric(token), token)
		seen[token] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestGenerateTokenRejectsNonPositiveLength(t *testing.T) {
	_, err := GenerateToken(0)
	assert.Error(t, err)
}

func TestIsAlphanumeric(t *testing.T) {
	assert.True(t, IsAlphanumeric("aZ09"))
	assert.False(t, IsAlphanumeric(""))
	assert.False(t, IsAlphanumeric("ab-c"))
	assert.False(t, IsAlphanumeric("是"))
}

func TestGetErrorStatusCodes(t *testing.T) {
	assert.Equal(t, 502, GetErrorStatus(NewDriverFailure(assert.AnError)))
	assert.Equal(t, 503, GetErrorStatus(NewDependencyUnavailable(assert.AnError)))
	assert.Equal(t, 400, GetErrorStatus(NewPolicyViolation("bad engine")))
	assert.Equal(t, 500, GetErrorStatus(assert.AnError))
}

func TestDriverFailureKeepsDriverMessage(t *testing.T) {
	err := NewDriverFailure(assert.AnError)
	assert.Equal(t, assert.AnError.Error(), err.Message)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, IsErrorType(err, ErrCodeDriverFailure))
}
