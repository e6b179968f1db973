// ABOUTME: Tests for user-facing error helpers
// ABOUTME: Covers fallback messages, whitelisted readable codes, and form error resolution

package apiclient

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(nil, "fallback"))
	assert.Equal(t, "boom", Message(errors.New("boom"), "fallback"))
	assert.Equal(t, "denied", Message(&Error{Message: "denied"}, "fallback"))
	assert.Equal(t, "fallback", Message(&Error{}, "fallback"))
}

func TestReadableCode(t *testing.T) {
	assert.Equal(t, "Demo Mode Restriction", ReadableCode(&Error{Code: "DEMO_MODE_RESTRICTION"}))
	assert.Equal(t, "Insufficient Permissions", ReadableCode(&Error{Code: "INSUFFICIENT_PERMISSIONS"}))
	assert.Equal(t, GenericErrorTitle, ReadableCode(&Error{Code: "DB_DOWN"}))
	assert.Equal(t, GenericErrorTitle, ReadableCode(errors.New("plain")))
}

func TestResolveFormError(t *testing.T) {
	plain := ResolveFormError(errors.New("network down"), "Could not save")
	assert.Equal(t, "network down", plain.Message)
	assert.Nil(t, plain.FieldErrors)

	nested := ResolveFormError(&Error{
		Message: "Invalid",
		Details: map[string]any{"error": map[string]any{"errors": map[string]any{"name": []any{"required"}}}},
	}, "Could not save")
	assert.Equal(t, "Invalid", nested.Message)
	assert.Equal(t, map[string][]string{"name": {"required"}}, nested.FieldErrors)

	empty := ResolveFormError(&Error{}, "Could not save")
	assert.Equal(t, "Could not save", empty.Message)
}

func TestMapError(t *testing.T) {
	e := mapError(401, map[string]any{"message": "who are you", "code": "TOKEN_EXPIRED"}, "Unauthorized")
	assert.Equal(t, KindUnauthorized, e.Kind)
	assert.Equal(t, CodeUnauthorized, e.Code)
	assert.Equal(t, "who are you", e.Message)
	assert.ErrorIs(t, e, ErrUnauthorized)

	e = mapError(500, nil, "Internal Server Error")
	assert.Equal(t, "Internal Server Error", e.Message)
	assert.Empty(t, e.Code)
}
