package common

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConflictError(t *testing.T) {
	tests := []struct {
		name    string
		err     *ConflictError
		wantMsg string
	}{
		{"username", &ConflictError{Field: FieldUsername}, "conflict: username already exists"},
		{"email", &ConflictError{Field: FieldEmail}, "conflict: email already exists"},
		{"unknown", &ConflictError{}, "conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.wantMsg)
			assert.ErrorIs(t, tt.err, ErrConflict)

			var ce *ConflictError
			assert.True(t, errors.As(error(tt.err), &ce))
			assert.Equal(t, tt.err.Field, ce.Field)
		})
	}
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("find user", context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "find user")
}
