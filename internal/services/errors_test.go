package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationError(t *testing.T) {
	v := NewValidationError()
	require.NoError(t, v.Err())

	v.Add("name", "This field is required.")
	v.Add("name", "too short")
	v.Add("country", "unknown")

	err := v.Err()
	require.Error(t, err)
	assert.Equal(t, "validation failed: country: unknown, name: This field is required.; too short", err.Error())

	var target *ValidationError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Len(t, target.Fields["name"], 2)
}

func TestConstraintError_PassThrough(t *testing.T) {
	assert.NoError(t, constraintError(nil, "code"))
	plain := errors.New("boom")
	assert.Same(t, plain, constraintError(plain, "code"))
}
