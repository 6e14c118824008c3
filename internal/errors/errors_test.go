package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("connection refused")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"transport", Transport("geocoder unreachable", cause), ErrTransport},
		{"not found", NotFound("no match"), ErrNotFound},
		{"auth", Auth("wrong password", nil), ErrAuth},
		{"store", Store("write review", cause), ErrStore},
		{"validation", Validation("title is required", nil), ErrValidation},
		{"wrapped", fmt.Errorf("submit: %w", Store("upload image", cause)), ErrStore},
		{"foreign", cause, nil},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAppError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Store("write review", cause)

	assert.ErrorIs(t, err, ErrStore)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("sign in: %w", Auth("invalid email or password", nil))
	assert.Equal(t, "invalid email or password", MessageOf(err))
	assert.Equal(t, "", MessageOf(errors.New("plain")))
}
