package messages

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationErrorMessage(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		want   string
	}{
		{
			name:   "single field",
			fields: map[string]string{"email": "Please enter a valid email address."},
			want:   "validation failed: email",
		},
		{
			name: "fields sorted",
			fields: map[string]string{
				"message": "too short",
				"email":   "invalid",
				"name":    "required",
			},
			want: "validation failed: email, message, name",
		},
		{
			name:   "no fields",
			fields: map[string]string{},
			want:   "validation failed: ",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := &ValidationError{Fields: tc.fields}
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestAsValidationError(t *testing.T) {
	verr := &ValidationError{Fields: map[string]string{"name": "required"}}

	got, ok := AsValidationError(verr)
	assert.True(t, ok)
	assert.Equal(t, verr, got)

	wrapped := fmt.Errorf("submit: %w", verr)
	got, ok = AsValidationError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, verr, got)

	_, ok = AsValidationError(errors.New("plain"))
	assert.False(t, ok)

	_, ok = AsValidationError(nil)
	assert.False(t, ok)
}
