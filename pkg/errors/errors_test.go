package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{NewNotFound("appointment", nil), http.StatusNotFound},
		{NewValidation("appointment_time", "bad time"), http.StatusBadRequest},
		{NewConflict("slot already taken", nil), http.StatusConflict},
		{NewInvalidState("cannot approve"), http.StatusUnprocessableEntity},
		{NewAccessDenied("not yours"), http.StatusForbidden},
		{NewForbidden("role"), http.StatusForbidden},
		{InvalidCredentials(), http.StatusUnauthorized},
		{AccountDisabled(), http.StatusForbidden},
		{Unauthorized(nil), http.StatusUnauthorized},
		{NewInternal(fmt.Errorf("boom")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.StatusCode(), tt.err.Message)
	}
}

func TestIsCodeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("booking: %w", NewConflict("slot already taken", nil))

	assert.True(t, IsCode(err, ErrConflict))
	assert.False(t, IsCode(err, ErrNotFound))
	assert.False(t, IsCode(fmt.Errorf("plain"), ErrConflict))
}

func TestInvalidCredentialsIsGeneric(t *testing.T) {
	assert.Equal(t, InvalidCredentials().Error(), InvalidCredentials().Error())
	assert.NotContains(t, InvalidCredentials().Error(), "not found")
}
