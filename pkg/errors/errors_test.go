package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/koopa0/system-design/14-chat-rooms/pkg/errors"
)

func TestAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantMsg  string
	}{
		{
			name:     "predefined not found",
			err:      apperrors.ErrParticipantNotFound,
			wantCode: apperrors.ErrCodeNotFound,
			wantMsg:  "[NOT_FOUND] participant not found",
		},
		{
			name:     "wrapped cause",
			err:      apperrors.Wrap(errors.New("dial tcp: refused"), apperrors.ErrCodeUnavailable, "presence mirror unavailable"),
			wantCode: apperrors.ErrCodeUnavailable,
			wantMsg:  "[SERVICE_UNAVAILABLE] presence mirror unavailable: dial tcp: refused",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			wantCode: apperrors.ErrCodeInternal,
			wantMsg:  "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, apperrors.CodeOf(tt.err))
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := apperrors.ErrParticipantNotFound.WithDetails("c1")

	assert.Equal(t, "c1", err.Details)
	assert.Empty(t, apperrors.ErrParticipantNotFound.Details)
	assert.ErrorIs(t, err, apperrors.ErrParticipantNotFound)
	assert.True(t, apperrors.IsNotFound(err))
	assert.False(t, apperrors.IsInvalidInput(err))
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("cause")
	err := apperrors.Wrap(cause, apperrors.ErrCodeInvalidInput, "bad")

	assert.ErrorIs(t, err, cause)
	assert.True(t, apperrors.IsInvalidInput(err))
	assert.True(t, apperrors.IsUnavailable(apperrors.New(apperrors.ErrCodeUnavailable, "down")))
}
