package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorError(t *testing.T) {
	err := New(ErrCodeInvalidToken, "Invalid or expired connection token")
	assert.Equal(t, "INVALID_TOKEN: Invalid or expired connection token", err.Error())

	wrapped := Wrap(ErrCodeDatabase, "Database error", stderrors.New("connection refused"))
	assert.Equal(t, "DATABASE_ERROR: Database error (cause: connection refused)", wrapped.Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("dial tcp: timeout")
	err := StoreUnavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestWithCauseAndDetails(t *testing.T) {
	cause := stderrors.New("boom")
	err := Internal("something broke").WithCause(cause).WithDetails(map[string]string{"step": "complete"})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, map[string]string{"step": "complete"}, err.Details)
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(ConnectionExpired())
	require.True(t, ok)
	assert.Equal(t, ErrCodeConnectionExpired, appErr.Code)

	// Finds an AppError through fmt wrapping.
	wrapped := fmt.Errorf("handling callback: %w", InvalidSignature())
	appErr, ok = AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeInvalidSignature, appErr.Code)

	_, ok = AsAppError(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeRateLimitExceeded, GetCode(RateLimitExceeded()))
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestConstructorCodes(t *testing.T) {
	cases := []struct {
		err  *AppError
		code ErrorCode
	}{
		{InvalidInput("userId", "must be a positive integer"), ErrCodeInvalidInput},
		{MissingRequired("signature"), ErrCodeMissingRequired},
		{InvalidToken(), ErrCodeInvalidToken},
		{PayloadMismatch(), ErrCodePayloadMismatch},
		{ConnectionNotFound(), ErrCodeConnectionNotFound},
		{ConnectionExpired(), ErrCodeConnectionExpired},
		{ConnectionAlreadyUsed(), ErrCodeConnectionAlreadyUsed},
		{ConnectionCancelled(), ErrCodeConnectionCancelled},
		{InvalidWalletAddress(), ErrCodeInvalidWalletAddress},
		{InvalidSignature(), ErrCodeInvalidSignature},
		{NotFound("Connection"), ErrCodeNotFound},
		{Database(stderrors.New("x")), ErrCodeDatabase},
	}

	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			assert.Equal(t, tc.code, tc.err.Code)
			assert.True(t, IsAppError(tc.err))
			assert.NotEmpty(t, tc.err.Message)
		})
	}
}
