package customerrors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test messages
const (
	msgUniqueViolation   = "unique violation maps to duplicate email"
	msgNoRows            = "no rows maps to not found"
	msgPostgrestCode     = "postgrest code maps to not found"
	msgInvalidCreds      = "invalid credentials"
	msgEmailNotConfirmed = "email not confirmed"
	msgSignupDisabled    = "signup disabled"
	msgUnknownCode       = "unknown code passes message through"
	msgUnknownNoMessage  = "unknown code without message"
	msgNetworkFailure    = "network failure"
	msgWrappedPgError    = "wrapped pg error"
)

func TestNormalize(t *testing.T) {
	netErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	testCases := []struct {
		name            string
		err             error
		expectedMessage string
		expectedKind    Kind
		expectedReason  string
	}{
		{
			name:            msgUniqueViolation,
			err:             &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"},
			expectedMessage: MsgDuplicateEmail,
			expectedKind:    KindValidation,
			expectedReason:  CodeUniqueViolation,
		},
		{
			name:            msgNoRows,
			err:             pgx.ErrNoRows,
			expectedMessage: MsgResourceNotFound,
			expectedKind:    KindNotFound,
			expectedReason:  CodeNoRows,
		},
		{
			name:            msgPostgrestCode,
			err:             &BackendError{Status: 406, Code: "PGRST116", Message: "JSON object requested, multiple (or no) rows returned"},
			expectedMessage: MsgResourceNotFound,
			expectedKind:    KindNotFound,
			expectedReason:  CodeNoRows,
		},
		{
			name:            msgInvalidCreds,
			err:             &BackendError{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"},
			expectedMessage: MsgAuthenticationFailed,
			expectedKind:    KindAuth,
			expectedReason:  CodeInvalidCredentials,
		},
		{
			name:            msgEmailNotConfirmed,
			err:             &BackendError{Status: 400, Code: "email_not_confirmed", Message: "Email not confirmed"},
			expectedMessage: MsgEmailNotConfirmed,
			expectedKind:    KindAuth,
			expectedReason:  CodeEmailNotConfirmed,
		},
		{
			name:            msgSignupDisabled,
			err:             &BackendError{Status: 422, Code: "signup_disabled", Message: "Signups not allowed"},
			expectedMessage: MsgSignupDisabled,
			expectedKind:    KindAuth,
			expectedReason:  CodeSignupDisabled,
		},
		{
			name:            msgUnknownCode,
			err:             &BackendError{Status: 400, Code: "something_new", Message: "Something new happened"},
			expectedMessage: "Something new happened",
			expectedKind:    KindValidation,
			expectedReason:  "something_new",
		},
		{
			name:            msgUnknownNoMessage,
			err:             &pgconn.PgError{Code: "XX000"},
			expectedMessage: MsgServer,
			expectedKind:    KindUnknown,
			expectedReason:  "XX000",
		},
		{
			name:            msgNetworkFailure,
			err:             netErr,
			expectedMessage: MsgNetwork,
			expectedKind:    KindNetwork,
		},
		{
			name:            msgWrappedPgError,
			err:             fmt.Errorf("insert into users: %w", &pgconn.PgError{Code: "23502", Message: "null value"}),
			expectedMessage: MsgNotNullViolation,
			expectedKind:    KindValidation,
			expectedReason:  CodeNotNullViolation,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := Normalize(tc.err)

			require.NotNil(t, result)
			assert.Equal(t, tc.expectedMessage, result.Error())
			assert.Equal(t, tc.expectedKind, result.Kind)
			assert.Equal(t, tc.expectedReason, result.Reason)
			assert.ErrorIs(t, result, tc.err)
		})
	}
}

func TestNormalize_UnmappedPostgrestCodes(t *testing.T) {
	for _, code := range []string{"PGRST200", "PGRST103", "42P01"} {
		t.Run(code, func(t *testing.T) {
			err := Normalize(&pgconn.PgError{Code: code, Message: "relation problem"})

			assert.Equal(t, "relation problem", err.Message)
			assert.Equal(t, code, err.Reason)
			assert.Equal(t, KindUnknown, err.Kind)
		})
	}
}

func TestNormalize_NilError(t *testing.T) {
	result := Normalize(nil)

	require.NotNil(t, result)
	assert.Equal(t, MsgServer, result.Message)
}

func TestNormalize_AlreadyNormalized(t *testing.T) {
	first := Normalize(&pgconn.PgError{Code: "23505"})

	assert.Same(t, first, Normalize(first))
	assert.Same(t, first, Normalize(fmt.Errorf("again: %w", first)))
}

func TestNormalize_DoesNotMutateSentinels(t *testing.T) {
	cause := &pgconn.PgError{Code: "23505"}
	_ = Normalize(cause)

	assert.Nil(t, ErrDuplicateEmail.Err)
}

func TestNormalize_ContextCanceled(t *testing.T) {
	result := Normalize(context.Canceled)

	assert.ErrorIs(t, result, context.Canceled)
	assert.NotEqual(t, KindNetwork, result.Kind)
}

func TestNormalize_DeadlineIsNetwork(t *testing.T) {
	result := Normalize(context.DeadlineExceeded)

	assert.Equal(t, KindNetwork, result.Kind)
	assert.Equal(t, MsgNetwork, result.Message)
	assert.ErrorIs(t, result, context.DeadlineExceeded)
}

func TestErrorIs_MatchesByReason(t *testing.T) {
	err := fmt.Errorf("sign up: %w", Normalize(&pgconn.PgError{Code: "23505"}))

	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.NotErrorIs(t, err, ErrResourceNotFound)
}

func TestGetStatusAndMessage(t *testing.T) {
	assert.Equal(t, 404, GetStatus(ErrResourceNotFound))
	assert.Equal(t, 500, GetStatus(errors.New("boom")))
	assert.Equal(t, MsgResourceNotFound, GetMessage(ErrResourceNotFound))
	assert.Equal(t, "boom", GetMessage(errors.New("boom")))
}
