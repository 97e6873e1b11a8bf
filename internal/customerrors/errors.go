package customerrors

import (
	"context"
	"errors"
	"net"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type Kind string

const (
	KindNetwork    Kind = "network"
	KindAuth       Kind = "auth"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindUnknown    Kind = "unknown"
)

// Error is the single normalized shape every facade call fails with.
// Error() is the localized, user-visible message.
type Error struct {
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by reason code, or by message when neither has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Reason != "" || t.Reason != "" {
		return e.Reason == t.Reason
	}
	return e.Message == t.Message
}

func (e *Error) wrap(cause error) *Error {
	c := *e
	c.Err = cause
	return &c
}

// Network is the normalized error for a request that got no response.
func Network(cause error) *Error {
	return ErrNetwork.wrap(cause)
}

// BackendError is a non-database failure reported by the backend over HTTP
// (auth and storage endpoints).
type BackendError struct {
	Status  int
	Code    string
	Message string
}

func (e *BackendError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

var (
	ErrResourceNotFound     = &Error{Code: 404, Reason: CodeNoRows, Message: MsgResourceNotFound, Kind: KindNotFound}
	ErrDuplicateEmail       = &Error{Code: 409, Reason: CodeUniqueViolation, Message: MsgDuplicateEmail, Kind: KindValidation}
	ErrAuthenticationFailed = &Error{Code: 401, Reason: CodeInvalidCredentials, Message: MsgAuthenticationFailed, Kind: KindAuth}
	ErrEmailNotConfirmed    = &Error{Code: 401, Reason: CodeEmailNotConfirmed, Message: MsgEmailNotConfirmed, Kind: KindAuth}
	ErrSignupDisabled       = &Error{Code: 403, Reason: CodeSignupDisabled, Message: MsgSignupDisabled, Kind: KindAuth}
	ErrForeignKeyViolation  = &Error{Code: 409, Reason: CodeForeignKeyViolation, Message: MsgForeignKeyViolation, Kind: KindValidation}
	ErrCheckViolation       = &Error{Code: 400, Reason: CodeCheckViolation, Message: MsgCheckViolation, Kind: KindValidation}
	ErrNotNullViolation     = &Error{Code: 400, Reason: CodeNotNullViolation, Message: MsgNotNullViolation, Kind: KindValidation}
	ErrRLSPolicyViolation   = &Error{Code: 403, Reason: CodeInsufficientPrivilege, Message: MsgRLSPolicyViolation, Kind: KindAuth}
	ErrWeakPassword         = &Error{Code: 422, Reason: CodeWeakPassword, Message: MsgWeakPassword, Kind: KindValidation}
	ErrEmailRateLimit       = &Error{Code: 429, Reason: CodeEmailRateLimit, Message: MsgEmailRateLimitExceeded, Kind: KindValidation}
	ErrEmailRegistered      = &Error{Code: 422, Reason: CodeEmailExists, Message: MsgEmailAlreadyRegistered, Kind: KindValidation}
	ErrDuplicateKey         = &Error{Code: 409, Reason: CodeStorageDuplicate, Message: MsgDuplicateKey, Kind: KindValidation}
	ErrFileNotFound         = &Error{Code: 404, Reason: CodeStorageNotFound, Message: MsgStorageFileNotFound, Kind: KindNotFound}

	ErrNetwork      = &Error{Code: 503, Message: MsgNetwork, Kind: KindNetwork}
	ErrUnauthorized = &Error{Code: 401, Message: MsgUnauthorized, Kind: KindAuth}
	ErrBadRequest   = &Error{Code: 400, Message: MsgValidation, Kind: KindValidation}
	ErrServer       = &Error{Code: 500, Message: MsgServer, Kind: KindUnknown}
)

var codeTable = map[string]*Error{
	CodeNoRows:                ErrResourceNotFound,
	CodeUniqueViolation:       ErrDuplicateEmail,
	CodeInvalidCredentials:    ErrAuthenticationFailed,
	CodeEmailNotConfirmed:     ErrEmailNotConfirmed,
	CodeSignupDisabled:        ErrSignupDisabled,
	CodeForeignKeyViolation:   ErrForeignKeyViolation,
	CodeCheckViolation:        ErrCheckViolation,
	CodeNotNullViolation:      ErrNotNullViolation,
	CodeInsufficientPrivilege: ErrRLSPolicyViolation,
	CodeWeakPassword:          ErrWeakPassword,
	CodeEmailRateLimit:        ErrEmailRateLimit,
	CodeEmailExists:           ErrEmailRegistered,
	CodeUserAlreadyExists:     ErrEmailRegistered,
	CodeStorageDuplicate:      ErrDuplicateKey,
	CodeStorageNotFound:       ErrFileNotFound,
}

// Normalize maps any failure to an *Error. It never returns nil: a nil input
// yields the generic server error.
func Normalize(err error) *Error {
	if err == nil {
		return ErrServer.wrap(nil)
	}

	var normalized *Error
	if errors.As(err, &normalized) {
		return normalized
	}

	if errors.Is(err, context.Canceled) {
		return &Error{Code: 499, Message: err.Error(), Kind: KindUnknown, Err: err}
	}

	code, message, status := inspect(err)
	if known, ok := codeTable[code]; ok {
		return known.wrap(err)
	}

	if isNetwork(err) {
		return ErrNetwork.wrap(err)
	}

	if message == "" {
		e := ErrServer.wrap(err)
		e.Reason = code
		return e
	}

	return &Error{
		Code:    statusOr(status, 500),
		Reason:  code,
		Message: message,
		Kind:    kindFromStatus(status),
		Err:     err,
	}
}

func inspect(err error) (code, message string, status int) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, 0
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return CodeNoRows, err.Error(), 404
	}

	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Code, backendErr.Message, backendErr.Status
	}

	if errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, jwt.ErrSignatureInvalid) || errors.Is(err, jwt.ErrTokenMalformed) {
		return "", err.Error(), 401
	}

	return "", err.Error(), 0
}

func isNetwork(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

func kindFromStatus(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindAuth
	case status == 404:
		return KindNotFound
	case status >= 400 && status < 500:
		return KindValidation
	default:
		return KindUnknown
	}
}

func statusOr(status, fallback int) int {
	if status == 0 {
		return fallback
	}
	return status
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func GetStatus(err error) int {
	var customErr *Error
	if errors.As(err, &customErr) {
		return customErr.Code
	}

	switch {
	case errors.Is(err, jwt.ErrSignatureInvalid), errors.Is(err, jwt.ErrTokenExpired):
		return 401

	default:
		return 500
	}
}

func GetMessage(err error) string {
	var customErr *Error
	if errors.As(err, &customErr) {
		return customErr.Message
	}
	return err.Error()
}
