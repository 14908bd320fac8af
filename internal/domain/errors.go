package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Error is what every layer below the transport returns. Code is part of the
// API contract; Message and Meta are shown to callers, Cause never is.
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

// WithMeta merges meta into err, overwriting keys it already has.
func WithMeta(err *Error, meta map[string]string) *Error {
	if err.Meta == nil {
		err.Meta = make(map[string]string, len(meta))
	}
	for k, v := range meta {
		err.Meta[k] = v
	}
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// KindOf returns the kind of a domain error, or KindInternal for anything else.
func KindOf(err error) ErrKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// IsRetryable reports whether the caller may retry the same call.
// Only store outages qualify; every other failure is terminal for that call.
func IsRetryable(err error) bool {
	return Is(err, CodeStoreUnavailable)
}

const (
	CodeMissingField       = "missing_field"
	CodeInvalidField       = "invalid_field"
	CodeWeakPassword       = "weak_password"
	CodeEmailAlreadyExists = "email_already_exists"
	CodeAccountNotFound    = "account_not_found"
	CodeOTPNotFound        = "otp_not_found"
	CodeAccountUnverified  = "account_unverified"
	CodeAlreadyVerified    = "already_verified"
	CodeInvalidCredentials = "invalid_credentials"
	CodeOTPMismatch        = "otp_mismatch"
	CodeOTPExpired         = "otp_expired"
	CodeTokenMissing       = "token_missing"
	CodeTokenExpired       = "token_expired"
	CodeTokenInvalid       = "token_invalid"
	CodeTokenBlacklisted   = "token_blacklisted"
	CodeForbidden          = "forbidden"
	CodeHashFailed         = "hash_failed"
	CodeStoreUnavailable   = "store_unavailable"
	CodeInvalidJSON        = "invalid_json"
	CodeTokenSignFailed    = "token_sign_failed"
	CodeRandomFailed       = "random_failed"
	CodeInternal           = "internal_error"
)

// Validation errors (400)

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

func ErrMissingField(field string) *Error {
	return WithMeta(New(KindValidation, CodeMissingField, "missing required field"), map[string]string{
		"field": field,
	})
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, CodeInvalidField, "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrWeakPassword(reason string) *Error {
	return WithMeta(New(KindValidation, CodeWeakPassword, "password does not meet requirements"), map[string]string{
		"reason": reason,
	})
}

// Auth errors (401)

// ErrInvalidCredentials is returned for both unknown email and wrong password.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid email or password")
}

func ErrOTPMismatch() *Error {
	return New(KindAuth, CodeOTPMismatch, "verification code does not match")
}

func ErrOTPExpired() *Error {
	return New(KindAuth, CodeOTPExpired, "verification code is expired")
}

func ErrTokenMissing() *Error {
	return New(KindAuth, CodeTokenMissing, "no token provided")
}

func ErrTokenInvalid() *Error {
	return New(KindAuth, CodeTokenInvalid, "invalid token")
}

func ErrTokenExpired() *Error {
	return New(KindAuth, CodeTokenExpired, "token is expired")
}

func ErrTokenBlacklisted() *Error {
	return New(KindAuth, CodeTokenBlacklisted, "token has been revoked")
}

// Forbidden (403)

func ErrForbidden() *Error {
	return New(KindForbidden, CodeForbidden, "forbidden")
}

func ErrAccountUnverified() *Error {
	return New(KindForbidden, CodeAccountUnverified, "account is not verified")
}

// Not Found (404)

func ErrAccountNotFound() *Error {
	return New(KindNotFound, CodeAccountNotFound, "account not found")
}

func ErrOTPNotFound() *Error {
	return New(KindNotFound, CodeOTPNotFound, "no pending verification code")
}

// Conflict (409)

func ErrEmailAlreadyExists() *Error {
	return New(KindConflict, CodeEmailAlreadyExists, "email already registered")
}

func ErrAlreadyVerified() *Error {
	return New(KindConflict, CodeAlreadyVerified, "account already verified")
}

// Store and internal failures (5xx)

// ErrStoreUnavailable covers persistence timeouts and outages. It is the only retryable error.
func ErrStoreUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeStoreUnavailable, "store unavailable", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrTokenSignFailed(cause error) *Error {
	return Wrap(KindInternal, CodeTokenSignFailed, "token signing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRandomFailed, "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
