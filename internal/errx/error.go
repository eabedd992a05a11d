// Package errx is the error taxonomy surfaced to operators: every failure of
// an external collaborator is turned into an *Error carrying a kind, a stable
// code, an HTTP status and a human-readable message.
package errx

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind names the collaborator that failed.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindStore      Kind = "store"
	KindUpload     Kind = "upload"
	KindGeneration Kind = "generation"
	KindCart       Kind = "cart"
	KindRequest    Kind = "request"
)

// Code identifies a specific failure within a kind.
type Code string

const (
	CodeInvalidCredential   Code = "invalid-credential"
	CodeUnauthorizedDomain  Code = "unauthorized-domain"
	CodeNetwork             Code = "network-request-failed"
	CodeEmailInUse          Code = "email-already-in-use"
	CodeWeakPassword        Code = "weak-password"
	CodeOperationNotAllowed Code = "operation-not-allowed"
	CodeSessionExpired      Code = "session-expired"
	CodeForbiddenMode       Code = "forbidden-mode"
	CodePermissionDenied    Code = "permission-denied"
	CodeNotFound            Code = "not-found"
	CodeInvalidInput        Code = "invalid-input"
	CodeUnavailable         Code = "unavailable"
	CodeUploadFailed        Code = "upload-failed"
	CodeGenerationFailed    Code = "generation-failed"
	CodeInternal            Code = "internal"
)

// SystemErrorMessage is a user-facing fallback when internal errors occur.
const SystemErrorMessage = "internal server error"

// Error wraps an underlying error with a kind, code, HTTP status and safe message.
type Error struct {
	Kind    Kind
	Code    Code
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s/%s: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s/%s: %s: %v", e.Kind, e.Code, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and code, so the sentinels
// below work with errors.Is regardless of the wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// New creates a new Error with the provided information.
func New(kind Kind, code Code, status int, message string, err error) *Error {
	return &Error{Kind: kind, Code: code, Status: status, Message: message, Err: err}
}

// Wrap returns a copy of sentinel carrying err as its cause.
func Wrap(sentinel *Error, err error) *Error {
	cp := *sentinel
	cp.Err = err
	return &cp
}

// WithMessage returns a copy of sentinel with a more specific message.
func WithMessage(sentinel *Error, message string) *Error {
	cp := *sentinel
	cp.Message = message
	return &cp
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// StatusOf returns the HTTP status for err, 500 when err is not an *Error.
func StatusOf(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the operator-facing message for err.
func MessageOf(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	return SystemErrorMessage
}

// Auth errors.
var (
	ErrInvalidCredential   = New(KindAuth, CodeInvalidCredential, http.StatusUnauthorized, "incorrect e-mail or password, or the account does not exist", nil)
	ErrUnauthorizedDomain  = New(KindAuth, CodeUnauthorizedDomain, http.StatusForbidden, "this domain is not authorized for Google sign-in", nil)
	ErrAuthNetwork         = New(KindAuth, CodeNetwork, http.StatusBadGateway, "could not reach the identity service", nil)
	ErrEmailInUse          = New(KindAuth, CodeEmailInUse, http.StatusConflict, "this e-mail is already in use, please sign in instead", nil)
	ErrWeakPassword        = New(KindAuth, CodeWeakPassword, http.StatusBadRequest, "password must be at least 6 characters", nil)
	ErrInvalidEmail        = New(KindAuth, CodeInvalidInput, http.StatusBadRequest, "enter a valid e-mail address", nil)
	ErrOperationNotAllowed = New(KindAuth, CodeOperationNotAllowed, http.StatusForbidden, "this sign-in method is not enabled", nil)
	ErrSessionExpired      = New(KindAuth, CodeSessionExpired, http.StatusUnauthorized, "session expired, please sign in again", nil)
	ErrForbiddenMode       = New(KindAuth, CodeForbiddenMode, http.StatusForbidden, "please sign in to place orders", nil)
	ErrNotAdmin            = New(KindAuth, CodePermissionDenied, http.StatusForbidden, "this account may not manage the catalog", nil)
	ErrNotVerified         = New(KindAuth, CodeInvalidCredential, http.StatusForbidden, "confirm your credentials to manage the catalog", nil)
	ErrAuthInternal        = New(KindAuth, CodeInternal, http.StatusInternalServerError, SystemErrorMessage, nil)
)

// Store errors.
var (
	ErrStorePermission  = New(KindStore, CodePermissionDenied, http.StatusForbidden, "insufficient permission (permission denied)", nil)
	ErrStoreNetwork     = New(KindStore, CodeNetwork, http.StatusBadGateway, "could not reach the database", nil)
	ErrStoreNotFound    = New(KindStore, CodeNotFound, http.StatusNotFound, "record not found", nil)
	ErrStoreInvalid     = New(KindStore, CodeInvalidInput, http.StatusBadRequest, "invalid record", nil)
	ErrStoreUnavailable = New(KindStore, CodeInternal, http.StatusInternalServerError, "failed to load data", nil)
)

// Upload and generation errors.
var (
	ErrUpload               = New(KindUpload, CodeUploadFailed, http.StatusBadGateway, "image upload failed", nil)
	ErrUploadInvalid        = New(KindUpload, CodeInvalidInput, http.StatusBadRequest, "only image files can be uploaded", nil)
	ErrGeneration           = New(KindGeneration, CodeGenerationFailed, http.StatusBadGateway, "could not generate a description", nil)
	ErrGenerationDisabled   = New(KindGeneration, CodeUnavailable, http.StatusServiceUnavailable, "description suggestions are not configured", nil)
	ErrGenerationNeedsTitle = New(KindGeneration, CodeInvalidInput, http.StatusBadRequest, "enter a product name first", nil)
)

// Request and cart errors.
var (
	ErrBadRequest = New(KindRequest, CodeInvalidInput, http.StatusBadRequest, "invalid request", nil)
	ErrCartEmpty  = New(KindCart, CodeInvalidInput, http.StatusBadRequest, "the cart is empty", nil)
)
