package service

import (
	"fmt"
	"sort"
	"strings"

	"arenapanel/internal/access"
	"arenapanel/internal/availability"
)

// ValidationError lists field-level problems with a form. Nothing was
// persisted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// fieldErrors collects validation messages; the first message per field wins.
type fieldErrors map[string]string

func (f fieldErrors) add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

type AuthorizationError struct {
	Denied *access.DeniedError
}

func (e *AuthorizationError) Error() string {
	return "not authorized: " + e.Denied.Error()
}

func (e *AuthorizationError) Unwrap() error {
	return e.Denied
}

// AvailabilityError reports that the requested slot cannot be taken.
type AvailabilityError struct {
	Rejection *availability.Rejection
}

func (e *AvailabilityError) Error() string {
	return "not available: " + e.Rejection.Error()
}

func (e *AvailabilityError) Unwrap() error {
	return e.Rejection
}

// PersistenceError wraps a storage failure. The caller's draft is intact and
// the operation may be retried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

type AuthErrorKind string

const (
	AuthInvalidCredentials AuthErrorKind = "invalid_credentials"
	AuthRateLimited        AuthErrorKind = "rate_limited"
	AuthEmailTaken         AuthErrorKind = "email_taken"
	AuthRegistrationClosed AuthErrorKind = "registration_closed"
	AuthInvalidToken       AuthErrorKind = "invalid_token"
	AuthSessionExpired     AuthErrorKind = "session_expired"
	AuthUnavailable        AuthErrorKind = "unavailable"
)

type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthInvalidCredentials:
		return "invalid email or password"
	case AuthRateLimited:
		return "too many login attempts, try again later"
	case AuthEmailTaken:
		return "email already registered"
	case AuthRegistrationClosed:
		return "registration is closed"
	case AuthInvalidToken:
		return "invalid token"
	case AuthSessionExpired:
		return "session expired"
	}
	if e.Err != nil {
		return "authentication unavailable: " + e.Err.Error()
	}
	return "authentication unavailable"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

type UploadErrorKind string

const (
	UploadEmpty           UploadErrorKind = "empty"
	UploadTooLarge        UploadErrorKind = "too_large"
	UploadUnsupportedType UploadErrorKind = "unsupported_type"
	UploadTransport       UploadErrorKind = "transport"
)

type UploadError struct {
	Kind UploadErrorKind
	Err  error
}

func (e *UploadError) Error() string {
	switch e.Kind {
	case UploadEmpty:
		return "file is empty"
	case UploadTooLarge:
		return "file exceeds the upload size limit"
	case UploadUnsupportedType:
		return "only JPEG, PNG, GIF and WebP images are accepted"
	}
	if e.Err != nil {
		return "upload failed: " + e.Err.Error()
	}
	return "upload failed"
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

func authorize(actor access.Session, action access.Action, isSelf bool) error {
	if err := access.Authorize(actor, action, isSelf); err != nil {
		denied, _ := err.(*access.DeniedError)
		return &AuthorizationError{Denied: denied}
	}
	return nil
}
