package api

import (
	"context"
	"errors"
	"net/http"

	"arenapanel/internal/access"
	"arenapanel/internal/availability"
	"arenapanel/internal/database"
	"arenapanel/internal/models"
	"arenapanel/internal/service"
)

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Error    string              `json:"error"`
	Code     string              `json:"code,omitempty"`
	Fields   map[string]string   `json:"fields,omitempty"`
	Conflict *models.Booking     `json:"conflict,omitempty"`
	Hours    *models.TimeRange   `json:"operating_hours,omitempty"`
	Draft    *service.Submission `json:"submission,omitempty"`
}

// describeError maps a service error to an HTTP status and response body.
// Internal failures get a generic message.
func describeError(err error) (int, errorBody) {
	var (
		validation *service.ValidationError
		invalid    *models.InvalidRangeError
		authz      *service.AuthorizationError
		authErr    *service.AuthError
		avail      *service.AvailabilityError
		upload     *service.UploadError
		persist    *service.PersistenceError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorBody{Error: "validation failed", Code: "validation", Fields: validation.Fields}
	case errors.As(err, &invalid):
		return http.StatusBadRequest, errorBody{Error: invalid.Error(), Code: "validation"}
	case errors.As(err, &authz):
		if authz.Denied != nil && authz.Denied.Reason == access.ReasonUnauthenticated {
			return http.StatusUnauthorized, errorBody{Error: authz.Denied.Error(), Code: string(authz.Denied.Reason)}
		}
		code := ""
		if authz.Denied != nil {
			code = string(authz.Denied.Reason)
		}
		return http.StatusForbidden, errorBody{Error: authz.Error(), Code: code}
	case errors.As(err, &authErr):
		return authStatus(authErr.Kind), errorBody{Error: authErr.Error(), Code: string(authErr.Kind)}
	case errors.As(err, &avail):
		body := errorBody{Error: avail.Error(), Code: string(avail.Rejection.Reason)}
		switch avail.Rejection.Reason {
		case availability.ReasonOverlap:
			body.Conflict = avail.Rejection.Conflict
		case availability.ReasonOutsideOperatingHours:
			hours := avail.Rejection.Hours
			body.Hours = &hours
		}
		return http.StatusConflict, body
	case errors.As(err, &upload):
		return uploadStatus(upload.Kind), errorBody{Error: upload.Error(), Code: string(upload.Kind)}
	case errors.Is(err, database.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: "not found", Code: "not_found"}
	case errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict, errorBody{Error: "record was changed by someone else, reload and retry", Code: "stale_version"}
	case errors.Is(err, database.ErrSpaceInUse):
		return http.StatusConflict, errorBody{Error: "space still has pending or confirmed bookings", Code: "space_in_use"}
	case errors.Is(err, database.ErrDuplicateEmail):
		return http.StatusConflict, errorBody{Error: "email already registered", Code: "email_taken"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorBody{Error: "request cancelled", Code: "cancelled"}
	case errors.As(err, &persist):
		return http.StatusServiceUnavailable, errorBody{Error: "storage unavailable, try again", Code: "persistence"}
	}
	return http.StatusInternalServerError, errorBody{Error: "internal error"}
}

func authStatus(kind service.AuthErrorKind) int {
	switch kind {
	case service.AuthRateLimited:
		return http.StatusTooManyRequests
	case service.AuthEmailTaken:
		return http.StatusConflict
	case service.AuthRegistrationClosed:
		return http.StatusForbidden
	case service.AuthUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnauthorized
	}
}

func uploadStatus(kind service.UploadErrorKind) int {
	switch kind {
	case service.UploadEmpty:
		return http.StatusBadRequest
	case service.UploadTooLarge:
		return http.StatusRequestEntityTooLarge
	case service.UploadUnsupportedType:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadGateway
	}
}
