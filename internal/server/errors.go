package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gatepassdomain "github.com/sentrilane/visitgate/internal/gatepass/domain"
	identitydomain "github.com/sentrilane/visitgate/internal/identity/domain"
	inoutdomain "github.com/sentrilane/visitgate/internal/inout/domain"
	invitedomain "github.com/sentrilane/visitgate/internal/invite/domain"
	notifdomain "github.com/sentrilane/visitgate/internal/notification/domain"
	prebookingdomain "github.com/sentrilane/visitgate/internal/prebooking/domain"
	dashboarddomain "github.com/sentrilane/visitgate/internal/dashboard/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: "invalid value",
				},
			},
		}
	}

	// Illegal state transitions answer 400 with the violated rule in the
	// message so gate operators see why the scan bounced.
	if isStateConflictError(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "state_conflict",
			Message: stateConflictMessage(err),
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, prebookingdomain.ErrUnauthenticated),
		errors.Is(err, inoutdomain.ErrUnauthenticated),
		errors.Is(err, invitedomain.ErrUnauthenticated),
		errors.Is(err, notifdomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, prebookingdomain.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, prebookingdomain.ErrInvalidVisitorName),
		errors.Is(err, prebookingdomain.ErrInvalidHost),
		errors.Is(err, prebookingdomain.ErrInvalidVisitDate),
		errors.Is(err, prebookingdomain.ErrInvalidAction),
		errors.Is(err, prebookingdomain.ErrInvalidID),
		errors.Is(err, prebookingdomain.ErrInvalidStatus),
		errors.Is(err, gatepassdomain.ErrInvalidID),
		errors.Is(err, gatepassdomain.ErrInvalidCode),
		errors.Is(err, inoutdomain.ErrInvalidID),
		errors.Is(err, inoutdomain.ErrInvalidAction),
		errors.Is(err, invitedomain.ErrInvalidEmail),
		errors.Is(err, invitedomain.ErrInvalidDate),
		errors.Is(err, invitedomain.ErrInvalidToken),
		errors.Is(err, notifdomain.ErrInvalidType),
		errors.Is(err, notifdomain.ErrInvalidTitle),
		errors.Is(err, notifdomain.ErrInvalidTarget),
		errors.Is(err, notifdomain.ErrInvalidID),
		errors.Is(err, identitydomain.ErrInvalidID),
		errors.Is(err, dashboarddomain.ErrInvalidID):
		return true
	default:
		return false
	}
}

func isStateConflictError(err error) bool {
	switch {
	case errors.Is(err, prebookingdomain.ErrAlreadyDecided),
		errors.Is(err, gatepassdomain.ErrNotApproved),
		errors.Is(err, inoutdomain.ErrAlreadyCheckedIn),
		errors.Is(err, inoutdomain.ErrCheckoutWithoutCheckin),
		errors.Is(err, inoutdomain.ErrPassExhausted),
		errors.Is(err, inoutdomain.ErrGateBusy),
		errors.Is(err, invitedomain.ErrExpired),
		errors.Is(err, invitedomain.ErrAlreadyUsed):
		return true
	default:
		return false
	}
}

func stateConflictMessage(err error) string {
	switch {
	case errors.Is(err, prebookingdomain.ErrAlreadyDecided):
		return "booking already decided"
	case errors.Is(err, gatepassdomain.ErrNotApproved):
		return "booking is not approved"
	case errors.Is(err, inoutdomain.ErrAlreadyCheckedIn):
		return "visitor is already inside"
	case errors.Is(err, inoutdomain.ErrCheckoutWithoutCheckin):
		return "cannot check out without a prior check-in"
	case errors.Is(err, inoutdomain.ErrPassExhausted):
		return "pass is exhausted"
	case errors.Is(err, inoutdomain.ErrGateBusy):
		return "gate is busy, retry"
	case errors.Is(err, invitedomain.ErrExpired):
		return "invite has expired"
	case errors.Is(err, invitedomain.ErrAlreadyUsed):
		return "invite was already used"
	default:
		return "state conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, prebookingdomain.ErrNotFound),
		errors.Is(err, gatepassdomain.ErrNotFound),
		errors.Is(err, inoutdomain.ErrNotFound),
		errors.Is(err, invitedomain.ErrNotFound),
		errors.Is(err, notifdomain.ErrNotFound),
		errors.Is(err, identitydomain.ErrNotFound),
		errors.Is(err, dashboarddomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(code string) string {
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

// classifyErrorForLog buckets handler errors for the request log.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "dependency_failure", payload.Type
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "authorization", payload.Type
	default:
		return payload.Type, shortErrorCode(err)
	}
}

func shortErrorCode(err error) string {
	if err == nil {
		return ""
	}
	code := err.Error()
	if len(code) > 64 {
		code = code[:64]
	}
	return code
}
