package server

import (
	"errors"
	"net/http"
	"strings"

	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	llmdomain "github.com/accordly/accordly/internal/llm/domain"
	organizationdomain "github.com/accordly/accordly/internal/organization/domain"
	orgchartdomain "github.com/accordly/accordly/internal/orgchart/domain"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/gin-gonic/gin"
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
	Reason  string            `json:"reason,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
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
	return newValidationError("body", "invalid_request", "invalid request body")
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

	var chartErr *orgchartdomain.ValidationError
	if errors.As(err, &chartErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: "chart", Code: "org_chart_invalid", Message: chartErr.Detail},
			},
		}
	}

	var quotaErr *quotadomain.ExceededError
	if errors.As(err, &quotaErr) {
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_exceeded",
			Message: "quota exceeded",
			Reason:  quotaErr.Reason,
		}
	}

	switch {
	case errors.Is(err, quotadomain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "quota_exceeded",
			Message: "quota exceeded",
		}
	case errors.Is(err, llmdomain.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "rate limit exceeded",
		}
	case errors.Is(err, contractdomain.ErrExpired):
		return http.StatusGone, errorPayload{
			Type:    "contract_expired",
			Message: "contract expired",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, organizationdomain.ErrSlugTaken):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, llmdomain.ErrProviderFailure):
		return http.StatusBadGateway, errorPayload{
			Type:    "provider_failure",
			Message: "upstream provider failure",
		}
	case isValidationError(err):
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
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
		errors.Is(err, contractdomain.ErrInvalidState),
		errors.Is(err, contractdomain.ErrUnassignedFields),
		errors.Is(err, contractdomain.ErrAlreadySigned),
		errors.Is(err, contractdomain.ErrInvalidRequest),
		errors.Is(err, contractdomain.ErrInvalidID),
		errors.Is(err, contractdomain.ErrInvalidOrg),
		errors.Is(err, organizationdomain.ErrInvalidName),
		errors.Is(err, organizationdomain.ErrInvalidSlug),
		errors.Is(err, organizationdomain.ErrInvalidID),
		errors.Is(err, quotadomain.ErrInvalidRequest),
		errors.Is(err, usagedomain.ErrInvalidFeature),
		errors.Is(err, usagedomain.ErrInvalidStatus),
		errors.Is(err, usagedomain.ErrInvalidOrg),
		errors.Is(err, usagedomain.ErrInvalidID),
		errors.Is(err, llmdomain.ErrInvalidPrompt),
		errors.Is(err, llmdomain.ErrInvalidModel),
		errors.Is(err, llmdomain.ErrInvalidOrg),
		errors.Is(err, llmdomain.ErrProviderInactive),
		errors.Is(err, orgchartdomain.ErrInvalidOrg):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, organizationdomain.ErrNotFound),
		errors.Is(err, quotadomain.ErrNotFound),
		errors.Is(err, usagedomain.ErrNotFound),
		errors.Is(err, contractdomain.ErrNotFound),
		errors.Is(err, contractdomain.ErrPartyNotFound),
		errors.Is(err, contractdomain.ErrFieldNotFound),
		errors.Is(err, contractdomain.ErrTokenNotFound),
		errors.Is(err, llmdomain.ErrModelNotFound),
		errors.Is(err, llmdomain.ErrProviderNotFound),
		errors.Is(err, orgchartdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog maps an error to (type, code) for request logs
// without leaking internals into user-facing payloads.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal", payload.Type
	case status == http.StatusTooManyRequests:
		return "throttled", payload.Type
	default:
		return "client", payload.Type
	}
}
