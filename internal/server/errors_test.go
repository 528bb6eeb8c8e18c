package server

import (
	"errors"
	"net/http"
	"testing"

	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	llmdomain "github.com/accordly/accordly/internal/llm/domain"
	organizationdomain "github.com/accordly/accordly/internal/organization/domain"
	orgchartdomain "github.com/accordly/accordly/internal/orgchart/domain"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"quota exceeded with reason", &quotadomain.ExceededError{Reason: quotadomain.ReasonTokenLimitExceeded}, http.StatusTooManyRequests, "quota_exceeded"},
		{"quota exceeded sentinel", quotadomain.ErrQuotaExceeded, http.StatusTooManyRequests, "quota_exceeded"},
		{"rate limited", llmdomain.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"contract expired", contractdomain.ErrExpired, http.StatusGone, "contract_expired"},
		{"slug conflict", organizationdomain.ErrSlugTaken, http.StatusConflict, "conflict"},
		{"contract missing", contractdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"token missing", contractdomain.ErrTokenNotFound, http.StatusNotFound, "not_found"},
		{"model missing", llmdomain.ErrModelNotFound, http.StatusNotFound, "not_found"},
		{"chart missing", orgchartdomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"usage record missing", usagedomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"provider failure", llmdomain.ErrProviderFailure, http.StatusBadGateway, "provider_failure"},
		{"invalid state", contractdomain.ErrInvalidState, http.StatusBadRequest, "validation_error"},
		{"unassigned fields", contractdomain.ErrUnassignedFields, http.StatusBadRequest, "validation_error"},
		{"already signed", contractdomain.ErrAlreadySigned, http.StatusBadRequest, "validation_error"},
		{"provider inactive", llmdomain.ErrProviderInactive, http.StatusBadRequest, "validation_error"},
		{"chart validation", &orgchartdomain.ValidationError{Detail: "self loop"}, http.StatusBadRequest, "validation_error"},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, payload := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.typ, payload.Type)
		})
	}
}

func TestMapErrorCarriesQuotaReason(t *testing.T) {
	status, payload := mapError(&quotadomain.ExceededError{Reason: quotadomain.ReasonCostLimitExceeded})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, quotadomain.ReasonCostLimitExceeded, payload.Reason)
}

func TestMapErrorWrappedErrors(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), contractdomain.ErrExpired)
	status, _ := mapError(wrapped)
	assert.Equal(t, http.StatusGone, status)
}

func TestMapErrorChartValidationDetail(t *testing.T) {
	_, payload := mapError(&orgchartdomain.ValidationError{Detail: "ownership percent out of range"})
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "ownership percent out of range", payload.Errors[0].Message)
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "internal", typ)
	assert.Equal(t, "internal_error", code)

	typ, code = classifyErrorForLog(llmdomain.ErrRateLimited)
	assert.Equal(t, "throttled", typ)
	assert.Equal(t, "rate_limited", code)

	typ, _ = classifyErrorForLog(contractdomain.ErrNotFound)
	assert.Equal(t, "client", typ)
}
