package domain

import (
	"context"
	"errors"
)

type Service interface {
	GetChart(ctx context.Context) (*ChartView, error)
	PutChart(ctx context.Context, req PutChartRequest) (*ChartView, error)
	ListEntities(ctx context.Context) ([]Entity, error)
}

// PutChartRequest replaces the whole chart. Entity refs inside
// connections use the request-local keys, not database ids.
type PutChartRequest struct {
	Name        string            `json:"name"`
	Entities    []EntityInput     `json:"entities"`
	Connections []ConnectionInput `json:"connections"`
}

type EntityInput struct {
	Key        string         `json:"key"`
	Kind       string         `json:"kind"`
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type ConnectionInput struct {
	From             string   `json:"from"`
	To               string   `json:"to"`
	Relation         string   `json:"relation"`
	OwnershipPercent *float64 `json:"ownership_percent,omitempty"`
}

// ChartView is the full materialized chart.
type ChartView struct {
	Chart       Chart        `json:"chart"`
	Entities    []Entity     `json:"entities"`
	Connections []Connection `json:"connections"`
}

var (
	ErrNotFound   = errors.New("org_chart_not_found")
	ErrInvalidOrg = errors.New("invalid_organization")
)

// ValidationError reports one rejected part of a PutChart request.
type ValidationError struct {
	Detail string
}

func (e *ValidationError) Error() string { return "org_chart_invalid: " + e.Detail }
