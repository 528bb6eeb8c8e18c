package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context) ([]Response, error)
	GetByID(ctx context.Context, id string) (*Response, error)
	GetBySlug(ctx context.Context, slug string) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
}

type CreateRequest struct {
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	SupportEmail string         `json:"support_email"`
	Metadata     map[string]any `json:"metadata"`
}

type UpdateRequest struct {
	ID           string         `json:"id"`
	Name         *string        `json:"name,omitempty"`
	SupportEmail *string        `json:"support_email,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type Response struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Slug         string         `json:"slug"`
	SupportEmail string         `json:"support_email"`
	IsDefault    bool           `json:"is_default"`
	Metadata     map[string]any `json:"metadata"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

var (
	ErrInvalidName = errors.New("invalid_name")
	ErrInvalidSlug = errors.New("invalid_slug")
	ErrSlugTaken   = errors.New("slug_taken")
	ErrNotFound    = errors.New("not_found")
	ErrInvalidID   = errors.New("invalid_id")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
