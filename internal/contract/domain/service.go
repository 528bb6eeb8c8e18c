package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Contract, error)
	Get(ctx context.Context, contractID string) (*Detail, error)
	List(ctx context.Context, req ListRequest) ([]Contract, error)
	Update(ctx context.Context, contractID string, req UpdateRequest) (*Contract, error)
	AddParty(ctx context.Context, contractID string, req AddPartyRequest) (*Party, error)
	AddField(ctx context.Context, contractID string, req AddFieldRequest) (*Field, error)
	AssignField(ctx context.Context, contractID, fieldID, partyID string) (*Field, error)

	Send(ctx context.Context, contractID string) (*Contract, error)
	SignField(ctx context.Context, token, signedData, actorIP string) (*SignResult, error)
	MarkViewed(ctx context.Context, token string) (*SigningView, error)
	Decline(ctx context.Context, token, reason, actorIP string) error
	Cancel(ctx context.Context, contractID string) error

	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

type CreateRequest struct {
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	CreatedBy string         `json:"created_by,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

type UpdateRequest struct {
	Title    *string        `json:"title"`
	Content  *string        `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

type ListRequest struct {
	Status string `form:"status"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type AddPartyRequest struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

type AddFieldRequest struct {
	Type      string  `json:"type"`
	Label     string  `json:"label,omitempty"`
	Required  *bool   `json:"required,omitempty"`
	Page      int     `json:"page,omitempty"`
	PositionX float64 `json:"position_x,omitempty"`
	PositionY float64 `json:"position_y,omitempty"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
	PartyID   string  `json:"party_id,omitempty"`
}

// Detail is a contract with its sub-entities.
type Detail struct {
	Contract Contract `json:"contract"`
	Parties  []Party  `json:"parties"`
	Fields   []Field  `json:"fields"`
	Events   []Event  `json:"events"`
}

// SignResult reports the state after one signature landed.
type SignResult struct {
	Field     Field  `json:"field"`
	Status    string `json:"contract_status"`
	Completed bool   `json:"completed"`
}

// SigningView is what the public signing page sees for one token.
type SigningView struct {
	ContractTitle  string     `json:"contract_title"`
	ContractStatus string     `json:"contract_status"`
	ExpiresAt      *time.Time `json:"expires_at"`
	Field          Field      `json:"field"`
	PartyName      string     `json:"party_name,omitempty"`
}

var (
	ErrNotFound         = errors.New("contract_not_found")
	ErrPartyNotFound    = errors.New("party_not_found")
	ErrFieldNotFound    = errors.New("field_not_found")
	ErrTokenNotFound    = errors.New("signing_token_not_found")
	ErrInvalidState     = errors.New("invalid_state")
	ErrUnassignedFields = errors.New("unassigned_fields")
	ErrAlreadySigned    = errors.New("already_signed")
	ErrExpired          = errors.New("contract_expired")
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidOrg       = errors.New("invalid_organization")
)

func ParseID(value string) (snowflake.ID, error) {
	return snowflake.ParseString(value)
}
