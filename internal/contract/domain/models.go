// Package domain contains the contract signing state machine's models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Contract statuses.
const (
	StatusDraft     = "draft"
	StatusSent      = "sent"
	StatusViewed    = "viewed"
	StatusSigned    = "signed"
	StatusCompleted = "completed"
	StatusExpired   = "expired"
	StatusDeclined  = "declined"
	StatusCancelled = "cancelled"
)

// Contract is the aggregate root. Status transitions are owned by the
// service; repositories never flip status on their own.
type Contract struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;index:idx_contracts_org" json:"org_id"`

	ContractNumber string `gorm:"column:contract_number;type:text;not null;uniqueIndex:ux_contracts_number" json:"contract_number"`
	Title          string `gorm:"type:text;not null" json:"title"`
	Status         string `gorm:"type:text;not null;default:draft;index:idx_contracts_status" json:"status"`

	Content      string `gorm:"type:text" json:"content"`
	FinalContent string `gorm:"column:final_content;type:text" json:"final_content"`

	SentAt      *time.Time `gorm:"column:sent_at" json:"sent_at"`
	ExpiresAt   *time.Time `gorm:"column:expires_at" json:"expires_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at"`

	CreatedBy *snowflake.ID     `gorm:"column:created_by" json:"created_by"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Contract) TableName() string { return "contracts" }

// Terminal reports whether no further transitions are possible.
func (c Contract) Terminal() bool {
	switch c.Status {
	case StatusCompleted, StatusExpired, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// Party types.
const (
	PartyInternal = "internal"
	PartyExternal = "external"
)

// Party is one signer on a contract.
type Party struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID snowflake.ID `gorm:"column:contract_id;not null;index:idx_contract_parties_contract" json:"contract_id"`

	Type  string `gorm:"type:text;not null" json:"type"`
	Name  string `gorm:"type:text;not null" json:"name"`
	Email string `gorm:"type:text;not null" json:"email"`
	Role  string `gorm:"type:text" json:"role"`

	SignedAt  *time.Time `gorm:"column:signed_at" json:"signed_at"`
	SigningIP string     `gorm:"column:signing_ip;type:text" json:"signing_ip"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Party) TableName() string { return "contract_parties" }

// Field types.
const (
	FieldSignature = "signature"
	FieldInitial   = "initial"
	FieldDate      = "date"
	FieldText      = "text"
	FieldCheckbox  = "checkbox"
)

// Field is one fillable slot on a contract page. signed_data is
// write-once: a non-null value is never overwritten.
type Field struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID snowflake.ID `gorm:"column:contract_id;not null;index:idx_contract_fields_contract" json:"contract_id"`

	Type     string `gorm:"type:text;not null" json:"type"`
	Label    string `gorm:"type:text" json:"label"`
	Required bool   `gorm:"not null;default:true" json:"required"`

	Page      int     `gorm:"not null;default:1" json:"page"`
	PositionX float64 `gorm:"column:position_x;not null;default:0" json:"position_x"`
	PositionY float64 `gorm:"column:position_y;not null;default:0" json:"position_y"`
	Width     float64 `gorm:"not null;default:0" json:"width"`
	Height    float64 `gorm:"not null;default:0" json:"height"`

	PartyID *snowflake.ID `gorm:"column:party_id" json:"party_id"`

	SigningToken string     `gorm:"column:signing_token;type:text;index:idx_contract_fields_token" json:"-"`
	SignedData   *string    `gorm:"column:signed_data;type:text" json:"signed_data"`
	SignedAt     *time.Time `gorm:"column:signed_at" json:"signed_at"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Field) TableName() string { return "contract_fields" }

// Signed reports whether the field holds signed data.
func (f Field) Signed() bool { return f.SignedData != nil }

// Event types mirror contract statuses plus creation.
const (
	EventCreated   = "created"
	EventSent      = "sent"
	EventViewed    = "viewed"
	EventSigned    = "signed"
	EventCompleted = "completed"
	EventExpired   = "expired"
	EventDeclined  = "declined"
	EventCancelled = "cancelled"
)

// Event is one append-only audit row, written at every transition.
type Event struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ContractID snowflake.ID `gorm:"column:contract_id;not null;index:idx_contract_events_contract" json:"contract_id"`

	Type    string `gorm:"type:text;not null" json:"type"`
	Actor   string `gorm:"type:text" json:"actor"`
	ActorIP string `gorm:"column:actor_ip;type:text" json:"actor_ip"`

	Metadata datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "contract_events" }

// ValidPartyType reports whether t names a known party type.
func ValidPartyType(t string) bool {
	return t == PartyInternal || t == PartyExternal
}

// ValidFieldType reports whether t names a known field type.
func ValidFieldType(t string) bool {
	switch t {
	case FieldSignature, FieldInitial, FieldDate, FieldText, FieldCheckbox:
		return true
	}
	return false
}
