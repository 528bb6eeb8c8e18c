// Package domain contains the typed organization chart.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Chart is the per-organization container, one per org. Version bumps
// on every replace.
type Chart struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;uniqueIndex:ux_org_charts_org" json:"org_id"`

	Name    string `gorm:"type:text;not null" json:"name"`
	Version int64  `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Chart) TableName() string { return "org_charts" }

// Entity kinds.
const (
	KindCompany = "company"
	KindPerson  = "person"
	KindTrust   = "trust"
	KindGroup   = "group"
)

// Entity is one node in a chart. Attributes are kind-specific and
// validated at the boundary.
type Entity struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	ChartID snowflake.ID `gorm:"column:chart_id;not null;index:idx_org_chart_entities_chart" json:"chart_id"`

	Kind string `gorm:"type:text;not null" json:"kind"`
	Name string `gorm:"type:text;not null" json:"name"`

	Attributes datatypes.JSONMap `gorm:"type:jsonb" json:"attributes"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Entity) TableName() string { return "org_chart_entities" }

// Connection relations.
const (
	RelationOwnership  = "ownership"
	RelationControl    = "control"
	RelationEmployment = "employment"
	RelationTrustee    = "trustee"
)

// Connection is one directed edge between two entities of one chart.
// OwnershipPercent is set only for ownership edges, in (0,100].
type Connection struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	ChartID snowflake.ID `gorm:"column:chart_id;not null;index:idx_org_chart_connections_chart" json:"chart_id"`

	FromEntityID snowflake.ID `gorm:"column:from_entity_id;not null" json:"from_entity_id"`
	ToEntityID   snowflake.ID `gorm:"column:to_entity_id;not null" json:"to_entity_id"`

	Relation         string   `gorm:"type:text;not null" json:"relation"`
	OwnershipPercent *float64 `gorm:"column:ownership_percent" json:"ownership_percent"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Connection) TableName() string { return "org_chart_connections" }

// ValidKind reports whether k names a known entity kind.
func ValidKind(k string) bool {
	switch k {
	case KindCompany, KindPerson, KindTrust, KindGroup:
		return true
	}
	return false
}

// ValidRelation reports whether r names a known connection relation.
func ValidRelation(r string) bool {
	switch r {
	case RelationOwnership, RelationControl, RelationEmployment, RelationTrustee:
		return true
	}
	return false
}
