package repository

import (
	"context"

	orgdomain "github.com/accordly/accordly/internal/organization/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() orgdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, org *orgdomain.Organization) error {
	return db.WithContext(ctx).Create(org).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, org *orgdomain.Organization) error {
	return db.WithContext(ctx).Exec(
		`UPDATE organizations
		 SET name = ?, support_email = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		org.Name,
		org.SupportEmail,
		org.Metadata,
		org.UpdatedAt,
		org.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*orgdomain.Organization, error) {
	var org orgdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM organizations WHERE id = ?`,
		id,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*orgdomain.Organization, error) {
	var org orgdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM organizations WHERE slug = ?`,
		slug,
	).Scan(&org).Error
	if err != nil {
		return nil, err
	}
	if org.ID == 0 {
		return nil, nil
	}
	return &org, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]orgdomain.Organization, error) {
	var orgs []orgdomain.Organization
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM organizations ORDER BY created_at ASC`,
	).Scan(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}
