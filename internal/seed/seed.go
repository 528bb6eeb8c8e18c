// Package seed bootstraps the default organization and the provider
// catalog on startup.
package seed

import (
	"context"
	"errors"
	"time"

	llmdomain "github.com/accordly/accordly/internal/llm/domain"
	organizationdomain "github.com/accordly/accordly/internal/organization/domain"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

const (
	defaultOrgName = "Main"
	defaultOrgSlug = "main"
)

// EnsureMainOrg seeds the default organization for startup bootstrap.
func EnsureMainOrg(db *gorm.DB) error {
	return ensureMainOrg(db, 0)
}

// EnsureMainOrgWithID seeds the default organization under a fixed id,
// for deployments that pin DEFAULT_ORG.
func EnsureMainOrgWithID(db *gorm.DB, orgID int64) error {
	return ensureMainOrg(db, snowflake.ID(orgID))
}

func ensureMainOrg(db *gorm.DB, orgID snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureMainOrgTx(ctx, tx, node, orgID)
		if err != nil {
			return err
		}
		return ensureQuotaTx(ctx, tx, node, org.ID)
	})
}

func ensureMainOrgTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return org, err
	}

	id := orgID
	if id == 0 {
		id = node.Generate()
	}
	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        id,
		Name:      defaultOrgName,
		Slug:      defaultOrgSlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureQuotaTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID snowflake.ID) error {
	var quota quotadomain.Quota
	err := tx.WithContext(ctx).Where("org_id = ?", orgID).First(&quota).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	quota = quotadomain.Quota{
		ID:          node.Generate(),
		OrgID:       orgID,
		NextResetAt: quotadomain.NextMonthStart(now),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return tx.WithContext(ctx).Create(&quota).Error
}

// EnsureProviderCatalog seeds the vendor and model catalog with current
// list pricing (micro-USD per 1K tokens). Existing rows are left alone.
func EnsureProviderCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	type model struct {
		name            string
		modelType       string
		contextWindow   int
		maxOutputTokens int
		inputPrice      int64
		outputPrice     int64
		isDefault       bool
	}
	type provider struct {
		name      string
		pType     string
		rpm       int
		tpm       int
		isDefault bool
		models    []model
	}

	catalog := []provider{
		{
			name: "openai", pType: llmdomain.ProviderOpenAI, rpm: 500, tpm: 800000, isDefault: true,
			models: []model{
				{"gpt-4o", llmdomain.ModelTypeChat, 128000, 16384, 2500, 10000, true},
				{"gpt-4o-mini", llmdomain.ModelTypeChat, 128000, 16384, 150, 600, false},
			},
		},
		{
			name: "anthropic", pType: llmdomain.ProviderAnthropic, rpm: 300, tpm: 400000,
			models: []model{
				{"claude-sonnet-4-20250514", llmdomain.ModelTypeChat, 200000, 64000, 3000, 15000, true},
				{"claude-3-5-haiku-20241022", llmdomain.ModelTypeChat, 200000, 8192, 800, 4000, false},
			},
		},
		{
			name: "google", pType: llmdomain.ProviderGoogle, rpm: 300, tpm: 400000,
			models: []model{
				{"gemini-1.5-pro", llmdomain.ModelTypeChat, 2000000, 8192, 1250, 5000, true},
				{"gemini-1.5-flash", llmdomain.ModelTypeChat, 1000000, 8192, 75, 300, false},
			},
		},
	}

	ctx := context.Background()
	now := time.Now().UTC()

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range catalog {
			var existing llmdomain.Provider
			err := tx.WithContext(ctx).Where("name = ?", p.name).First(&existing).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			row := llmdomain.Provider{
				ID:                node.Generate(),
				Name:              p.name,
				Type:              p.pType,
				RequestsPerMinute: p.rpm,
				TokensPerMinute:   p.tpm,
				IsActive:          true,
				IsDefault:         p.isDefault,
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
				return err
			}

			for _, m := range p.models {
				modelRow := llmdomain.Model{
					ID:               node.Generate(),
					ProviderID:       row.ID,
					Name:             m.name,
					Type:             m.modelType,
					ContextWindow:    m.contextWindow,
					MaxOutputTokens:  m.maxOutputTokens,
					InputPriceMicro:  m.inputPrice,
					OutputPriceMicro: m.outputPrice,
					IsActive:         true,
					IsDefault:        m.isDefault,
					CreatedAt:        now,
					UpdatedAt:        now,
				}
				if err := tx.WithContext(ctx).Create(&modelRow).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
