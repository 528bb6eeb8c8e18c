package repository

import (
	"context"

	domain "github.com/accordly/accordly/internal/llm/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) InsertProvider(ctx context.Context, db *gorm.DB, provider *domain.Provider) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO llm_providers (
			id, name, type, base_url,
			requests_per_minute, tokens_per_minute,
			is_active, is_default,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		provider.ID, provider.Name, provider.Type, provider.BaseURL,
		provider.RequestsPerMinute, provider.TokensPerMinute,
		provider.IsActive, provider.IsDefault,
	).Error
}

func (r *repository) InsertModel(ctx context.Context, db *gorm.DB, model *domain.Model) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO llm_models (
			id, provider_id, name, type,
			context_window, max_output_tokens,
			input_price_micro, output_price_micro,
			is_active, is_default,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`,
		model.ID, model.ProviderID, model.Name, model.Type,
		model.ContextWindow, model.MaxOutputTokens,
		model.InputPriceMicro, model.OutputPriceMicro,
		model.IsActive, model.IsDefault,
	).Error
}

func (r *repository) FindProviderByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Provider, error) {
	var provider domain.Provider
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM llm_providers WHERE id = ? LIMIT 1
	`, id).Scan(&provider).Error
	if err != nil {
		return nil, err
	}
	if provider.ID == 0 {
		return nil, nil
	}
	return &provider, nil
}

func (r *repository) FindProviderByName(ctx context.Context, db *gorm.DB, name string) (*domain.Provider, error) {
	var provider domain.Provider
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM llm_providers WHERE name = ? LIMIT 1
	`, name).Scan(&provider).Error
	if err != nil {
		return nil, err
	}
	if provider.ID == 0 {
		return nil, nil
	}
	return &provider, nil
}

func (r *repository) FindDefaultProvider(ctx context.Context, db *gorm.DB) (*domain.Provider, error) {
	var provider domain.Provider
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM llm_providers
		WHERE is_default = ? AND is_active = ?
		ORDER BY id LIMIT 1
	`, true, true).Scan(&provider).Error
	if err != nil {
		return nil, err
	}
	if provider.ID == 0 {
		return nil, nil
	}
	return &provider, nil
}

func (r *repository) FindModelByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Model, error) {
	var model domain.Model
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM llm_models WHERE id = ? LIMIT 1
	`, id).Scan(&model).Error
	if err != nil {
		return nil, err
	}
	if model.ID == 0 {
		return nil, nil
	}
	return &model, nil
}

func (r *repository) FindDefaultModel(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (*domain.Model, error) {
	var model domain.Model
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM llm_models
		WHERE provider_id = ? AND is_default = ? AND is_active = ?
		ORDER BY id LIMIT 1
	`, providerID, true, true).Scan(&model).Error
	if err != nil {
		return nil, err
	}
	if model.ID == 0 {
		return nil, nil
	}
	return &model, nil
}

func (r *repository) ListProviders(ctx context.Context, db *gorm.DB) ([]domain.Provider, error) {
	var providers []domain.Provider
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM llm_providers ORDER BY name
	`).Scan(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *repository) ListModels(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]domain.Model, error) {
	var models []domain.Model
	query := db.WithContext(ctx)
	var err error
	if providerID != 0 {
		err = query.Raw(`
			SELECT * FROM llm_models WHERE provider_id = ? ORDER BY name
		`, providerID).Scan(&models).Error
	} else {
		err = query.Raw(`
			SELECT * FROM llm_models ORDER BY name
		`).Scan(&models).Error
	}
	if err != nil {
		return nil, err
	}
	return models, nil
}
