package repository

import (
	"context"
	"time"

	domain "github.com/accordly/accordly/internal/contract/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repository struct{}

func Provide() domain.Repository {
	return &repository{}
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO contracts (
			id, org_id, contract_number, title, status,
			content, final_content,
			sent_at, expires_at, completed_at,
			created_by, metadata,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		contract.ID, contract.OrgID, contract.ContractNumber, contract.Title, contract.Status,
		contract.Content, contract.FinalContent,
		contract.SentAt, contract.ExpiresAt, contract.CompletedAt,
		contract.CreatedBy, contract.Metadata,
		contract.CreatedAt, contract.CreatedAt,
	).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, contract *domain.Contract) error {
	return db.WithContext(ctx).Exec(`
		UPDATE contracts SET
			title = ?,
			status = ?,
			content = ?,
			final_content = ?,
			sent_at = ?,
			expires_at = ?,
			completed_at = ?,
			metadata = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		contract.Title, contract.Status,
		contract.Content, contract.FinalContent,
		contract.SentAt, contract.ExpiresAt, contract.CompletedAt,
		contract.Metadata,
		contract.ID,
	).Error
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contracts WHERE id = ? AND org_id = ? LIMIT 1
	`, id, orgID).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == 0 {
		return nil, nil
	}
	return &contract, nil
}

func (r *repository) FindByIDAny(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Contract, error) {
	var contract domain.Contract
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contracts WHERE id = ? LIMIT 1
	`, id).Scan(&contract).Error
	if err != nil {
		return nil, err
	}
	if contract.ID == 0 {
		return nil, nil
	}
	return &contract, nil
}

func (r *repository) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, status string, limit, offset int) ([]domain.Contract, error) {
	var contracts []domain.Contract
	query := db.WithContext(ctx)
	var err error
	if status != "" {
		err = query.Raw(`
			SELECT * FROM contracts
			WHERE org_id = ? AND status = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, orgID, status, limit, offset).Scan(&contracts).Error
	} else {
		err = query.Raw(`
			SELECT * FROM contracts
			WHERE org_id = ?
			ORDER BY created_at DESC
			LIMIT ? OFFSET ?
		`, orgID, limit, offset).Scan(&contracts).Error
	}
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) ListDueForExpiry(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Contract, error) {
	var contracts []domain.Contract
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contracts
		WHERE status IN (?, ?, ?)
		  AND expires_at IS NOT NULL
		  AND expires_at <= ?
		ORDER BY expires_at
		LIMIT ?
	`, domain.StatusSent, domain.StatusViewed, domain.StatusSigned, now, limit).Scan(&contracts).Error
	if err != nil {
		return nil, err
	}
	return contracts, nil
}

func (r *repository) InsertParty(ctx context.Context, db *gorm.DB, party *domain.Party) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO contract_parties (
			id, contract_id, type, name, email, role,
			signed_at, signing_ip,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		party.ID, party.ContractID, party.Type, party.Name, party.Email, party.Role,
		party.SignedAt, party.SigningIP,
		party.CreatedAt, party.CreatedAt,
	).Error
}

func (r *repository) UpdateParty(ctx context.Context, db *gorm.DB, party *domain.Party) error {
	return db.WithContext(ctx).Exec(`
		UPDATE contract_parties SET
			name = ?,
			email = ?,
			role = ?,
			signed_at = ?,
			signing_ip = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		party.Name, party.Email, party.Role,
		party.SignedAt, party.SigningIP,
		party.ID,
	).Error
}

func (r *repository) FindPartyByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Party, error) {
	var party domain.Party
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contract_parties WHERE id = ? LIMIT 1
	`, id).Scan(&party).Error
	if err != nil {
		return nil, err
	}
	if party.ID == 0 {
		return nil, nil
	}
	return &party, nil
}

func (r *repository) ListParties(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]domain.Party, error) {
	var parties []domain.Party
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contract_parties WHERE contract_id = ? ORDER BY created_at
	`, contractID).Scan(&parties).Error
	if err != nil {
		return nil, err
	}
	return parties, nil
}

func (r *repository) InsertField(ctx context.Context, db *gorm.DB, field *domain.Field) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO contract_fields (
			id, contract_id, type, label, required,
			page, position_x, position_y, width, height,
			party_id, signing_token, signed_data, signed_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		field.ID, field.ContractID, field.Type, field.Label, field.Required,
		field.Page, field.PositionX, field.PositionY, field.Width, field.Height,
		field.PartyID, field.SigningToken, field.SignedData, field.SignedAt,
		field.CreatedAt, field.CreatedAt,
	).Error
}

func (r *repository) UpdateField(ctx context.Context, db *gorm.DB, field *domain.Field) error {
	return db.WithContext(ctx).Exec(`
		UPDATE contract_fields SET
			label = ?,
			required = ?,
			page = ?,
			position_x = ?,
			position_y = ?,
			width = ?,
			height = ?,
			party_id = ?,
			signing_token = ?,
			signed_data = ?,
			signed_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		field.Label, field.Required,
		field.Page, field.PositionX, field.PositionY, field.Width, field.Height,
		field.PartyID, field.SigningToken, field.SignedData, field.SignedAt,
		field.ID,
	).Error
}

// SignField writes signature data only when the field is still unsigned.
// The guard lives in the statement so concurrent redeemers of the same
// token cannot both win; the loser sees zero rows affected.
func (r *repository) SignField(ctx context.Context, db *gorm.DB, fieldID snowflake.ID, signedData string, signedAt time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(`
		UPDATE contract_fields SET
			signed_data = ?,
			signed_at = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND signed_data IS NULL
	`, signedData, signedAt, fieldID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FindFieldByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Field, error) {
	var field domain.Field
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contract_fields WHERE id = ? LIMIT 1
	`, id).Scan(&field).Error
	if err != nil {
		return nil, err
	}
	if field.ID == 0 {
		return nil, nil
	}
	return &field, nil
}

func (r *repository) FindFieldByToken(ctx context.Context, db *gorm.DB, token string) (*domain.Field, error) {
	var field domain.Field
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contract_fields WHERE signing_token = ? LIMIT 1
	`, token).Scan(&field).Error
	if err != nil {
		return nil, err
	}
	if field.ID == 0 {
		return nil, nil
	}
	return &field, nil
}

func (r *repository) ListFields(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]domain.Field, error) {
	var fields []domain.Field
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contract_fields WHERE contract_id = ? ORDER BY page, position_y, position_x
	`, contractID).Scan(&fields).Error
	if err != nil {
		return nil, err
	}
	return fields, nil
}

func (r *repository) CountUnassignedFields(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM contract_fields
		WHERE contract_id = ? AND party_id IS NULL
	`, contractID).Scan(&count).Error
	return count, err
}

func (r *repository) CountUnsignedRequiredFields(ctx context.Context, db *gorm.DB, contractID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(*) FROM contract_fields
		WHERE contract_id = ? AND required = ? AND signed_data IS NULL
	`, contractID, true).Scan(&count).Error
	return count, err
}

func (r *repository) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.Event) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO contract_events (
			id, contract_id, type, actor, actor_ip, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		event.ID, event.ContractID, event.Type, event.Actor, event.ActorIP,
		event.Metadata, event.CreatedAt,
	).Error
}

func (r *repository) ListEvents(ctx context.Context, db *gorm.DB, contractID snowflake.ID) ([]domain.Event, error) {
	var events []domain.Event
	err := db.WithContext(ctx).Raw(`
		SELECT * FROM contract_events WHERE contract_id = ? ORDER BY created_at
	`, contractID).Scan(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
