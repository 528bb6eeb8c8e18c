package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/accordly/accordly/internal/clock"
	"github.com/accordly/accordly/internal/config"
	domain "github.com/accordly/accordly/internal/contract/domain"
	"github.com/accordly/accordly/internal/observability/metrics"
	orgdomain "github.com/accordly/accordly/internal/organization/domain"
	"github.com/accordly/accordly/internal/orgcontext"
	signingdomain "github.com/accordly/accordly/internal/signing/domain"
	"github.com/accordly/accordly/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	OrgRepo orgdomain.Repository
	Signing signingdomain.Service
	Metrics *metrics.Metrics
}

type Service struct {
	cfg     config.Config
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	orgRepo orgdomain.Repository
	signing signingdomain.Service
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		cfg:     p.Config,
		db:      p.DB,
		log:     p.Log.Named("contract.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		orgRepo: p.OrgRepo,
		signing: p.Signing,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Contract, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidRequest
	}

	var createdBy *snowflake.ID
	if trimmed := strings.TrimSpace(req.CreatedBy); trimmed != "" {
		parsed, err := domain.ParseID(trimmed)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		createdBy = &parsed
	}

	now := s.clock.Now()
	number, err := s.contractNumber(ctx, orgID, now)
	if err != nil {
		return nil, err
	}

	contract := &domain.Contract{
		ID:             s.genID.Generate(),
		OrgID:          orgID,
		ContractNumber: number,
		Title:          title,
		Status:         domain.StatusDraft,
		Content:        req.Content,
		CreatedBy:      createdBy,
		Metadata:       req.Metadata,
		CreatedAt:      now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, contract); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventCreated, "", "", nil))
	})
	if err != nil {
		return nil, err
	}

	return contract, nil
}

func (s *Service) Get(ctx context.Context, contractID string) (*domain.Detail, error) {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}

	parties, err := s.repo.ListParties(ctx, s.db, contract.ID)
	if err != nil {
		return nil, err
	}
	fields, err := s.repo.ListFields(ctx, s.db, contract.ID)
	if err != nil {
		return nil, err
	}
	events, err := s.repo.ListEvents(ctx, s.db, contract.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Detail{
		Contract: *contract,
		Parties:  parties,
		Fields:   fields,
		Events:   events,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Contract, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}

	limit, offset := pagination.Clamp(req.Limit, req.Offset)
	return s.repo.List(ctx, s.db, orgID, strings.TrimSpace(req.Status), limit, offset)
}

func (s *Service) Update(ctx context.Context, contractID string, req domain.UpdateRequest) (*domain.Contract, error) {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidRequest
		}
		contract.Title = title
	}
	if req.Content != nil {
		contract.Content = *req.Content
	}
	if req.Metadata != nil {
		contract.Metadata = req.Metadata
	}

	if err := s.repo.Update(ctx, s.db, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *Service) AddParty(ctx context.Context, contractID string, req domain.AddPartyRequest) (*domain.Party, error) {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	if !domain.ValidPartyType(req.Type) {
		return nil, domain.ErrInvalidRequest
	}
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" {
		return nil, domain.ErrInvalidRequest
	}

	party := &domain.Party{
		ID:         s.genID.Generate(),
		ContractID: contract.ID,
		Type:       req.Type,
		Name:       name,
		Email:      email,
		Role:       strings.TrimSpace(req.Role),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertParty(ctx, s.db, party); err != nil {
		return nil, err
	}
	return party, nil
}

func (s *Service) AddField(ctx context.Context, contractID string, req domain.AddFieldRequest) (*domain.Field, error) {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	if !domain.ValidFieldType(req.Type) {
		return nil, domain.ErrInvalidRequest
	}

	required := true
	if req.Required != nil {
		required = *req.Required
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	var partyID *snowflake.ID
	if trimmed := strings.TrimSpace(req.PartyID); trimmed != "" {
		parsed, err := domain.ParseID(trimmed)
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		party, err := s.repo.FindPartyByID(ctx, s.db, parsed)
		if err != nil {
			return nil, err
		}
		if party == nil || party.ContractID != contract.ID {
			return nil, domain.ErrPartyNotFound
		}
		partyID = &parsed
	}

	field := &domain.Field{
		ID:         s.genID.Generate(),
		ContractID: contract.ID,
		Type:       req.Type,
		Label:      strings.TrimSpace(req.Label),
		Required:   required,
		Page:       page,
		PositionX:  req.PositionX,
		PositionY:  req.PositionY,
		Width:      req.Width,
		Height:     req.Height,
		PartyID:    partyID,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertField(ctx, s.db, field); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *Service) AssignField(ctx context.Context, contractID, fieldID, partyID string) (*domain.Field, error) {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	fid, err := domain.ParseID(strings.TrimSpace(fieldID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	pid, err := domain.ParseID(strings.TrimSpace(partyID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	field, err := s.repo.FindFieldByID(ctx, s.db, fid)
	if err != nil {
		return nil, err
	}
	if field == nil || field.ContractID != contract.ID {
		return nil, domain.ErrFieldNotFound
	}
	party, err := s.repo.FindPartyByID(ctx, s.db, pid)
	if err != nil {
		return nil, err
	}
	if party == nil || party.ContractID != contract.ID {
		return nil, domain.ErrPartyNotFound
	}

	field.PartyID = &pid
	if err := s.repo.UpdateField(ctx, s.db, field); err != nil {
		return nil, err
	}
	return field, nil
}

// Send transitions draft → sent. Preconditions are checked up front so a
// failed send leaves the draft untouched; the transition itself, the
// expiry stamp, and fresh per-field tokens all land in one transaction.
func (s *Service) Send(ctx context.Context, contractID string) (*domain.Contract, error) {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.Status != domain.StatusDraft {
		return nil, domain.ErrInvalidState
	}

	unassigned, err := s.repo.CountUnassignedFields(ctx, s.db, contract.ID)
	if err != nil {
		return nil, err
	}
	if unassigned > 0 {
		return nil, domain.ErrUnassignedFields
	}

	now := s.clock.Now()
	contract.Status = domain.StatusSent
	contract.SentAt = &now
	if contract.ExpiresAt == nil {
		expires := now.AddDate(0, 0, s.expiryDays())
		contract.ExpiresAt = &expires
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields, err := s.repo.ListFields(ctx, tx, contract.ID)
		if err != nil {
			return err
		}
		for i := range fields {
			if _, err := s.signing.IssueToken(ctx, tx, &fields[i]); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventSent, "", "", nil))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("contract sent",
		zap.String("contract_id", contract.ID.String()),
		zap.String("contract_number", contract.ContractNumber),
	)
	return contract, nil
}

// SignField applies one signature. signed_data is write-once; the
// completion check runs after every successful signature so the last
// required field, in any order, completes the contract.
func (s *Service) SignField(ctx context.Context, token, signedData, actorIP string) (*domain.SignResult, error) {
	if strings.TrimSpace(signedData) == "" {
		return nil, domain.ErrInvalidRequest
	}

	field, contract, err := s.signing.Redeem(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.checkExpiry(ctx, contract); err != nil {
		return nil, err
	}
	switch contract.Status {
	case domain.StatusDeclined, domain.StatusCancelled, domain.StatusExpired:
		return nil, domain.ErrInvalidState
	}
	if field.Signed() {
		return nil, domain.ErrAlreadySigned
	}

	now := s.clock.Now()
	field.SignedData = &signedData
	field.SignedAt = &now

	completed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional write is the real write-once guard; the snapshot
		// check above is only a fast path.
		wrote, err := s.repo.SignField(ctx, tx, field.ID, signedData, now)
		if err != nil {
			return err
		}
		if !wrote {
			return domain.ErrAlreadySigned
		}

		actor := ""
		if field.Type == domain.FieldSignature && field.PartyID != nil {
			party, err := s.repo.FindPartyByID(ctx, tx, *field.PartyID)
			if err != nil {
				return err
			}
			if party != nil {
				actor = party.Name
				if party.SignedAt == nil {
					party.SignedAt = &now
					party.SigningIP = actorIP
					if err := s.repo.UpdateParty(ctx, tx, party); err != nil {
						return err
					}
				}
			}
		}

		if err := s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventSigned, actor, actorIP, map[string]any{
			"field_id":   field.ID.String(),
			"field_type": field.Type,
		})); err != nil {
			return err
		}

		changed := false
		switch contract.Status {
		case domain.StatusSent, domain.StatusViewed:
			contract.Status = domain.StatusSigned
			changed = true
		}

		remaining, err := s.repo.CountUnsignedRequiredFields(ctx, tx, contract.ID)
		if err != nil {
			return err
		}
		if remaining == 0 && contract.Status != domain.StatusCompleted {
			contract.Status = domain.StatusCompleted
			contract.CompletedAt = &now
			completed = true
			changed = true
			if err := s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventCompleted, actor, actorIP, nil)); err != nil {
				return err
			}
		}
		if changed {
			return s.repo.Update(ctx, tx, contract)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordFieldSigned(ctx, field.Type)
	if completed {
		s.metrics.RecordContractCompleted(ctx, contract.OrgID.String())
		s.log.Info("contract completed",
			zap.String("contract_id", contract.ID.String()),
			zap.String("contract_number", contract.ContractNumber),
		)
	}

	return &domain.SignResult{
		Field:     *field,
		Status:    contract.Status,
		Completed: completed,
	}, nil
}

// MarkViewed records the first open of the signing page: sent → viewed.
// Later opens are reads only.
func (s *Service) MarkViewed(ctx context.Context, token string) (*domain.SigningView, error) {
	field, contract, err := s.signing.Redeem(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.checkExpiry(ctx, contract); err != nil {
		return nil, err
	}

	if contract.Status == domain.StatusSent {
		contract.Status = domain.StatusViewed
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.Update(ctx, tx, contract); err != nil {
				return err
			}
			return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventViewed, "", "", nil))
		})
		if err != nil {
			return nil, err
		}
	}

	view := &domain.SigningView{
		ContractTitle:  contract.Title,
		ContractStatus: contract.Status,
		ExpiresAt:      contract.ExpiresAt,
		Field:          *field,
	}
	if field.PartyID != nil {
		party, err := s.repo.FindPartyByID(ctx, s.db, *field.PartyID)
		if err != nil {
			return nil, err
		}
		if party != nil {
			view.PartyName = party.Name
		}
	}
	return view, nil
}

func (s *Service) Decline(ctx context.Context, token, reason, actorIP string) error {
	_, contract, err := s.signing.Redeem(ctx, token)
	if err != nil {
		return err
	}

	if err := s.checkExpiry(ctx, contract); err != nil {
		return err
	}
	switch contract.Status {
	case domain.StatusSent, domain.StatusViewed, domain.StatusSigned:
	default:
		return domain.ErrInvalidState
	}

	contract.Status = domain.StatusDeclined
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventDeclined, "", actorIP, map[string]any{
			"reason": strings.TrimSpace(reason),
		}))
	})
}

func (s *Service) Cancel(ctx context.Context, contractID string) error {
	contract, err := s.resolve(ctx, contractID)
	if err != nil {
		return err
	}
	switch contract.Status {
	case domain.StatusSent, domain.StatusViewed, domain.StatusSigned:
	default:
		return domain.ErrInvalidState
	}

	contract.Status = domain.StatusCancelled
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventCancelled, "", "", nil))
	})
}

// ExpireDue sweeps live contracts past their deadline. Idempotent: an
// already-expired contract never matches the due query again.
func (s *Service) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	due, err := s.repo.ListDueForExpiry(ctx, s.db, now, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		contract := &due[i]
		contract.Status = domain.StatusExpired
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.Update(ctx, tx, contract); err != nil {
				return err
			}
			return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventExpired, "", "", nil))
		})
		if err != nil {
			return expired, err
		}
		expired++
	}

	if expired > 0 {
		s.log.Info("expired contracts", zap.Int("count", expired))
	}
	return expired, nil
}

// checkExpiry flips a live contract past its deadline to expired before
// the caller acts on it.
func (s *Service) checkExpiry(ctx context.Context, contract *domain.Contract) error {
	if contract.Status == domain.StatusExpired {
		return domain.ErrExpired
	}
	switch contract.Status {
	case domain.StatusSent, domain.StatusViewed, domain.StatusSigned:
	default:
		return nil
	}
	if contract.ExpiresAt == nil || !s.clock.Now().After(*contract.ExpiresAt) {
		return nil
	}

	contract.Status = domain.StatusExpired
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, contract); err != nil {
			return err
		}
		return s.repo.InsertEvent(ctx, tx, s.newEvent(contract.ID, domain.EventExpired, "", "", nil))
	})
	if err != nil {
		return err
	}
	return domain.ErrExpired
}

func (s *Service) resolve(ctx context.Context, contractID string) (*domain.Contract, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}
	id, err := domain.ParseID(strings.TrimSpace(contractID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	contract, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, domain.ErrNotFound
	}
	return contract, nil
}

// contractNumber builds "<org prefix>-<yyyymmdd>-<ulid suffix>", unique
// by construction for any realistic volume.
func (s *Service) contractNumber(ctx context.Context, orgID snowflake.ID, now time.Time) (string, error) {
	prefix := "CT"
	org, err := s.orgRepo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return "", err
	}
	if org != nil {
		if p := slugPrefix(org.Slug); p != "" {
			prefix = p
		}
	}

	suffix := ulid.Make().String()
	suffix = suffix[len(suffix)-8:]
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix), nil
}

func (s *Service) expiryDays() int {
	if s.cfg.Signing.ExpiryDays > 0 {
		return s.cfg.Signing.ExpiryDays
	}
	return 30
}

func (s *Service) newEvent(contractID snowflake.ID, eventType, actor, actorIP string, metadata map[string]any) *domain.Event {
	return &domain.Event{
		ID:         s.genID.Generate(),
		ContractID: contractID,
		Type:       eventType,
		Actor:      actor,
		ActorIP:    actorIP,
		Metadata:   metadata,
		CreatedAt:  s.clock.Now(),
	}
}

func slugPrefix(slug string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(slug) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 3 {
				break
			}
		}
	}
	return b.String()
}
