package service

import (
	"context"
	"strings"

	"github.com/accordly/accordly/internal/clock"
	orgdomain "github.com/accordly/accordly/internal/organization/domain"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/accordly/accordly/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      orgdomain.Repository
	QuotaRepo quotadomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      orgdomain.Repository
	quotaRepo quotadomain.Repository
}

func New(p Params) orgdomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("organization.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		quotaRepo: p.QuotaRepo,
	}
}

// Create inserts the tenant and provisions its quota row in one transaction.
// A fresh quota has no limits set, so admission is unlimited until an
// operator tightens it.
func (s *Service) Create(ctx context.Context, req orgdomain.CreateRequest) (*orgdomain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, orgdomain.ErrInvalidName
	}

	orgSlug := strings.TrimSpace(req.Slug)
	if orgSlug == "" {
		orgSlug = name
	}
	orgSlug = slug.Make(orgSlug)
	if orgSlug == "" {
		return nil, orgdomain.ErrInvalidSlug
	}

	now := s.clock.Now()
	org := &orgdomain.Organization{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         orgSlug,
		SupportEmail: strings.TrimSpace(req.SupportEmail),
		Metadata:     req.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, org); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return orgdomain.ErrSlugTaken
			}
			return err
		}
		return s.quotaRepo.Provision(ctx, tx, &quotadomain.Quota{
			ID:          s.genID.Generate(),
			OrgID:       org.ID,
			NextResetAt: quotadomain.NextMonthStart(now),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	})
	if err != nil {
		return nil, err
	}

	return toResponse(org), nil
}

func (s *Service) List(ctx context.Context) ([]orgdomain.Response, error) {
	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	resp := make([]orgdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*orgdomain.Response, error) {
	orgID, err := orgdomain.ParseID(strings.TrimSpace(id))
	if err != nil {
		return nil, orgdomain.ErrInvalidID
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrNotFound
	}
	return toResponse(org), nil
}

func (s *Service) GetBySlug(ctx context.Context, value string) (*orgdomain.Response, error) {
	org, err := s.repo.FindBySlug(ctx, s.db, strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrNotFound
	}
	return toResponse(org), nil
}

func (s *Service) Update(ctx context.Context, req orgdomain.UpdateRequest) (*orgdomain.Response, error) {
	orgID, err := orgdomain.ParseID(strings.TrimSpace(req.ID))
	if err != nil {
		return nil, orgdomain.ErrInvalidID
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, orgdomain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, orgdomain.ErrInvalidName
		}
		org.Name = name
	}
	if req.SupportEmail != nil {
		org.SupportEmail = strings.TrimSpace(*req.SupportEmail)
	}
	if req.Metadata != nil {
		org.Metadata = req.Metadata
	}

	org.UpdatedAt = s.clock.Now()
	if err := s.repo.Update(ctx, s.db, org); err != nil {
		return nil, err
	}
	return toResponse(org), nil
}

func toResponse(org *orgdomain.Organization) *orgdomain.Response {
	return &orgdomain.Response{
		ID:           org.ID.String(),
		Name:         org.Name,
		Slug:         org.Slug,
		SupportEmail: org.SupportEmail,
		IsDefault:    org.IsDefault,
		Metadata:     org.Metadata,
		CreatedAt:    org.CreatedAt,
		UpdatedAt:    org.UpdatedAt,
	}
}
