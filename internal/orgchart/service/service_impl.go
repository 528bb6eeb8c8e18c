package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/accordly/accordly/internal/clock"
	domain "github.com/accordly/accordly/internal/orgchart/domain"
	"github.com/accordly/accordly/internal/orgcontext"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("orgchart.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetChart(ctx context.Context) (*domain.ChartView, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}

	chart, err := s.repo.FindChartByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if chart == nil {
		return nil, domain.ErrNotFound
	}

	entities, err := s.repo.ListEntities(ctx, s.db, chart.ID)
	if err != nil {
		return nil, err
	}
	connections, err := s.repo.ListConnections(ctx, s.db, chart.ID)
	if err != nil {
		return nil, err
	}

	return &domain.ChartView{
		Chart:       *chart,
		Entities:    entities,
		Connections: connections,
	}, nil
}

// PutChart validates the whole submission first, then replaces the
// chart's entities and connections in one transaction. A rejected
// request leaves the stored chart untouched.
func (s *Service) PutChart(ctx context.Context, req domain.PutChartRequest) (*domain.ChartView, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}

	if err := validate(req); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	chart, err := s.repo.FindChartByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}

	var entities []domain.Entity
	var connections []domain.Connection

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if chart == nil {
			chart = &domain.Chart{
				ID:        s.genID.Generate(),
				OrgID:     orgID,
				Name:      strings.TrimSpace(req.Name),
				Version:   1,
				CreatedAt: now,
			}
			if err := s.repo.InsertChart(ctx, tx, chart); err != nil {
				return err
			}
		} else {
			chart.Name = strings.TrimSpace(req.Name)
			chart.Version++
			if err := s.repo.UpdateChart(ctx, tx, chart); err != nil {
				return err
			}
			if err := s.repo.DeleteChartContents(ctx, tx, chart.ID); err != nil {
				return err
			}
		}

		ids := make(map[string]snowflake.ID, len(req.Entities))
		for _, input := range req.Entities {
			entity := domain.Entity{
				ID:         s.genID.Generate(),
				ChartID:    chart.ID,
				Kind:       input.Kind,
				Name:       strings.TrimSpace(input.Name),
				Attributes: input.Attributes,
				CreatedAt:  now,
			}
			if err := s.repo.InsertEntity(ctx, tx, &entity); err != nil {
				return err
			}
			ids[input.Key] = entity.ID
			entities = append(entities, entity)
		}

		for _, input := range req.Connections {
			connection := domain.Connection{
				ID:               s.genID.Generate(),
				ChartID:          chart.ID,
				FromEntityID:     ids[input.From],
				ToEntityID:       ids[input.To],
				Relation:         input.Relation,
				OwnershipPercent: input.OwnershipPercent,
				CreatedAt:        now,
			}
			if err := s.repo.InsertConnection(ctx, tx, &connection); err != nil {
				return err
			}
			connections = append(connections, connection)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("org chart replaced",
		zap.String("org_id", orgID.String()),
		zap.Int64("version", chart.Version),
		zap.Int("entities", len(entities)),
		zap.Int("connections", len(connections)),
	)

	return &domain.ChartView{
		Chart:       *chart,
		Entities:    entities,
		Connections: connections,
	}, nil
}

func (s *Service) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrg
	}

	chart, err := s.repo.FindChartByOrg(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if chart == nil {
		return nil, domain.ErrNotFound
	}

	return s.repo.ListEntities(ctx, s.db, chart.ID)
}

func validate(req domain.PutChartRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return &domain.ValidationError{Detail: "name is required"}
	}

	keys := make(map[string]string, len(req.Entities))
	for i, entity := range req.Entities {
		key := strings.TrimSpace(entity.Key)
		if key == "" {
			return &domain.ValidationError{Detail: fmt.Sprintf("entities[%d]: key is required", i)}
		}
		if _, dup := keys[key]; dup {
			return &domain.ValidationError{Detail: fmt.Sprintf("entities[%d]: duplicate key %q", i, key)}
		}
		if !domain.ValidKind(entity.Kind) {
			return &domain.ValidationError{Detail: fmt.Sprintf("entities[%d]: unknown kind %q", i, entity.Kind)}
		}
		if strings.TrimSpace(entity.Name) == "" {
			return &domain.ValidationError{Detail: fmt.Sprintf("entities[%d]: name is required", i)}
		}
		if err := validateAttributes(entity.Kind, entity.Attributes); err != nil {
			return &domain.ValidationError{Detail: fmt.Sprintf("entities[%d]: %v", i, err)}
		}
		keys[key] = entity.Kind
	}

	for i, connection := range req.Connections {
		if !domain.ValidRelation(connection.Relation) {
			return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: unknown relation %q", i, connection.Relation)}
		}
		if _, ok := keys[connection.From]; !ok {
			return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: unknown entity %q", i, connection.From)}
		}
		if _, ok := keys[connection.To]; !ok {
			return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: unknown entity %q", i, connection.To)}
		}
		if connection.From == connection.To {
			return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: self-loop on %q", i, connection.From)}
		}
		if connection.Relation == domain.RelationOwnership {
			if connection.OwnershipPercent == nil {
				return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: ownership requires a percent", i)}
			}
			percent := *connection.OwnershipPercent
			if percent <= 0 || percent > 100 {
				return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: percent %v out of range", i, percent)}
			}
		} else if connection.OwnershipPercent != nil {
			return &domain.ValidationError{Detail: fmt.Sprintf("connections[%d]: percent is only valid on ownership", i)}
		}
	}

	return nil
}

// validateAttributes checks kind-specific attribute shapes. Values must
// be scalars; the allowed keys differ per kind.
func validateAttributes(kind string, attributes map[string]any) error {
	allowed := allowedAttributes[kind]
	for key, value := range attributes {
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("attribute %q is not valid for kind %q", key, kind)
		}
		switch value.(type) {
		case string, float64, int, int64, bool, nil:
		default:
			return fmt.Errorf("attribute %q must be a scalar", key)
		}
	}
	return nil
}

var allowedAttributes = map[string]map[string]struct{}{
	domain.KindCompany: {
		"jurisdiction":   {},
		"company_number": {},
		"entity_type":    {},
		"incorporated":   {},
	},
	domain.KindPerson: {
		"email":       {},
		"title":       {},
		"nationality": {},
		"birth_year":  {},
	},
	domain.KindTrust: {
		"jurisdiction": {},
		"trust_type":   {},
		"settled":      {},
	},
	domain.KindGroup: {
		"description": {},
	},
}
