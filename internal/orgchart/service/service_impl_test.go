package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/accordly/accordly/internal/clock"
	domain "github.com/accordly/accordly/internal/orgchart/domain"
	"github.com/accordly/accordly/internal/orgchart/repository"
	"github.com/accordly/accordly/internal/orgcontext"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrgchart(t *testing.T) (domain.Service, context.Context) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&domain.Chart{}, &domain.Entity{}, &domain.Connection{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc, orgcontext.WithOrgID(context.Background(), int64(node.Generate()))
}

func percent(v float64) *float64 { return &v }

func validChart() domain.PutChartRequest {
	return domain.PutChartRequest{
		Name: "Holding structure",
		Entities: []domain.EntityInput{
			{Key: "holdco", Kind: domain.KindCompany, Name: "HoldCo Ltd", Attributes: map[string]any{"jurisdiction": "UK"}},
			{Key: "opco", Kind: domain.KindCompany, Name: "OpCo Ltd"},
			{Key: "alice", Kind: domain.KindPerson, Name: "Alice", Attributes: map[string]any{"title": "Director"}},
		},
		Connections: []domain.ConnectionInput{
			{From: "holdco", To: "opco", Relation: domain.RelationOwnership, OwnershipPercent: percent(100)},
			{From: "alice", To: "holdco", Relation: domain.RelationControl},
		},
	}
}

func TestPutChartCreatesVersionOne(t *testing.T) {
	svc, ctx := setupOrgchart(t)

	view, err := svc.PutChart(ctx, validChart())
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.Chart.Version)
	assert.Len(t, view.Entities, 3)
	assert.Len(t, view.Connections, 2)
}

func TestPutChartReplacesAndBumpsVersion(t *testing.T) {
	svc, ctx := setupOrgchart(t)

	_, err := svc.PutChart(ctx, validChart())
	require.NoError(t, err)

	view, err := svc.PutChart(ctx, domain.PutChartRequest{
		Name: "Simplified",
		Entities: []domain.EntityInput{
			{Key: "solo", Kind: domain.KindPerson, Name: "Bob"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.Chart.Version)
	assert.Equal(t, "Simplified", view.Chart.Name)
	require.Len(t, view.Entities, 1)
	assert.Empty(t, view.Connections)

	got, err := svc.GetChart(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Entities, 1)
}

func TestGetChartMissing(t *testing.T) {
	svc, ctx := setupOrgchart(t)
	_, err := svc.GetChart(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPutChartValidation(t *testing.T) {
	svc, ctx := setupOrgchart(t)

	cases := []struct {
		name   string
		mutate func(*domain.PutChartRequest)
	}{
		{"duplicate entity key", func(r *domain.PutChartRequest) {
			r.Entities = append(r.Entities, domain.EntityInput{Key: "holdco", Kind: domain.KindPerson, Name: "Dup"})
		}},
		{"unknown kind", func(r *domain.PutChartRequest) {
			r.Entities[0].Kind = "partnership"
		}},
		{"unknown connection ref", func(r *domain.PutChartRequest) {
			r.Connections[0].To = "ghost"
		}},
		{"self loop", func(r *domain.PutChartRequest) {
			r.Connections[0].To = "holdco"
		}},
		{"unknown relation", func(r *domain.PutChartRequest) {
			r.Connections[1].Relation = "friendship"
		}},
		{"ownership without percent", func(r *domain.PutChartRequest) {
			r.Connections[0].OwnershipPercent = nil
		}},
		{"ownership percent zero", func(r *domain.PutChartRequest) {
			r.Connections[0].OwnershipPercent = percent(0)
		}},
		{"ownership percent above hundred", func(r *domain.PutChartRequest) {
			r.Connections[0].OwnershipPercent = percent(100.5)
		}},
		{"percent on non-ownership", func(r *domain.PutChartRequest) {
			r.Connections[1].OwnershipPercent = percent(10)
		}},
		{"disallowed attribute key", func(r *domain.PutChartRequest) {
			r.Entities[2].Attributes = map[string]any{"shoe_size": 42}
		}},
		{"non-scalar attribute value", func(r *domain.PutChartRequest) {
			r.Entities[0].Attributes = map[string]any{"jurisdiction": []string{"UK"}}
		}},
		{"missing entity name", func(r *domain.PutChartRequest) {
			r.Entities[1].Name = "  "
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validChart()
			tc.mutate(&req)

			_, err := svc.PutChart(ctx, req)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr, "expected validation error")
		})
	}

	// No partial chart may survive a rejected request.
	_, err := svc.GetChart(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListEntities(t *testing.T) {
	svc, ctx := setupOrgchart(t)

	_, err := svc.PutChart(ctx, validChart())
	require.NoError(t, err)

	entities, err := svc.ListEntities(ctx)
	require.NoError(t, err)
	assert.Len(t, entities, 3)
}
