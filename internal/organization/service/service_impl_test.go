package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/accordly/accordly/internal/clock"
	orgdomain "github.com/accordly/accordly/internal/organization/domain"
	"github.com/accordly/accordly/internal/organization/repository"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	quotarepository "github.com/accordly/accordly/internal/quota/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupOrgService(t *testing.T) (orgdomain.Service, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&orgdomain.Organization{}, &quotadomain.Quota{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Repo:      repository.Provide(),
		QuotaRepo: quotarepository.Provide(),
	})
	return svc, db
}

func TestCreateOrganizationProvisionsQuota(t *testing.T) {
	svc, db := setupOrgService(t)

	resp, err := svc.Create(context.Background(), orgdomain.CreateRequest{
		Name: "Acme Legal",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme-legal", resp.Slug)

	orgID, err := orgdomain.ParseID(resp.ID)
	require.NoError(t, err)

	var quota quotadomain.Quota
	require.NoError(t, db.Where("org_id = ?", orgID).First(&quota).Error)
	assert.Nil(t, quota.MonthlyTokenLimit)
	assert.Nil(t, quota.MonthlyRequestLimit)
	assert.Nil(t, quota.MonthlyCostLimitMicro)
	assert.Equal(t, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), quota.NextResetAt.UTC())
}

func TestCreateOrganizationSlugConflict(t *testing.T) {
	svc, _ := setupOrgService(t)

	_, err := svc.Create(context.Background(), orgdomain.CreateRequest{Name: "Acme", Slug: "acme"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), orgdomain.CreateRequest{Name: "Other", Slug: "acme"})
	assert.ErrorIs(t, err, orgdomain.ErrSlugTaken)
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc, _ := setupOrgService(t)

	_, err := svc.Create(context.Background(), orgdomain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, orgdomain.ErrInvalidName)
}

func TestGetAndUpdateOrganization(t *testing.T) {
	svc, _ := setupOrgService(t)

	created, err := svc.Create(context.Background(), orgdomain.CreateRequest{Name: "Acme"})
	require.NoError(t, err)

	got, err := svc.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	name := "Acme Holdings"
	updated, err := svc.Update(context.Background(), orgdomain.UpdateRequest{ID: created.ID, Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", updated.Name)
	assert.Equal(t, created.Slug, updated.Slug)

	bySlug, err := svc.GetBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Holdings", bySlug.Name)

	_, err = svc.GetByID(context.Background(), "not-a-snowflake")
	assert.ErrorIs(t, err, orgdomain.ErrInvalidID)
}
