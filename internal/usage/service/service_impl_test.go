package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/accordly/accordly/internal/clock"
	"github.com/accordly/accordly/internal/orgcontext"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	quotarepository "github.com/accordly/accordly/internal/quota/repository"
	usagedomain "github.com/accordly/accordly/internal/usage/domain"
	"github.com/accordly/accordly/internal/usage/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupUsageService(t *testing.T) (usagedomain.Service, *gorm.DB, *snowflake.Node, snowflake.ID) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&usagedomain.Record{}, &quotadomain.Quota{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	orgID := node.Generate()
	require.NoError(t, db.Create(&quotadomain.Quota{
		ID:          node.Generate(),
		OrgID:       orgID,
		NextResetAt: quotadomain.NextMonthStart(time.Now().UTC()),
	}).Error)

	svc := New(Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewSystemClock(),
		Repo:      repository.Provide(),
		QuotaRepo: quotarepository.Provide(),
	})
	return svc, db, node, orgID
}

func loadQuota(t *testing.T, db *gorm.DB, orgID snowflake.ID) quotadomain.Quota {
	t.Helper()
	var quota quotadomain.Quota
	require.NoError(t, db.Where("org_id = ?", orgID).First(&quota).Error)
	return quota
}

func TestRecordSuccessAppliesQuota(t *testing.T) {
	svc, db, _, orgID := setupUsageService(t)

	record, err := svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID:               orgID,
		Provider:            "openai",
		ModelUsed:           "gpt-4o",
		Feature:             usagedomain.FeatureClauseGen,
		Status:              usagedomain.StatusSuccess,
		TokensPrompt:        120,
		TokensCompletion:    80,
		CostCalculatedMicro: 900,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(200), record.TokensTotal)

	quota := loadQuota(t, db, orgID)
	assert.Equal(t, int64(200), quota.TokensUsed)
	assert.Equal(t, int64(1), quota.RequestsUsed)
	assert.Equal(t, int64(900), quota.CostUsedMicro)
}

func TestRecordFailureDoesNotConsumeQuota(t *testing.T) {
	svc, db, _, orgID := setupUsageService(t)

	for _, status := range []string{
		usagedomain.StatusError,
		usagedomain.StatusRateLimited,
		usagedomain.StatusQuotaExceeded,
	} {
		_, err := svc.Record(context.Background(), usagedomain.RecordRequest{
			OrgID:        orgID,
			Provider:     "openai",
			ModelUsed:    "gpt-4o",
			Feature:      usagedomain.FeatureReview,
			Status:       status,
			TokensPrompt: 50,
			ErrorMessage: "upstream failure",
		})
		require.NoError(t, err, status)
	}

	quota := loadQuota(t, db, orgID)
	assert.Zero(t, quota.TokensUsed)
	assert.Zero(t, quota.RequestsUsed)
	assert.Zero(t, quota.CostUsedMicro)

	var count int64
	require.NoError(t, db.Model(&usagedomain.Record{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestRecordTruncatesContent(t *testing.T) {
	svc, _, _, orgID := setupUsageService(t)

	long := strings.Repeat("a", usagedomain.MaxContentLength+500)
	record, err := svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID:            orgID,
		Provider:         "anthropic",
		ModelUsed:        "claude-sonnet-4-20250514",
		Feature:          usagedomain.FeatureSummary,
		Status:           usagedomain.StatusSuccess,
		InputContext:     long,
		GeneratedContent: long,
	})
	require.NoError(t, err)

	assert.Len(t, record.InputContext, usagedomain.MaxContentLength+3)
	assert.True(t, strings.HasSuffix(record.InputContext, "..."))
	assert.True(t, strings.HasSuffix(record.GeneratedContent, "..."))
}

func TestRecordEstimatedCostDefaultsToCalculated(t *testing.T) {
	svc, _, _, orgID := setupUsageService(t)

	record, err := svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID:               orgID,
		Provider:            "google",
		ModelUsed:           "gemini-1.5-pro",
		Feature:             usagedomain.FeatureEdit,
		Status:              usagedomain.StatusSuccess,
		CostCalculatedMicro: 1234,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1234), record.CostEstimatedMicro)
}

func TestRecordRejectsInvalidInputs(t *testing.T) {
	svc, _, _, orgID := setupUsageService(t)

	_, err := svc.Record(context.Background(), usagedomain.RecordRequest{
		Provider: "openai", ModelUsed: "gpt-4o",
		Feature: usagedomain.FeatureEdit, Status: usagedomain.StatusSuccess,
	})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidOrg)

	_, err = svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID: orgID, Provider: "openai", ModelUsed: "gpt-4o",
		Feature: "not_a_feature", Status: usagedomain.StatusSuccess,
	})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidFeature)

	_, err = svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID: orgID, Provider: "openai", ModelUsed: "gpt-4o",
		Feature: usagedomain.FeatureEdit, Status: "maybe",
	})
	assert.ErrorIs(t, err, usagedomain.ErrInvalidStatus)
}

func TestRecordConcurrentSuccessesAggregateExactly(t *testing.T) {
	svc, db, _, orgID := setupUsageService(t)

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := svc.Record(context.Background(), usagedomain.RecordRequest{
					OrgID:               orgID,
					Provider:            "openai",
					ModelUsed:           "gpt-4o-mini",
					Feature:             usagedomain.FeatureSuggestion,
					Status:              usagedomain.StatusSuccess,
					TokensPrompt:        10,
					TokensCompletion:    5,
					CostCalculatedMicro: 3,
				})
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	quota := loadQuota(t, db, orgID)
	assert.Equal(t, int64(workers*perWorker*15), quota.TokensUsed)
	assert.Equal(t, int64(workers*perWorker), quota.RequestsUsed)
	assert.Equal(t, int64(workers*perWorker*3), quota.CostUsedMicro)
}

func TestAttachContract(t *testing.T) {
	svc, _, node, orgID := setupUsageService(t)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	record, err := svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID:     orgID,
		Provider:  "openai",
		ModelUsed: "gpt-4o",
		Feature:   usagedomain.FeatureClauseGen,
		Status:    usagedomain.StatusSuccess,
	})
	require.NoError(t, err)

	contractID := node.Generate()
	require.NoError(t, svc.AttachContract(ctx, record.ID.String(), contractID.String()))

	records, err := svc.List(ctx, usagedomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].ContractID)
	assert.Equal(t, contractID, *records[0].ContractID)

	// Unknown record id is a miss, not a silent no-op.
	err = svc.AttachContract(ctx, node.Generate().String(), contractID.String())
	assert.ErrorIs(t, err, usagedomain.ErrNotFound)
}

func TestSummaryWindows(t *testing.T) {
	svc, _, _, orgID := setupUsageService(t)
	ctx := orgcontext.WithOrgID(context.Background(), int64(orgID))

	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), usagedomain.RecordRequest{
			OrgID:               orgID,
			Provider:            "openai",
			ModelUsed:           "gpt-4o",
			Feature:             usagedomain.FeatureClauseGen,
			Status:              usagedomain.StatusSuccess,
			TokensPrompt:        100,
			TokensCompletion:    50,
			CostCalculatedMicro: 10,
		})
		require.NoError(t, err)
	}
	_, err := svc.Record(context.Background(), usagedomain.RecordRequest{
		OrgID:     orgID,
		Provider:  "anthropic",
		ModelUsed: "claude-sonnet-4-20250514",
		Feature:   usagedomain.FeatureReview,
		Status:    usagedomain.StatusError,
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, summary.Days)
	assert.Equal(t, int64(4), summary.Totals.Requests)
	assert.Equal(t, int64(3), summary.Totals.SuccessfulRequests)
	assert.Equal(t, int64(450), summary.Totals.TokensTotal)
	assert.Equal(t, int64(30), summary.Totals.CostCalculatedMicro)
	assert.Len(t, summary.ByProvider, 2)
}
