package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/accordly/accordly/internal/clock"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/accordly/accordly/internal/quota/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupQuotaService(t *testing.T, clk clock.Clock) (quotadomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&quotadomain.Quota{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, db, node
}

func seedQuota(t *testing.T, db *gorm.DB, node *snowflake.Node, mutate func(*quotadomain.Quota)) snowflake.ID {
	t.Helper()

	orgID := node.Generate()
	quota := &quotadomain.Quota{
		ID:          node.Generate(),
		OrgID:       orgID,
		NextResetAt: quotadomain.NextMonthStart(time.Now().UTC()),
	}
	if mutate != nil {
		mutate(quota)
	}
	require.NoError(t, db.Create(quota).Error)
	return orgID
}

func int64ptr(v int64) *int64 { return &v }

func TestCheckAllowsWithinLimits(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.MonthlyTokenLimit = int64ptr(1000)
		q.TokensUsed = 950
	})

	decision, err := svc.Check(context.Background(), orgID, 40, 0)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Empty(t, decision.Reason)
}

func TestCheckDeniesTokenLimit(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.MonthlyTokenLimit = int64ptr(1000)
		q.TokensUsed = 950
	})

	decision, err := svc.Check(context.Background(), orgID, 100, 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, quotadomain.ReasonTokenLimitExceeded, decision.Reason)
}

func TestCheckAllowsExactlyAtLimit(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.MonthlyTokenLimit = int64ptr(1000)
		q.TokensUsed = 950
	})

	// used + estimate == limit is still admitted; only exceeding denies.
	decision, err := svc.Check(context.Background(), orgID, 50, 0)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckDeniesRequestLimit(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.MonthlyRequestLimit = int64ptr(100)
		q.RequestsUsed = 100
	})

	decision, err := svc.Check(context.Background(), orgID, 10, 0)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, quotadomain.ReasonRequestLimitExceeded, decision.Reason)
}

func TestCheckDeniesCostLimit(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.MonthlyCostLimitMicro = int64ptr(5_000_000)
		q.CostUsedMicro = 4_999_999
	})

	decision, err := svc.Check(context.Background(), orgID, 0, 2)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, quotadomain.ReasonCostLimitExceeded, decision.Reason)
}

func TestCheckSuspensionWinsOverLimits(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.IsSuspended = true
		q.SuspendReason = "billing hold"
		q.MonthlyTokenLimit = int64ptr(10)
		q.TokensUsed = 100
	})

	decision, err := svc.Check(context.Background(), orgID, 1000, 1000)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, quotadomain.ReasonSuspended, decision.Reason)
}

func TestCheckNilLimitsNeverDeny(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.TokensUsed = 1 << 40
		q.RequestsUsed = 1 << 30
		q.CostUsedMicro = 1 << 50
	})

	decision, err := svc.Check(context.Background(), orgID, 1<<20, 1<<20)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckUnknownOrg(t *testing.T) {
	svc, _, node := setupQuotaService(t, clock.NewSystemClock())

	_, err := svc.Check(context.Background(), node.Generate(), 1, 1)
	assert.ErrorIs(t, err, quotadomain.ErrNotFound)
}

func TestSuspendResume(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, nil)

	require.NoError(t, svc.Suspend(context.Background(), orgID, "abuse"))

	snap, err := svc.Snapshot(context.Background(), orgID)
	require.NoError(t, err)
	assert.True(t, snap.IsSuspended)
	assert.Equal(t, "abuse", snap.SuspendReason)

	require.NoError(t, svc.Resume(context.Background(), orgID))

	snap, err = svc.Snapshot(context.Background(), orgID)
	require.NoError(t, err)
	assert.False(t, snap.IsSuspended)
	assert.Empty(t, snap.SuspendReason)
}

func TestUpdateLimitsRejectsNegative(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, nil)

	_, err := svc.UpdateLimits(context.Background(), orgID, quotadomain.UpdateLimitsRequest{
		MonthlyTokenLimit: int64ptr(-1),
	})
	assert.ErrorIs(t, err, quotadomain.ErrInvalidRequest)
}

func TestUpdateLimitsClearsWithNil(t *testing.T) {
	svc, db, node := setupQuotaService(t, clock.NewSystemClock())
	orgID := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.MonthlyTokenLimit = int64ptr(1000)
	})

	snap, err := svc.UpdateLimits(context.Background(), orgID, quotadomain.UpdateLimitsRequest{
		MonthlyRequestLimit: int64ptr(500),
	})
	require.NoError(t, err)
	assert.Nil(t, snap.Tokens.Limit)
	require.NotNil(t, snap.Requests.Limit)
	assert.Equal(t, int64(500), *snap.Requests.Limit)
}

func TestResetDueAdvancesNextReset(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 1, 0, time.UTC)
	fake := clock.NewFakeClock(now)
	svc, db, node := setupQuotaService(t, fake)

	due := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.TokensUsed = 500
		q.RequestsUsed = 7
		q.CostUsedMicro = 123
		q.NextResetAt = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	})
	notDue := seedQuota(t, db, node, func(q *quotadomain.Quota) {
		q.TokensUsed = 42
		q.NextResetAt = time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	})

	processed, err := svc.ResetDue(context.Background(), fake.Now(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	snap, err := svc.Snapshot(context.Background(), due)
	require.NoError(t, err)
	assert.Zero(t, snap.Tokens.Used)
	assert.Zero(t, snap.Requests.Used)
	assert.Zero(t, snap.CostMicro.Used)
	assert.Equal(t, time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC), snap.NextResetAt.UTC())

	snap, err = svc.Snapshot(context.Background(), notDue)
	require.NoError(t, err)
	assert.Equal(t, int64(42), snap.Tokens.Used)

	// A second sweep at the same instant finds nothing due.
	processed, err = svc.ResetDue(context.Background(), fake.Now(), 10)
	require.NoError(t, err)
	assert.Zero(t, processed)
}

func TestNextMonthStartYearRollover(t *testing.T) {
	next := quotadomain.NextMonthStart(time.Date(2026, time.December, 15, 10, 30, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC), next)
}
