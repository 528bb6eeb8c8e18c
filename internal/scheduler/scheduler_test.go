package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/accordly/accordly/internal/clock"
	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type quotaSvcStub struct {
	resetDueCalls int
	lastLimit     int
	err           error
}

func (s *quotaSvcStub) Check(context.Context, snowflake.ID, int64, int64) (quotadomain.Decision, error) {
	return quotadomain.Decision{Allowed: true}, nil
}
func (s *quotaSvcStub) Snapshot(context.Context, snowflake.ID) (*quotadomain.Snapshot, error) {
	return nil, nil
}
func (s *quotaSvcStub) Reset(context.Context, snowflake.ID) error { return nil }
func (s *quotaSvcStub) ResetDue(ctx context.Context, now time.Time, limit int) (int, error) {
	s.resetDueCalls++
	s.lastLimit = limit
	if s.err != nil {
		return 0, s.err
	}
	return 2, nil
}
func (s *quotaSvcStub) Suspend(context.Context, snowflake.ID, string) error { return nil }
func (s *quotaSvcStub) Resume(context.Context, snowflake.ID) error          { return nil }
func (s *quotaSvcStub) UpdateLimits(context.Context, snowflake.ID, quotadomain.UpdateLimitsRequest) (*quotadomain.Snapshot, error) {
	return nil, nil
}

type contractSvcStub struct {
	expireDueCalls int
	err            error
}

func (s *contractSvcStub) Create(context.Context, contractdomain.CreateRequest) (*contractdomain.Contract, error) {
	return nil, nil
}
func (s *contractSvcStub) Get(context.Context, string) (*contractdomain.Detail, error) {
	return nil, nil
}
func (s *contractSvcStub) List(context.Context, contractdomain.ListRequest) ([]contractdomain.Contract, error) {
	return nil, nil
}
func (s *contractSvcStub) Update(context.Context, string, contractdomain.UpdateRequest) (*contractdomain.Contract, error) {
	return nil, nil
}
func (s *contractSvcStub) AddParty(context.Context, string, contractdomain.AddPartyRequest) (*contractdomain.Party, error) {
	return nil, nil
}
func (s *contractSvcStub) AddField(context.Context, string, contractdomain.AddFieldRequest) (*contractdomain.Field, error) {
	return nil, nil
}
func (s *contractSvcStub) AssignField(context.Context, string, string, string) (*contractdomain.Field, error) {
	return nil, nil
}
func (s *contractSvcStub) Send(context.Context, string) (*contractdomain.Contract, error) {
	return nil, nil
}
func (s *contractSvcStub) SignField(context.Context, string, string, string) (*contractdomain.SignResult, error) {
	return nil, nil
}
func (s *contractSvcStub) MarkViewed(context.Context, string) (*contractdomain.SigningView, error) {
	return nil, nil
}
func (s *contractSvcStub) Decline(context.Context, string, string, string) error { return nil }
func (s *contractSvcStub) Cancel(context.Context, string) error                  { return nil }
func (s *contractSvcStub) ExpireDue(ctx context.Context, now time.Time, limit int) (int, error) {
	s.expireDueCalls++
	if s.err != nil {
		return 0, s.err
	}
	return 1, nil
}

func newTestScheduler(t *testing.T, quotaSvc quotadomain.Service, contractSvc contractdomain.Service, cfg Config) *Scheduler {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sched, err := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		QuotaSvc:    quotaSvc,
		ContractSvc: contractSvc,
		Clock:       clock.NewFakeClock(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)),
		Config:      cfg,
	})
	require.NoError(t, err)
	return sched
}

func TestRunOnceRunsAllJobs(t *testing.T) {
	quotaSvc := &quotaSvcStub{}
	contractSvc := &contractSvcStub{}
	sched := newTestScheduler(t, quotaSvc, contractSvc, Config{BatchSize: 25})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Equal(t, 1, quotaSvc.resetDueCalls)
	assert.Equal(t, 25, quotaSvc.lastLimit)
	assert.Equal(t, 1, contractSvc.expireDueCalls)
}

func TestRunOnceJobFailureDoesNotStopOthers(t *testing.T) {
	quotaSvc := &quotaSvcStub{err: errors.New("db down")}
	contractSvc := &contractSvcStub{}
	sched := newTestScheduler(t, quotaSvc, contractSvc, Config{})

	err := sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, contractSvc.expireDueCalls)
}

func TestRunOnceTimeoutIsSoft(t *testing.T) {
	quotaSvc := &quotaSvcStub{err: context.DeadlineExceeded}
	contractSvc := &contractSvcStub{}
	sched := newTestScheduler(t, quotaSvc, contractSvc, Config{})

	assert.NoError(t, sched.RunOnce(context.Background()))
}

func TestEnabledJobsFilter(t *testing.T) {
	quotaSvc := &quotaSvcStub{}
	contractSvc := &contractSvcStub{}
	sched := newTestScheduler(t, quotaSvc, contractSvc, Config{EnabledJobs: []string{"contract_expiry"}})

	require.NoError(t, sched.RunOnce(context.Background()))
	assert.Zero(t, quotaSvc.resetDueCalls)
	assert.Equal(t, 1, contractSvc.expireDueCalls)
}

func TestNewRejectsMissingDeps(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, DefaultConfig(), cfg)
}
