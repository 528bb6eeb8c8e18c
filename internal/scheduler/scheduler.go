// Package scheduler runs the periodic maintenance jobs: monthly quota
// resets and the contract expiry sweep. Both jobs are idempotent, so a
// crashed run is simply retried on the next tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/accordly/accordly/internal/clock"
	contractdomain "github.com/accordly/accordly/internal/contract/domain"
	quotadomain "github.com/accordly/accordly/internal/quota/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler requires db, log, services and clock")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	QuotaSvc    quotadomain.Service
	ContractSvc contractdomain.Service
	Clock       clock.Clock
	Config      Config `optional:"true"`
}

type Scheduler struct {
	db          *gorm.DB
	log         *zap.Logger
	cfg         Config
	clock       clock.Clock
	quotaSvc    quotadomain.Service
	contractSvc contractdomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.QuotaSvc == nil || p.ContractSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	return &Scheduler{
		db:          p.DB,
		log:         p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:         cfg,
		clock:       p.Clock,
		quotaSvc:    p.QuotaSvc,
		contractSvc: p.ContractSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	processed, err := fn(ctx)
	log := s.log.With(
		zap.String("job", name),
		zap.Int("processed", processed),
		zap.Duration("duration", time.Since(start)),
	)

	if err == nil {
		if processed > 0 {
			log.Info("job finished")
		}
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}

	log.Error("job failed", zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) (int, error)
	}{
		{"quota_reset", func(ctx context.Context) (int, error) {
			return s.quotaSvc.ResetDue(ctx, s.clock.Now(), s.cfg.BatchSize)
		}},
		{"contract_expiry", func(ctx context.Context) (int, error) {
			return s.contractSvc.ExpireDue(ctx, s.clock.Now(), s.cfg.BatchSize)
		}},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, job.Run))
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty EnabledJobs enables everything (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
