// Package scheduler advances active programs to the current day on a cron schedule.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	"go.uber.org/zap"
)

const syncTimeout = 5 * time.Minute

// DaySyncer recomputes the current day of active programs.
type DaySyncer interface {
	SyncCurrentDays(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron    *cron.Cron
	syncer  DaySyncer
	running sync.Mutex // held while a sync runs; overlapping ticks are skipped
	jobs    sync.WaitGroup
	logger  *zap.Logger
}

// New registers the day sync under spec, e.g. "@every 1h" or "0 5 * * * *".
func New(spec string, syncer DaySyncer, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		syncer: syncer,
		logger: logger,
	}
	if err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, errors.Wrapf(err, "invalid scheduler spec %q", spec)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the schedule and waits for a sync in progress.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.jobs.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	s.jobs.Add(1)
	defer s.jobs.Done()
	if !s.running.TryLock() {
		s.logger.Warn("previous day sync still running, skipping")
		return
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("day sync failed", zap.Error(err))
	}
}

// RunOnce syncs all active programs now.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := s.syncer.SyncCurrentDays(ctx)
	s.logger.Info("day sync finished", zap.Int("updated", n), zap.Duration("took", time.Since(start)))
	return n, err
}
