package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bkummer/homepi/config"
	"github.com/bkummer/homepi/internal/service"
	"github.com/bkummer/homepi/internal/storage"
)

// jobTimeout bounds a single job run so a hung network call cannot
// wedge the schedule.
const jobTimeout = 2 * time.Minute

// runHistoryRetention is how long run records are kept.
const runHistoryRetention = 90 * 24 * time.Hour

// Scheduler drives the recurring jobs: the morning PTO resolution, the
// hourly host status report, and nightly run-history cleanup.
type Scheduler struct {
	cron  *cron.Cron
	cfg   *config.Config
	pto   *service.PtoService
	host  *service.HostService
	store *storage.Storage
	log   *logrus.Entry
}

func New(cfg *config.Config, pto *service.PtoService, host *service.HostService, store *storage.Storage, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithLocation(cfg.Timezone)),
		cfg:   cfg,
		pto:   pto,
		host:  host,
		store: store,
		log:   log,
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.PtoSchedule, s.runPto); err != nil {
		return fmt.Errorf("add PTO job: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.StatusSchedule, s.runHostStatus); err != nil {
		return fmt.Errorf("add host status job: %w", err)
	}

	if s.store != nil {
		if _, err := s.cron.AddFunc("0 3 * * *", s.pruneHistory); err != nil {
			return fmt.Errorf("add history cleanup job: %w", err)
		}
	}

	s.cron.Start()
	s.log.WithFields(logrus.Fields{
		"tz":     s.cfg.Timezone.String(),
		"pto":    s.cfg.PtoSchedule,
		"status": s.cfg.StatusSchedule,
	}).Info("scheduler started")

	<-ctx.Done()
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runPto() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.pto.Run(ctx, time.Now().In(s.cfg.Timezone)); err != nil {
		s.log.WithError(err).Error("PTO run failed")
	}
}

func (s *Scheduler) runHostStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := s.host.Run(ctx, time.Now().In(s.cfg.Timezone)); err != nil {
		s.log.WithError(err).Error("host status run failed")
	}
}

func (s *Scheduler) pruneHistory() {
	pruned, err := s.store.PruneRuns(time.Now().Add(-runHistoryRetention))
	if err != nil {
		s.log.WithError(err).Error("run history cleanup failed")
		return
	}
	if pruned > 0 {
		s.log.WithField("pruned", pruned).Info("run history cleaned up")
	}
}
