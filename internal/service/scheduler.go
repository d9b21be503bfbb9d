package service

import (
	"context"
	"errors"

	"folio/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler refreshes the portfolio on a cron schedule, on top of the
// refreshes that load and mutations trigger.
type Scheduler struct {
	portfolio *Portfolio
	cron      *cron.Cron
	log       *logrus.Logger
}

func NewScheduler(p *Portfolio, log *logrus.Logger) *Scheduler {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))))
	return &Scheduler{portfolio: p, cron: c, log: log}
}

// Start schedules refreshes with spec (e.g. "@every 5m") until ctx is done.
// An empty spec disables scheduling.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	if spec == "" {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.refresh(ctx) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("scheduled refresh %q", spec)

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.log.Info("refresh scheduler stopping")
	}()
	return nil
}

func (s *Scheduler) refresh(ctx context.Context) {
	res, err := s.portfolio.Refresh(ctx)
	switch {
	case errors.Is(err, models.ErrAuthExpired):
		s.log.Debug("scheduled refresh skipped: session expired")
	case err != nil:
		s.log.Warnf("scheduled refresh failed: %v", err)
	default:
		s.log.Debugf("scheduled refresh: %d updated, %d failed", len(res.Updated), len(res.Failed))
	}
}
