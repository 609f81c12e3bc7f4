package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"filegate/api/internal/service"
	"filegate/api/internal/store"
)

// Scheduler runs the background hygiene passes. Both are optimizations:
// session expiry and share lifecycle are enforced lazily on every read, the
// jobs only keep the stores from accumulating dead entries.
type Scheduler struct {
	cron     *cron.Cron
	sessions store.SessionStore
	shares   *service.ShareService
	log      zerolog.Logger
}

func NewScheduler(sessions store.SessionStore, shares *service.ShareService, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		shares:   shares,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 */5 * * * *", s.reapSessions); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 0 3 * * *", s.cleanupShares); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits up to five seconds for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) reapSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reaped, err := s.sessions.DeleteExpired(ctx, time.Now())
	if err != nil {
		s.log.Error().Err(err).Msg("session reap failed")
		return
	}
	if reaped > 0 {
		s.log.Debug().Int("reaped", reaped).Msg("expired sessions removed")
	}
}

func (s *Scheduler) cleanupShares() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.shares.Cleanup(ctx); err != nil {
		s.log.Error().Err(err).Msg("share cleanup failed")
	}
}
