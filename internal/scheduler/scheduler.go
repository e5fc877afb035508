// Package scheduler runs the summary pipeline on a cron schedule and
// broadcasts the result to authenticated users.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"crypto-summary-bot/internal/bot"
	"crypto-summary-bot/internal/config"
	apperrors "crypto-summary-bot/internal/errors"
	"crypto-summary-bot/internal/summary"
)

const runTimeout = 5 * time.Minute

// Scheduler fires summary broadcasts at configured cron times.
type Scheduler struct {
	cfg         config.ScheduleConfig
	orch        *summary.Orchestrator
	broadcaster *bot.Broadcaster
	logger      zerolog.Logger
	cron        *cron.Cron
}

// New builds a scheduler from config. Returns an error when the configured
// timezone cannot be loaded.
func New(cfg config.ScheduleConfig, orch *summary.Orchestrator, broadcaster *bot.Broadcaster, logger zerolog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfigInvalid, "timezone %q: %v", cfg.Timezone, err)
	}
	return &Scheduler{
		cfg:         cfg,
		orch:        orch,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "scheduler").Logger(),
		cron:        cron.New(cron.WithLocation(loc)),
	}, nil
}

// Start registers the cron entries and begins scheduling. No-op when the
// schedule is disabled.
func (s *Scheduler) Start() error {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("schedule disabled")
		return nil
	}
	for _, spec := range s.cfg.Crons {
		spec := spec
		if _, err := s.cron.AddFunc(spec, func() { s.runOnce(spec) }); err != nil {
			return apperrors.Wrapf(apperrors.ErrConfigInvalid, "cron %q: %v", spec, err)
		}
		s.logger.Info().Str("cron", spec).Str("timezone", s.cfg.Timezone).Msg("summary scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce(spec string) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	s.logger.Info().Str("cron", spec).Msg("scheduled summary starting")
	doc := s.orch.BuildSummary(ctx)
	sent, failed := s.broadcaster.Broadcast(ctx, doc.Text())
	s.logger.Info().Int("sent", sent).Int("failed", failed).Msg("scheduled summary done")
}
