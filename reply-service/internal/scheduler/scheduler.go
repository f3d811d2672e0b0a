package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"writemystory/pkg/metrics"
)

type OutboxReplayer interface {
	ReplayFailedEvents(ctx context.Context, limit int) (int, error)
}

type UnmatchedCounter interface {
	CountUnmatchedBefore(ctx context.Context, cutoff time.Time) (int, error)
}

type Config struct {
	// cron specs; an empty spec disables the job
	OutboxReplaySpec    string
	OutboxReplayLimit   int
	UnmatchedReportSpec string
	UnmatchedAge        time.Duration
}

// Scheduler runs periodic maintenance jobs
type Scheduler struct {
	cronEngine *cron.Cron
	replayer   OutboxReplayer
	responses  UnmatchedCounter
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
}

func New(replayer OutboxReplayer, responses UnmatchedCounter, cfg Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		replayer:   replayer,
		responses:  responses,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

// Start registers the jobs and starts the cron engine
func (s *Scheduler) Start() error {
	if s.cfg.OutboxReplaySpec != "" {
		if _, err := s.cronEngine.AddFunc(s.cfg.OutboxReplaySpec, s.RunOutboxReplay); err != nil {
			return fmt.Errorf("add outbox replay job: %w", err)
		}
	}
	if s.cfg.UnmatchedReportSpec != "" {
		if _, err := s.cronEngine.AddFunc(s.cfg.UnmatchedReportSpec, s.RunUnmatchedReport); err != nil {
			return fmt.Errorf("add unmatched report job: %w", err)
		}
	}

	s.cronEngine.Start()
	s.logger.Info("Scheduler started",
		zap.String("outbox_replay_spec", s.cfg.OutboxReplaySpec),
		zap.String("unmatched_report_spec", s.cfg.UnmatchedReportSpec),
	)
	return nil
}

// Stop waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}

// RunOutboxReplay republishes events that exhausted their dispatcher retries
func (s *Scheduler) RunOutboxReplay() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := s.replayer.ReplayFailedEvents(ctx, s.cfg.OutboxReplayLimit)
	if err != nil {
		s.logger.Error("Scheduled outbox replay failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("Scheduled outbox replay", zap.Int("replayed", n))
	}
}

// RunUnmatchedReport publishes the backlog of email replies nobody has placed yet
func (s *Scheduler) RunUnmatchedReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cutoff := s.now().Add(-s.cfg.UnmatchedAge)
	n, err := s.responses.CountUnmatchedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Unmatched reply report failed", zap.Error(err))
		return
	}

	metrics.UnmatchedEmailBacklog.Set(float64(n))
	if n > 0 {
		s.logger.Warn("Email replies waiting for a question",
			zap.Int("count", n),
			zap.Time("older_than", cutoff),
		)
	}
}
