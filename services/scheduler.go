package services

import (
	"context"
	"fmt"
	"time"

	"perfect-slate/logging"
	"perfect-slate/models"

	"github.com/robfig/cron/v3"
)

const (
	// jobTimeout bounds a single scheduled ingestion run
	jobTimeout = 2 * time.Minute

	backupTimeout = 30 * time.Minute
)

// OddsJob ingests provider lines for a sport
type OddsJob interface {
	Ingest(ctx context.Context, sport models.Sport) (*IngestSummary, error)
}

// ScoresJob refreshes scores for a sport
type ScoresJob interface {
	Update(ctx context.Context, sport models.Sport) (*ScoreSummary, error)
}

// BackupJob snapshots the database
type BackupJob interface {
	CreateBackup(ctx context.Context) (*BackupSummary, error)
}

// Scheduler runs odds ingestion and score updates on cron specs with a seconds field.
// A run that is still going when its next trigger fires is skipped.
type Scheduler struct {
	cron   *cron.Cron
	odds   OddsJob
	scores ScoresJob
	sports []models.Sport
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger
}

// cronLogger adapts our logger to cron.Logger
type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Zap().Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Zap().Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}

func NewScheduler(odds OddsJob, scores ScoresJob, sports []models.Sport) *Scheduler {
	logger := logging.WithPrefix("Scheduler")
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cronLogger{logger: logger}),
		cron.WithChain(cron.Recover(cronLogger{logger: logger}), cron.SkipIfStillRunning(cronLogger{logger: logger})),
	)
	return &Scheduler{
		cron:   c,
		odds:   odds,
		scores: scores,
		sports: sports,
		logger: logger,
	}
}

// Register adds one odds job and one scores job per sport. An empty spec disables that job.
func (s *Scheduler) Register(oddsSpec, scoresSpec string) error {
	for _, sport := range s.sports {
		sport := sport
		if oddsSpec != "" && s.odds != nil {
			if _, err := s.cron.AddFunc(oddsSpec, func() { s.runOdds(sport) }); err != nil {
				return fmt.Errorf("invalid odds schedule %q: %w", oddsSpec, err)
			}
		}
		if scoresSpec != "" && s.scores != nil {
			if _, err := s.cron.AddFunc(scoresSpec, func() { s.runScores(sport) }); err != nil {
				return fmt.Errorf("invalid scores schedule %q: %w", scoresSpec, err)
			}
		}
	}
	s.logger.Infof("Registered %d jobs for %v", len(s.cron.Entries()), s.sports)
	return nil
}

// RegisterBackup adds a nightly (or any spec) backup run. An empty spec is a no-op.
func (s *Scheduler) RegisterBackup(spec string, job BackupJob) error {
	if spec == "" || job == nil {
		return nil
	}
	if _, err := s.cron.AddFunc(spec, func() { s.runBackup(job) }); err != nil {
		return fmt.Errorf("invalid backup schedule %q: %w", spec, err)
	}
	s.logger.Infof("Registered backup job %q", spec)
	return nil
}

// Start runs the scheduler until Stop or until ctx is cancelled
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron.Start()
	s.logger.Info("Scheduler started")
}

// Stop halts new triggers and waits for running jobs to finish
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) jobContext() (context.Context, context.CancelFunc) {
	return s.contextWithTimeout(jobTimeout)
}

func (s *Scheduler) contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	parent := s.ctx
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, d)
}

func (s *Scheduler) runOdds(sport models.Sport) {
	ctx, cancel := s.jobContext()
	defer cancel()

	if _, err := s.odds.Ingest(ctx, sport); err != nil {
		if rl, ok := AsRateLimitError(err); ok {
			s.logger.Warnf("%s odds ingestion rate limited: %v", sport, rl)
			return
		}
		s.logger.Errorf("%s odds ingestion failed: %v", sport, err)
	}
}

func (s *Scheduler) runScores(sport models.Sport) {
	ctx, cancel := s.jobContext()
	defer cancel()

	if _, err := s.scores.Update(ctx, sport); err != nil {
		s.logger.Errorf("%s score update failed: %v", sport, err)
	}
}

func (s *Scheduler) runBackup(job BackupJob) {
	ctx, cancel := s.contextWithTimeout(backupTimeout)
	defer cancel()

	if _, err := job.CreateBackup(ctx); err != nil {
		s.logger.Errorf("Scheduled backup failed: %v", err)
	}
}
