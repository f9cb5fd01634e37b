package scheduler

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// monthlyReportSpec fires on day 15 of every month at noon
const monthlyReportSpec = "0 12 15 * *"

// Scheduler owns the process-wide cron registered at startup. It is
// independent of request handling; jobs share nothing with handlers
// except the persistent store and the notification queue.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// RegisterMonthlyCommissionReport wires the unpaid-commission flush
// onto the monthly calendar rule
func (s *Scheduler) RegisterMonthlyCommissionReport(run func() error) error {
	_, err := s.cron.AddFunc(monthlyReportSpec, func() {
		s.logger.Info("running monthly unpaid commission report")
		if err := run(); err != nil {
			s.logger.Error("monthly unpaid commission report failed", zap.Error(err))
		}
	})
	return err
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling; a job already running finishes on its own
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
