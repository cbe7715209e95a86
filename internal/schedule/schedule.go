// Package schedule wires periodic scenario-sweep recomputation on top of
// robfig/cron, in the style of a background job scheduler: named jobs
// registered against cron expressions, logged on start/finish/failure.
package schedule

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one recomputation unit a Scheduler can run on a cadence: a
// scenario sweep, a MAC curve recompute, a physical-risk re-run.
type Job interface {
	Name() string
	Run() error
}

// Scheduler runs registered Jobs on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New returns a Scheduler logging through log. A nil log is replaced with a
// discard logger so callers aren't forced to provide one.
func New(log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Scheduler{cron: cron.New(), log: log}
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop waits for any in-flight job to finish, then halts scheduling.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// AddJob registers job against a standard five-field cron expression
// (e.g. "*/15 * * * *" for every 15 minutes, "@hourly", "@every 1h").
func (s *Scheduler) AddJob(expr string, job Job) error {
	_, err := s.cron.AddFunc(expr, func() {
		entry := s.log.WithField("job", job.Name())
		entry.Debug("running scheduled job")
		if err := job.Run(); err != nil {
			entry.WithError(err).Error("scheduled job failed")
			return
		}
		entry.Debug("scheduled job completed")
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"job": job.Name(), "schedule": expr}).Info("job registered")
	return nil
}

// RunNow executes job immediately, outside of its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.log.WithField("job", job.Name()).Info("running job on demand")
	return job.Run()
}
