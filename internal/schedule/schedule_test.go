package schedule

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	mu      sync.Mutex
	name    string
	calls   int
	failNil error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls++
	return j.failNil
}

func (j *countingJob) callCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.calls
}

func TestNewSchedulerAcceptsNilLogger(t *testing.T) {
	s := New(nil)
	require.NotNil(t, s)
	require.NotNil(t, s.log)
}

func TestRunNowExecutesJobImmediately(t *testing.T) {
	s := New(nil)
	job := &countingJob{name: "sweep"}

	err := s.RunNow(job)
	require.NoError(t, err)
	assert.Equal(t, 1, job.callCount())
}

func TestRunNowPropagatesJobError(t *testing.T) {
	s := New(nil)
	boom := errors.New("boom")
	job := &countingJob{name: "sweep", failNil: boom}

	err := s.RunNow(job)
	assert.True(t, errors.Is(err, boom))
}

func TestAddJobRejectsInvalidExpression(t *testing.T) {
	s := New(nil)
	job := &countingJob{name: "sweep"}

	err := s.AddJob("not a cron expression", job)
	require.Error(t, err)
}

func TestAddJobRunsOnScheduleAndStop(t *testing.T) {
	s := New(nil)
	job := &countingJob{name: "sweep"}

	require.NoError(t, s.AddJob("@every 10ms", job))
	s.Start()

	deadline := time.Now().Add(500 * time.Millisecond)
	for job.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()

	assert.True(t, job.callCount() > 0, "expected the scheduled job to have run at least once")
}
