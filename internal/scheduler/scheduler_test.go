package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/churnlab/pkg/logger"
)

type fakeJob struct {
	name  string
	calls atomic.Int32
	fn    func(n int32) error
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return "0 0 3 * * *" }
func (j *fakeJob) Run(ctx context.Context) error {
	n := j.calls.Add(1)
	if j.fn == nil {
		return nil
	}
	return j.fn(n)
}

func fastOptions() Options {
	return Options{MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(logger.Nop(), fastOptions())

	require.NoError(t, s.AddJob(&fakeJob{name: "b"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "a"}), "duplicate")
	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
}

type badSchedule struct{ fakeJob }

func (*badSchedule) Schedule() string { return "not a cron" }

func TestScheduler_InvalidSchedule(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	assert.Error(t, s.AddJob(&badSchedule{fakeJob{name: "x"}}))
}

func TestScheduler_RetryThenSuccess(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	job := &fakeJob{name: "flaky", fn: func(n int32) error {
		if n < 3 {
			return errors.New("transient")
		}
		return nil
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("flaky")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)

	stats := s.GetJobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.NotNil(t, stats.LastSuccess)
}

func TestScheduler_PermanentStopsRetry(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	job := &fakeJob{name: "broken", fn: func(int32) error {
		return Permanent(errors.New("bad input"))
	}}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("broken")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), job.calls.Load())

	stats := s.GetJobStats()["broken"]
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, "bad input", stats.LastError)
	assert.Equal(t, 0.0, stats.SuccessRate)
}

func TestScheduler_ExhaustsRetries(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	job := &fakeJob{name: "down", fn: func(int32) error { return errors.New("db down") }}
	require.NoError(t, s.AddJob(job))

	result, err := s.RunJob("down")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts, "1 + MaxRetries")

	history, err := s.GetJobHistory("down")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestScheduler_UnknownJob(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	_, err := s.RunJob("missing")
	assert.Error(t, err)
	_, err = s.GetJobHistory("missing")
	assert.Error(t, err)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(logger.Nop(), fastOptions())
	require.NoError(t, s.AddJob(&fakeJob{name: "a"}))
	s.Start()

	stats := s.GetJobStats()["a"]
	assert.NotNil(t, stats.NextRun)
	s.Stop()
}

func TestJobHistory(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())
	assert.Empty(t, h.Latest(5))

	for i := 0; i < historyLimit+10; i++ {
		h.AddResult(JobResult{Success: i%2 == 0})
	}
	assert.Len(t, h.Results, historyLimit)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-12)
	assert.Len(t, h.Latest(3), 3)
}

func TestPermanent(t *testing.T) {
	base := errors.New("x")
	err := Permanent(base)
	assert.True(t, IsPermanent(err))
	assert.True(t, errors.Is(err, base))
	assert.False(t, IsPermanent(base))
	assert.Nil(t, Permanent(nil))
}
