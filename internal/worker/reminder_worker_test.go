package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs atomic.Int32
	err  error
	at   atomic.Value
}

func (j *countingJob) ProcessDueReminders(_ context.Context, now time.Time) (int, error) {
	j.runs.Add(1)
	j.at.Store(now)
	return 2, j.err
}

func TestSchedule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Schedule
		wantErr bool
	}{
		{"daily", Schedule{At: "18:00"}, false},
		{"interval", Schedule{Every: time.Minute}, false},
		{"interval ignores bad time", Schedule{At: "bogus", Every: time.Minute}, false},
		{"bad time", Schedule{At: "6pm"}, true},
		{"empty", Schedule{}, true},
		{"negative", Schedule{Every: -time.Second}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.s.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSchedule_String(t *testing.T) {
	assert.Equal(t, "daily at 18:00", Schedule{At: "18:00"}.String())
	assert.Equal(t, "every 5m0s", Schedule{Every: 5 * time.Minute}.String())
}

func TestNewReminderWorker_RequiresJob(t *testing.T) {
	_, err := NewReminderWorker(nil, Schedule{At: "18:00"}, nil)
	assert.Error(t, err)
}

func TestReminderWorker_RunOnce(t *testing.T) {
	job := &countingJob{}
	w, err := NewReminderWorker(job, Schedule{At: "18:00"}, nil)
	require.NoError(t, err)
	fixed := time.Date(2024, 1, 15, 18, 0, 0, 0, time.Local)
	w.now = func() time.Time { return fixed }

	sent, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(1), job.runs.Load())
	assert.Equal(t, fixed, job.at.Load())
}

func TestReminderWorker_RunOnceError(t *testing.T) {
	job := &countingJob{err: errors.New("store down")}
	w, err := NewReminderWorker(job, Schedule{At: "18:00"}, nil)
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestReminderWorker_StartStop(t *testing.T) {
	job := &countingJob{}
	w, err := NewReminderWorker(job, Schedule{At: "03:00"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, w.Start(ctx))
	assert.True(t, w.IsRunning())
	assert.Error(t, w.Start(ctx), "second start must fail")

	w.Stop()
	assert.False(t, w.IsRunning())
	w.Stop()
}

func TestReminderWorker_StopsWithContext(t *testing.T) {
	job := &countingJob{}
	w, err := NewReminderWorker(job, Schedule{Every: time.Hour}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return !w.IsRunning() }, time.Second, 10*time.Millisecond)
}
