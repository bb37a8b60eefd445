package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/mjelva/netwarden/internal/errors"
)

type fakeTrigger struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTrigger) StartScan(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeTrigger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestStartAndStop(t *testing.T) {
	s := New(Config{Schedule: "0 3 * * *"}, &fakeTrigger{}, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())

	s.Stop()
	assert.False(t, s.IsRunning())
	assert.True(t, s.NextRun().IsZero())
}

func TestStartTwiceFails(t *testing.T) {
	s := New(Config{Schedule: "@hourly"}, &fakeTrigger{}, nil)

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Error(t, s.Start())
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	s := New(Config{Schedule: "not a cron expression"}, &fakeTrigger{}, nil)

	err := s.Start()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
	assert.False(t, s.IsRunning())
}

func TestStartRejectsEmptySchedule(t *testing.T) {
	s := New(Config{}, &fakeTrigger{}, nil)

	err := s.Start()
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConfiguration))
}

func TestStopIsIdempotent(t *testing.T) {
	s := New(Config{Schedule: "@daily"}, &fakeTrigger{}, nil)
	require.NoError(t, s.Start())

	s.Stop()
	assert.NotPanics(t, s.Stop)
}

func TestTickInvokesTrigger(t *testing.T) {
	trigger := &fakeTrigger{}
	s := New(Config{Schedule: "@daily"}, trigger, nil)

	s.tick(context.Background())

	assert.Equal(t, 1, trigger.callCount())
	assert.False(t, s.LastRun().IsZero())
}

func TestTickAbsorbsBusySession(t *testing.T) {
	trigger := &fakeTrigger{err: apperrors.ErrScanInProgress()}
	s := New(Config{Schedule: "@daily"}, trigger, nil)

	assert.NotPanics(t, func() { s.tick(context.Background()) })
	assert.Equal(t, 1, trigger.callCount())
}

func TestTickAbsorbsScanFailure(t *testing.T) {
	trigger := &fakeTrigger{err: errors.New("engine exploded")}
	s := New(Config{Schedule: "@daily"}, trigger, nil)

	assert.NotPanics(t, func() { s.tick(context.Background()) })
}

func TestDefaultConfigIsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.NotEmpty(t, cfg.Schedule)
}
