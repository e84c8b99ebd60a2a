package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/service"
)

type stubChecker struct {
	calls int
	err   error
	ratio float64
}

func (s *stubChecker) RunSLACheck(_ context.Context, warnRatio float64, dryRun bool) (service.SweepResult, error) {
	s.calls++
	s.ratio = warnRatio
	return service.SweepResult{}, s.err
}

func TestSLAWorkerTickRunsSweep(t *testing.T) {
	checker := &stubChecker{}
	w := NewSLAWorker(checker, persistence.NewLocalLocker(), nil, SLAWorkerConfig{LockKey: "sla", WarnRatio: 0.75})

	assert.True(t, w.Tick(context.Background()))
	assert.True(t, w.Tick(context.Background()), "lock must be released after a tick")
	assert.Equal(t, 2, checker.calls)
	assert.Equal(t, 0.75, checker.ratio)
}

func TestSLAWorkerSkipsWhenLockHeld(t *testing.T) {
	locker := persistence.NewLocalLocker()
	release, ok, err := locker.TryLock(context.Background(), "sla", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	defer release()

	checker := &stubChecker{}
	w := NewSLAWorker(checker, locker, nil, SLAWorkerConfig{LockKey: "sla", WarnRatio: 0.8})

	assert.False(t, w.Tick(context.Background()))
	assert.Zero(t, checker.calls)
}

func TestSLAWorkerReportsFailedSweep(t *testing.T) {
	checker := &stubChecker{err: errors.New("db down")}
	w := NewSLAWorker(checker, nil, nil, SLAWorkerConfig{LockKey: "sla", WarnRatio: 0.8})

	assert.False(t, w.Tick(context.Background()))
	assert.Equal(t, 1, checker.calls)
}
