package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func noop(context.Context) error { return nil }

func TestNewRejectsBadSpec(t *testing.T) {
	_, err := New("every tuesday", noop, nil)
	assert.Error(t, err)

	_, err = New("0 6 * * 1", nil, nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, spec := range []string{"0 6 * * 1", "*/15 * * * *", "@weekly", "@every 1h"} {
		assert.NoError(t, Validate(spec), spec)
	}
	for _, spec := range []string{"", "0 6 * *", "61 * * * *", "0 0 6 * * 1"} {
		assert.Error(t, Validate(spec), spec)
	}
}

func TestDefaultSpecIsMondayMorning(t *testing.T) {
	s, err := New("", noop, nil)
	require.NoError(t, err)

	// 2026-03-04 is a Wednesday.
	from := time.Date(2026, 3, 4, 12, 0, 0, 0, time.Local)
	next := s.Next(from)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 6, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, 9, next.Day())
}

func TestTriggerRunsJob(t *testing.T) {
	var calls atomic.Int32
	s, err := New(DefaultSpec, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	s.Trigger()
	s.Trigger()
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(2), s.Runs())
	assert.Zero(t, s.Skipped())
}

func TestTriggerSkipsWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	core, logs := observer.New(zapcore.WarnLevel)

	s, err := New(DefaultSpec, func(context.Context) error {
		close(started)
		<-release
		return nil
	}, zap.New(core))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.Trigger()
		close(done)
	}()
	<-started

	s.Trigger()
	assert.Equal(t, int64(1), s.Skipped())
	assert.Equal(t, 1, logs.FilterMessage("previous run still in progress, skipping tick").Len())

	close(release)
	<-done
	assert.Equal(t, int64(1), s.Runs())
}

func TestJobErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	s, err := New(DefaultSpec, func(context.Context) error {
		return errors.New("network down")
	}, zap.New(core))
	require.NoError(t, err)

	s.Trigger()
	entries := logs.FilterMessage("scheduled run failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "network down", entries[0].ContextMap()["error"])
}

func TestStartStopCancelsRunningJob(t *testing.T) {
	started := make(chan struct{}, 1)
	var jobErr atomic.Value

	s, err := New("@every 1s", func(ctx context.Context) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		jobErr.Store(ctx.Err())
		return ctx.Err()
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not start")
	}

	s.Stop()
	assert.Equal(t, context.Canceled, jobErr.Load())
	assert.Equal(t, int64(1), s.Runs())
}

func TestStopWaitsForTriggeredJob(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	s, err := New(DefaultSpec, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		time.Sleep(100 * time.Millisecond)
		finished.Store(true)
		return ctx.Err()
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	go s.Trigger()
	<-started

	s.Stop()
	assert.True(t, finished.Load(), "Stop returned before the triggered job finished")
	assert.Equal(t, int64(1), s.Runs())
}

func TestTriggerAfterStopIsIgnored(t *testing.T) {
	var calls atomic.Int32
	s, err := New(DefaultSpec, func(context.Context) error {
		calls.Add(1)
		return nil
	}, nil)
	require.NoError(t, err)

	s.Start(context.Background())
	s.Stop()
	s.Trigger()
	assert.Zero(t, calls.Load())
}
