package kata

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func TestDefaultRunScheduler_RunOnce(t *testing.T) {
	var calls atomic.Int32
	scheduler := NewDefaultRunScheduler(10*time.Millisecond, true, testLogger())
	scheduler.RegisterCallback(func(context.Context) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, scheduler.Start(context.Background()))
	assert.Equal(t, int32(1), calls.Load(), "Expected callback to be called exactly once")

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "run-once mode must not schedule further runs")
}

func TestDefaultRunScheduler_Periodic(t *testing.T) {
	callChan := make(chan struct{}, 100)
	scheduler := NewDefaultRunScheduler(10*time.Millisecond, false, testLogger())
	scheduler.RegisterCallback(func(context.Context) error {
		callChan <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, scheduler.Start(ctx))

	for i := 0; i < 4; i++ {
		select {
		case <-callChan:
		case <-time.After(time.Second):
			t.Fatalf("Timed out waiting for callback execution %d/4", i+1)
		}
	}

	require.NoError(t, scheduler.Stop())
	require.NoError(t, scheduler.WaitForShutdown(ctx))
	assert.True(t, scheduler.Stopped())

	// drain anything that raced the stop, then expect silence
	for len(callChan) > 0 {
		<-callChan
	}
	select {
	case <-callChan:
		t.Fatal("callback ran after shutdown")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDefaultRunScheduler_ContextCancel(t *testing.T) {
	scheduler := NewDefaultRunScheduler(time.Hour, false, testLogger())
	scheduler.RegisterCallback(func(context.Context) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))
	assert.False(t, scheduler.Stopped())

	cancel()
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, scheduler.WaitForShutdown(waitCtx))
	assert.True(t, scheduler.Stopped())
}

func TestDefaultRunScheduler_CallbackError(t *testing.T) {
	expectedError := errors.New("callback error")
	scheduler := NewDefaultRunScheduler(0, true, testLogger())
	scheduler.RegisterCallback(func(context.Context) error {
		return expectedError
	})

	err := scheduler.Start(context.Background())
	assert.Equal(t, expectedError, err)
}

func TestDefaultRunScheduler_InvalidStart(t *testing.T) {
	scheduler := NewDefaultRunScheduler(0, true, testLogger())
	err := scheduler.Start(context.Background())
	assert.ErrorContains(t, err, "callback must be registered")

	scheduler = NewDefaultRunScheduler(0, false, testLogger())
	scheduler.RegisterCallback(func(context.Context) error { return nil })
	err = scheduler.Start(context.Background())
	assert.ErrorContains(t, err, "interval must be positive")
}

func TestDefaultRunScheduler_StopIdempotent(t *testing.T) {
	scheduler := NewDefaultRunScheduler(time.Hour, true, testLogger())
	scheduler.RegisterCallback(func(context.Context) error { return nil })

	assert.NoError(t, scheduler.Stop(), "Stop should be idempotent")
	assert.NoError(t, scheduler.Stop(), "Second stop should also succeed")
}
