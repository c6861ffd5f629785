package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test error")

func testConfig() Config {
	return Config{
		FailureThreshold:    2,
		SuccessThreshold:    2,
		Timeout:             50 * time.Millisecond,
		MaxRequestsHalfOpen: 3,
	}
}

func openCircuit(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func() error { return errTest })
	}
	require.Equal(t, StateOpen, cb.GetState())
}

func TestClosedStatePassesThrough(t *testing.T) {
	cb := New(DefaultConfig())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestErrorsReturnedUnwrapped(t *testing.T) {
	cb := New(DefaultConfig())

	err := cb.Execute(context.Background(), func() error { return errTest })
	assert.ErrorIs(t, err, errTest)
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestOpensAfterThresholdAndRejects(t *testing.T) {
	cb := New(testConfig())
	openCircuit(t, cb)

	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestHalfOpenClosesAfterSuccesses(t *testing.T) {
	cb := New(testConfig())
	openCircuit(t, cb)

	time.Sleep(60 * time.Millisecond)

	for i := 0; i < 2; i++ {
		err := cb.Execute(context.Background(), func() error { return nil })
		require.NoError(t, err)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig())
	openCircuit(t, cb)

	time.Sleep(60 * time.Millisecond)

	err := cb.Execute(context.Background(), func() error { return errTest })
	assert.ErrorIs(t, err, errTest)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestStateChangeCallback(t *testing.T) {
	cb := New(testConfig())

	var mu sync.Mutex
	var transitions []State
	cb.OnStateChange(func(from, to State) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, to)
	})

	openCircuit(t, cb)
	time.Sleep(60 * time.Millisecond)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), func() error { return nil })
	}
	// Callbacks run async.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, transitions, StateOpen)
	assert.Contains(t, transitions, StateClosed)
}

func TestReset(t *testing.T) {
	cb := New(testConfig())
	openCircuit(t, cb)

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())

	err := cb.Execute(context.Background(), func() error { return nil })
	assert.NoError(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	cb := New(DefaultConfig())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = cb.Execute(context.Background(), func() error { return nil })
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(99).String())
}
