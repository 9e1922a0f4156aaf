package background

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRetentionStore struct {
	mu             sync.Mutex
	sessionCalls   []time.Time
	failureCutoffs []time.Time
	sessionErr     error
}

func (m *mockRetentionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCalls = append(m.sessionCalls, now)
	return 3, m.sessionErr
}

func (m *mockRetentionStore) DeleteLoginFailuresBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failureCutoffs = append(m.failureCutoffs, cutoff)
	return 7, nil
}

func (m *mockRetentionStore) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessionCalls), len(m.failureCutoffs)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunCleanup_UsesRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	store := &mockRetentionStore{}
	cm := NewCleanupManager(store, discardLogger(), time.Hour, 90*24*time.Hour)
	cm.now = func() time.Time { return now }

	cm.runCleanup(context.Background())

	require.Len(t, store.sessionCalls, 1)
	assert.Equal(t, now, store.sessionCalls[0])
	require.Len(t, store.failureCutoffs, 1)
	assert.Equal(t, now.Add(-90*24*time.Hour), store.failureCutoffs[0])
}

func TestRunCleanup_ZeroRetentionKeepsFailures(t *testing.T) {
	store := &mockRetentionStore{}
	cm := NewCleanupManager(store, discardLogger(), time.Hour, 0)

	cm.runCleanup(context.Background())

	sessions, failures := store.counts()
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 0, failures)
}

func TestRunCleanup_SessionErrorStillPurgesFailures(t *testing.T) {
	store := &mockRetentionStore{sessionErr: errors.New("timeout")}
	cm := NewCleanupManager(store, discardLogger(), time.Hour, time.Hour)

	cm.runCleanup(context.Background())

	_, failures := store.counts()
	assert.Equal(t, 1, failures)
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	store := &mockRetentionStore{}
	cm := NewCleanupManager(store, discardLogger(), time.Hour, time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		sessions, _ := store.counts()
		return sessions == 1
	}, time.Second, 10*time.Millisecond)

	cm.Stop()
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
}

func TestStart_ReturnsOnContextCancel(t *testing.T) {
	cm := NewCleanupManager(&mockRetentionStore{}, discardLogger(), time.Hour, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestNewCleanupManager_NonPositiveIntervalUsesDefault(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Minute} {
		t.Run(interval.String(), func(t *testing.T) {
			store := &mockRetentionStore{}
			cm := NewCleanupManager(store, discardLogger(), interval, time.Hour)
			assert.Equal(t, DefaultCleanupInterval, cm.interval)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				cm.Start(ctx)
				close(done)
			}()

			assert.Eventually(t, func() bool {
				sessions, _ := store.counts()
				return sessions == 1
			}, time.Second, 10*time.Millisecond)

			cancel()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("Start did not return after cancel")
			}
		})
	}
}
