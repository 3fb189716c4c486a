package audit

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderAndWorker(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	rec := NewRecorder(16, logger)
	store := NewMemory()
	worker := NewWorker(store, rec, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	rec.Record(Event{Action: ActionOperationPersisted, Kind: "registry-create", ResourceID: "reg-1"})
	rec.Record(Event{Action: ActionOperationFailed, Kind: "credential-issue", Detail: "after submitted: timeout"})

	require.Eventually(t, func() bool { return len(store.All()) == 2 }, time.Second, 5*time.Millisecond)

	events := store.All()
	assert.Equal(t, ActionOperationPersisted, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "recorder stamps the time")

	byKind, err := store.ListByKind(context.Background(), "credential-issue", 10)
	require.NoError(t, err)
	require.Len(t, byKind, 1)
	assert.Equal(t, ActionOperationFailed, byKind[0].Action)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	rec := NewRecorder(1, slog.New(slog.DiscardHandler))

	// No worker draining; the second record must not block.
	done := make(chan struct{})
	go func() {
		rec.Record(Event{Action: ActionOperationPersisted, Kind: "a"})
		rec.Record(Event{Action: ActionOperationPersisted, Kind: "b"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}
	assert.Len(t, rec.Events(), 1)
}
