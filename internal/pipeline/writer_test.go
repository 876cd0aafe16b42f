package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"classifier-agent/internal/domain"
)

type recordingAppender struct {
	mu      sync.Mutex
	recs    []domain.ConversationRecord
	err     error
	release chan struct{}
}

func (a *recordingAppender) Append(_ context.Context, rec domain.ConversationRecord) error {
	if a.release != nil {
		<-a.release
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recs = append(a.recs, rec)
	return a.err
}

func (a *recordingAppender) records() []domain.ConversationRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]domain.ConversationRecord(nil), a.recs...)
}

func testRecord(ts int64) domain.ConversationRecord {
	return domain.ConversationRecord{
		UserKey:         "u1",
		TurnTimestamp:   ts,
		RequestText:     "hello",
		PrimaryCategory: domain.CategoryConversation,
		ExpireAt:        time.Now().Add(time.Hour).Unix(),
	}
}

func TestNewHistoryWriter_RequiresStore(t *testing.T) {
	_, err := NewHistoryWriter(nil, testLogger(), 0, 0, 0)
	require.ErrorContains(t, err, "history store")
}

func TestHistoryWriter_WritesEnqueuedRecords(t *testing.T) {
	store := &recordingAppender{}
	w, err := NewHistoryWriter(store, testLogger(), 8, 2, time.Second)
	require.NoError(t, err)

	for i := int64(1); i <= 5; i++ {
		require.True(t, w.Enqueue(testRecord(i)))
	}
	w.Close()

	recs := store.records()
	require.Len(t, recs, 5)
	seen := map[int64]bool{}
	for _, rec := range recs {
		seen[rec.TurnTimestamp] = true
	}
	for i := int64(1); i <= 5; i++ {
		require.True(t, seen[i], "record %d", i)
	}
}

func TestHistoryWriter_FullQueueDropsWithoutBlocking(t *testing.T) {
	store := &recordingAppender{release: make(chan struct{})}
	w, err := NewHistoryWriter(store, testLogger(), 1, 1, time.Second)
	require.NoError(t, err)

	// first record is picked up by the single worker, which blocks on the
	// release gate; the second fills the queue
	require.True(t, w.Enqueue(testRecord(1)))
	require.Eventually(t, func() bool { return len(w.queue) == 0 }, time.Second, time.Millisecond)
	require.True(t, w.Enqueue(testRecord(2)))

	done := make(chan bool, 1)
	go func() { done <- w.Enqueue(testRecord(3)) }()
	select {
	case accepted := <-done:
		require.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}

	close(store.release)
	w.Close()
	require.Len(t, store.records(), 2)
}

func TestHistoryWriter_WriteFailureIsAbsorbed(t *testing.T) {
	store := &recordingAppender{err: errors.New("throttled")}
	w, err := NewHistoryWriter(store, testLogger(), 8, 1, time.Second)
	require.NoError(t, err)

	require.True(t, w.Enqueue(testRecord(1)))
	require.True(t, w.Enqueue(testRecord(2)))
	w.Close()
	require.Len(t, store.records(), 2)
}

func TestHistoryWriter_CloseIsIdempotent(t *testing.T) {
	store := &recordingAppender{}
	w, err := NewHistoryWriter(store, testLogger(), 8, 2, time.Second)
	require.NoError(t, err)

	require.NotPanics(t, func() {
		w.Close()
		w.Close()
	})
}
