package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"classifier-agent/internal/domain"
)

const (
	defaultQueueSize    = 64
	defaultWriteWorkers = 2
)

// HistoryAppender is the store capability the writer needs.
type HistoryAppender interface {
	Append(ctx context.Context, rec domain.ConversationRecord) error
}

// HistoryWriter persists conversation records off the request path. The
// queue is bounded: when it is full the record is dropped and logged rather
// than blocking or growing without limit. Write failures are logged only.
type HistoryWriter struct {
	store   HistoryAppender
	logger  *slog.Logger
	timeout time.Duration

	queue     chan domain.ConversationRecord
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewHistoryWriter starts the worker pool. queueSize and workers fall back
// to defaults when non-positive.
func NewHistoryWriter(store HistoryAppender, logger *slog.Logger, queueSize, workers int, timeout time.Duration) (*HistoryWriter, error) {
	if store == nil {
		return nil, errors.New("pipeline: history store must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWriteWorkers
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	w := &HistoryWriter{
		store:   store,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan domain.ConversationRecord, queueSize),
	}
	w.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go w.run()
	}
	return w, nil
}

func (w *HistoryWriter) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.store.Append(ctx, rec); err != nil {
			w.logger.Error("history write failed",
				"userKey", rec.UserKey, "turnTimestamp", rec.TurnTimestamp, "err", err)
		}
		cancel()
	}
}

// Enqueue hands a record to the worker pool without blocking. It reports
// whether the record was accepted; a full queue drops the record.
func (w *HistoryWriter) Enqueue(rec domain.ConversationRecord) bool {
	select {
	case w.queue <- rec:
		return true
	default:
		w.logger.Warn("history queue full, dropping record",
			"userKey", rec.UserKey, "turnTimestamp", rec.TurnTimestamp)
		return false
	}
}

// Close stops accepting records and waits for in-flight writes to finish.
// Enqueue must not be called after Close.
func (w *HistoryWriter) Close() {
	w.closeOnce.Do(func() {
		close(w.queue)
	})
	w.wg.Wait()
}
