package storage

import (
	"context"
	"sync"
	"time"

	"alert-relay/src/interfaces"
	"alert-relay/src/logger"
	"alert-relay/src/models"
)

// -----------------------------------------------------------------------------
// AlertRecorder
// -----------------------------------------------------------------------------

const (
	recorderBatchSize  = 128
	recorderFlushEvery = 5 * time.Second
	cleanupEvery       = time.Hour
)

// AlertRecorder decouples the fan-out path from storage: Record is a
// non-blocking enqueue, and a background goroutine batches inserts. When
// the queue is full events are dropped; the audit log is best effort and
// must never slow down alert delivery.
type AlertRecorder struct {
	Store  interfaces.IAlertStore
	Logger *logger.Logger

	queue   chan models.MAlertEvent
	dropped int64
	mu      sync.Mutex
}

// -----------------------------------------------------------------------------

func NewAlertRecorder(store interfaces.IAlertStore, log *logger.Logger, queueSize int) *AlertRecorder {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &AlertRecorder{
		Store:  store,
		Logger: log,
		queue:  make(chan models.MAlertEvent, queueSize),
	}
}

// -----------------------------------------------------------------------------

// Record enqueues one event without blocking.
func (r *AlertRecorder) Record(event models.MAlertEvent) {
	select {
	case r.queue <- event:
	default:
		r.mu.Lock()
		r.dropped++
		if r.dropped%100 == 1 {
			r.Logger.Warning("Alert recorder queue full, %d events dropped so far", r.dropped)
		}
		r.mu.Unlock()
	}
}

// -----------------------------------------------------------------------------

// Start launches the batching loop.
func (r *AlertRecorder) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go r.run(ctx, wg)
}

// -----------------------------------------------------------------------------

func (r *AlertRecorder) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	flushTicker := time.NewTicker(recorderFlushEvery)
	cleanupTicker := time.NewTicker(cleanupEvery)
	defer flushTicker.Stop()
	defer cleanupTicker.Stop()

	batch := make([]models.MAlertEvent, 0, recorderBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.Store.SaveAlertsBulk(batch); err != nil {
			r.Logger.Error("Failed to save %d alerts: %v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-r.queue:
			batch = append(batch, event)
			if len(batch) >= recorderBatchSize {
				flush()
			}

		case <-flushTicker.C:
			flush()

		case <-cleanupTicker.C:
			if err := r.Store.CleanupOldData(); err != nil {
				r.Logger.Error("Cleanup failed: %v", err)
			}

		case <-ctx.Done():
			// Drain whatever is already queued, then stop.
			for {
				select {
				case event := <-r.queue:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}
