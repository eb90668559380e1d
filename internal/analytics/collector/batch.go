// Package collector provides a batch-oriented analytics event collector
// that accumulates events in memory and flushes them to Kafka in bulk.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/textmine/knowledge-extractor/pkg/kafka"
)

const (
	defaultBatchSize     = 100
	defaultFlushInterval = 5 * time.Second

	// retainBatches caps how many batches' worth of events survive a failed
	// flush before the oldest are dropped.
	retainBatches = 3
)

// BatchCollector accumulates analytics events and flushes them to Kafka when
// the buffer reaches batchSize or after flushInterval, whichever comes first.
// The searcher uses it because search traffic is far burstier than analysis
// traffic.
type BatchCollector struct {
	producer      *kafka.Producer
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}

	mu     sync.Mutex
	buffer []kafka.Event
}

func NewBatchCollector(producer *kafka.Producer, batchSize int, flushInterval time.Duration) *BatchCollector {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	return &BatchCollector{
		producer:      producer,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "batch-collector"),
		done:          make(chan struct{}),
		buffer:        make([]kafka.Event, 0, batchSize),
	}
}

// Start launches the timed flush loop. On shutdown one final flush runs with
// its own short deadline.
func (bc *BatchCollector) Start(ctx context.Context) {
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				bc.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
}

// Track buffers one event, triggering an async flush when the batch fills.
func (bc *BatchCollector) Track(key string, value any) {
	bc.mu.Lock()
	bc.buffer = append(bc.buffer, kafka.Event{Key: key, Value: value})
	full := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()

	if full {
		go bc.flush(context.Background())
	}
}

// Close waits for the flush loop to finish its final flush.
func (bc *BatchCollector) Close() {
	<-bc.done
}

// BufferLen returns the current number of buffered events.
func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

func (bc *BatchCollector) flush(ctx context.Context) {
	batch := bc.takeBatch()
	if len(batch) == 0 {
		return
	}

	if err := bc.producer.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		bc.requeue(batch)
		return
	}
	bc.logger.Debug("batch flushed", "events", len(batch))
}

func (bc *BatchCollector) takeBatch() []kafka.Event {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if len(bc.buffer) == 0 {
		return nil
	}
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	return batch
}

// requeue puts a failed batch back at the front of the buffer, dropping the
// newest events if the combined buffer exceeds the retention cap.
func (bc *BatchCollector) requeue(batch []kafka.Event) {
	limit := bc.batchSize * retainBatches

	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.buffer = append(batch, bc.buffer...)
	if len(bc.buffer) > limit {
		bc.logger.Warn("buffer overflow, events dropped", "dropped", len(bc.buffer)-limit)
		bc.buffer = bc.buffer[:limit]
	}
}
