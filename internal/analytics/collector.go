package analytics

import (
	"context"
	"log/slog"

	"github.com/textmine/knowledge-extractor/pkg/kafka"
)

const defaultBufferSize = 10000

// Collector forwards analytics events to Kafka through a buffered channel so
// tracking never blocks a request. When the buffer is full, new events are
// dropped rather than backpressuring the caller.
type Collector struct {
	producer *kafka.Producer
	events   chan any
	logger   *slog.Logger
	done     chan struct{}
}

func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Collector{
		producer: producer,
		events:   make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the forwarding goroutine. It runs until ctx is cancelled or
// Close is called; on cancellation, already-buffered events are still sent.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started", "buffer_size", cap(c.events))
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			c.publish(ctx, event)
		case <-ctx.Done():
			c.drain()
			return
		}
	}
}

// Track enqueues an event without blocking.
func (c *Collector) Track(event any) {
	select {
	case c.events <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the forwarder to exit.
func (c *Collector) Close() {
	close(c.events)
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event any) {
	err := c.producer.Publish(ctx, kafka.Event{Key: "analytics", Value: event})
	if err != nil {
		c.logger.Error("failed to publish analytics event", "error", err)
	}
}

// drain flushes whatever is already buffered, using a fresh context because
// the loop's context is cancelled by the time we get here.
func (c *Collector) drain() {
	for {
		select {
		case event, ok := <-c.events:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}
