package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/kafka"
)

// Collector buffers match events and publishes them from a single goroutine
// so request handlers never wait on the broker.
type Collector struct {
	publisher kafka.Publisher
	eventCh   chan MatchEvent
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(publisher kafka.Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan MatchEvent, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track enqueues event, dropping it when the buffer is full or the
// collector has been closed.
func (c *Collector) Track(event MatchEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.logger.Debug("analytics event dropped (collector closed)", "timeline_id", event.TimelineID)
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "timeline_id", event.TimelineID)
	}
}

// Close stops accepting events and waits for the publisher loop to exit.
// It is safe to call more than once.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) publish(ctx context.Context, event MatchEvent) {
	if err := c.publisher.Publish(ctx, kafka.Event{Key: event.TimelineID, Value: event}); err != nil {
		c.logger.Error("failed to publish match event", "timeline_id", event.TimelineID, "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}
