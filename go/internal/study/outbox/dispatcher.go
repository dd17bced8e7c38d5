package outbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	Workers        int
	QueueSize      int
	PublishTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:        4,
		QueueSize:      1024,
		PublishTimeout: 10 * time.Second,
	}
}

// Dispatcher fans queued events out to registered publishers on a worker pool.
// Enqueue never blocks; nothing is retried.
type Dispatcher struct {
	config Config
	queue  chan OutboxEvent

	mu         sync.RWMutex
	byType     map[string][]EventPublisher
	everyEvent []EventPublisher
	running    bool
	wg         sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func NewDispatcher(cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	return &Dispatcher{
		config: cfg,
		queue:  make(chan OutboxEvent, cfg.QueueSize),
		byType: make(map[string][]EventPublisher),
	}
}

// Register routes events of eventType to p.
func (d *Dispatcher) Register(eventType string, p EventPublisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byType[eventType] = append(d.byType[eventType], p)
}

// RegisterAll routes every event to p.
func (d *Dispatcher) RegisterAll(p EventPublisher) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.everyEvent = append(d.everyEvent, p)
}

// Enqueue queues an event, dropping it when the queue is full.
func (d *Dispatcher) Enqueue(event OutboxEvent) bool {
	select {
	case d.queue <- event:
		return true
	default:
		d.dropped.Add(1)
		log.Warn().
			Str("event_id", event.ID.String()).
			Str("event_type", event.EventType).
			Str("session_id", event.SessionID).
			Msg("outbox queue full, dropping event")
		return false
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("outbox dispatcher already running")
	}
	d.running = true
	d.mu.Unlock()

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}

	log.Info().
		Int("workers", d.config.Workers).
		Int("queue_size", d.config.QueueSize).
		Msg("outbox dispatcher started")
	return nil
}

// Wait blocks until every worker has exited.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Stats returns counters for the info endpoint.
func (d *Dispatcher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"processed": d.processed.Load(),
		"failed":    d.failed.Load(),
		"dropped":   d.dropped.Load(),
		"queued":    len(d.queue),
	}
}

func (d *Dispatcher) worker(ctx context.Context, workerID int) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", workerID).Msg("outbox worker shutting down")
			return
		case event := <-d.queue:
			d.dispatch(ctx, event)
		}
	}
}

func (d *Dispatcher) publishers(eventType string) []EventPublisher {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]EventPublisher, 0, len(d.byType[eventType])+len(d.everyEvent))
	out = append(out, d.byType[eventType]...)
	return append(out, d.everyEvent...)
}

func (d *Dispatcher) dispatch(ctx context.Context, event OutboxEvent) {
	targets := d.publishers(event.EventType)
	if len(targets) == 0 {
		log.Debug().Str("event_type", event.EventType).Msg("no publisher registered for event")
		d.processed.Add(1)
		return
	}

	failed := false
	for _, p := range targets {
		pubCtx, cancel := context.WithTimeout(ctx, d.config.PublishTimeout)
		err := p.Publish(pubCtx, event)
		cancel()
		if err != nil {
			failed = true
			log.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Str("session_id", event.SessionID).
				Msg("failed to publish outbox event")
		}
	}

	if failed {
		d.failed.Add(1)
		return
	}
	d.processed.Add(1)
}
