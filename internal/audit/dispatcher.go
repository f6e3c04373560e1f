package audit

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/MrEthical07/authcore/account"
)

// Config controls dispatcher buffering.
type Config struct {
	BufferSize int
	// DropIfFull discards events when the buffer is full instead of
	// waiting for room.
	DropIfFull bool
	// OnDrop is told about every event the dispatcher could not deliver.
	OnDrop func(event account.AuditEvent)
}

// Dispatcher relays audit events to a sink from a single consumer
// goroutine, so events reach the sink in emission order. Once closed it
// delivers synchronously; it never silently forgets an event.
type Dispatcher struct {
	cfg     Config
	sink    Sink
	queue   chan account.AuditEvent
	drained chan struct{}
	dropped atomic.Uint64

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher starts the consumer goroutine.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:     cfg,
		sink:    sink,
		queue:   make(chan account.AuditEvent, cfg.BufferSize),
		drained: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.drained)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With DropIfFull a full buffer drops the event;
// otherwise Emit waits for room or for ctx to end. Dropped events are
// counted and passed to Config.OnDrop. After Close the event is handed to
// the sink directly, once everything queued before it has been delivered.
func (d *Dispatcher) Emit(ctx context.Context, event account.AuditEvent) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		<-d.drained
		d.sink.Emit(ctx, event)
		return
	}
	defer d.mu.RUnlock()

	if d.cfg.DropIfFull {
		select {
		case d.queue <- event:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.drop(event)
	}
}

func (d *Dispatcher) drop(event account.AuditEvent) {
	d.dropped.Add(1)
	if d.cfg.OnDrop != nil {
		d.cfg.OnDrop(event)
	}
}

// Close delivers everything already queued and switches the dispatcher to
// synchronous delivery. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.drained
}

// Dropped reports how many events were discarded.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
