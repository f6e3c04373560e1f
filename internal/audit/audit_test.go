package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MrEthical07/authcore/account"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, account.AuditEvent) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, account.AuditEvent) {
	<-s.gate
}

type fakeLog struct {
	mu     sync.Mutex
	events []account.AuditEvent
	err    error
}

func (l *fakeLog) Append(_ context.Context, ev *account.AuditEvent) error {
	if l.err != nil {
		return l.err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	ev.ID = int64(len(l.events) + 1)
	l.events = append(l.events, *ev)
	return nil
}

func (l *fakeLog) ListByAccount(context.Context, int64, int) ([]account.AuditEvent, error) {
	return nil, nil
}

func TestNilDispatcherIsInert(t *testing.T) {
	var d *Dispatcher
	d.Emit(context.Background(), account.AuditEvent{})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports drops")
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), account.AuditEvent{Details: string(rune('a' + i))})
	}
	d.Close()

	for i := 0; i < 10; i++ {
		select {
		case ev := <-sink.Events():
			if ev.Details != string(rune('a'+i)) {
				t.Fatalf("event %d out of order: %q", i, ev.Details)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d not delivered", i)
		}
	}
}

func TestDispatcherDropIfFullReportsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	var reported atomic.Int64
	d := NewDispatcher(Config{
		BufferSize: 1,
		DropIfFull: true,
		OnDrop:     func(account.AuditEvent) { reported.Add(1) },
	}, sink)

	// One event is held by the blocked consumer, one fills the buffer.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), account.AuditEvent{})
	}
	if d.Dropped() == 0 {
		t.Fatal("expected drops with a blocked sink")
	}
	if uint64(reported.Load()) != d.Dropped() {
		t.Fatalf("OnDrop saw %d events, Dropped() = %d", reported.Load(), d.Dropped())
	}
	close(sink.gate)
	d.Close()
}

func TestDispatcherBlockingRespectsContext(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	var reported atomic.Int64
	d := NewDispatcher(Config{
		BufferSize: 1,
		OnDrop:     func(account.AuditEvent) { reported.Add(1) },
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), account.AuditEvent{})
	d.Emit(context.Background(), account.AuditEvent{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	d.Emit(ctx, account.AuditEvent{})
	if time.Since(start) > time.Second {
		t.Fatal("Emit ignored context cancellation")
	}
	if d.Dropped() != 1 || reported.Load() != 1 {
		t.Fatalf("abandoned event not reported: dropped=%d reported=%d", d.Dropped(), reported.Load())
	}
}

func TestDispatcherDeliversSynchronouslyAfterClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{BufferSize: 4}, sink)
	d.Emit(context.Background(), account.AuditEvent{})
	d.Close()
	d.Close()

	d.Emit(context.Background(), account.AuditEvent{})
	if got := sink.count.Load(); got != 2 {
		t.Fatalf("expected 2 delivered events, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("unexpected drops: %d", d.Dropped())
	}
}

func TestDispatcherCloseRacesEmit(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{BufferSize: 2}, sink)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				d.Emit(context.Background(), account.AuditEvent{})
			}
		}()
	}
	d.Close()
	wg.Wait()

	if got := sink.count.Load(); got != 400 {
		t.Fatalf("expected 400 delivered events, got %d", got)
	}
}

func TestStoreSinkReportsFailures(t *testing.T) {
	log := &fakeLog{err: errors.New("disk full")}
	var reported error
	sink := NewStoreSink(log, func(_ account.AuditEvent, err error) { reported = err })

	sink.Emit(context.Background(), account.AuditEvent{EventType: "login"})
	if reported == nil {
		t.Fatal("expected error handler to run")
	}
}

func TestStoreSinkAppends(t *testing.T) {
	log := &fakeLog{}
	sink := NewStoreSink(log, nil)
	sink.Emit(context.Background(), account.AuditEvent{EventType: "login"})
	if len(log.events) != 1 || log.events[0].ID != 1 {
		t.Fatalf("unexpected log %+v", log.events)
	}
}

func TestMultiSinkAndJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	counter := &countingSink{}
	sink := MultiSink{NewJSONWriterSink(&buf), nil, counter}

	sink.Emit(context.Background(), account.AuditEvent{EventType: "logout", Success: true})

	if counter.count.Load() != 1 {
		t.Fatal("fan-out skipped a sink")
	}
	var decoded map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("invalid json line %q: %v", buf.String(), err)
	}
	if decoded["event_type"] != "logout" || decoded["success"] != true {
		t.Fatalf("unexpected payload %v", decoded)
	}
}
