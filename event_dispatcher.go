package driveauth

import (
	"context"
	"sync"
	"sync/atomic"
)

// eventDispatcher decouples sink latency from the session path. Events are
// queued on a bounded channel and delivered by a single goroutine; Close
// drains whatever is already queued before returning.
//
// Drops are accounted per event type, not just in total: losing a
// session.expired event and losing a session.validated event are very
// different signals to whoever reads the feed.
type eventDispatcher struct {
	sink       EventSink
	ch         chan Event
	done       chan struct{}
	wg         sync.WaitGroup
	dropIfFull bool

	dropped       atomic.Uint64
	droppedMu     sync.Mutex
	droppedByType map[EventType]uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

func newEventDispatcher(cfg EventConfig, sink EventSink) *eventDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &eventDispatcher{
		sink:          sink,
		ch:            make(chan Event, cfg.BufferSize),
		done:          make(chan struct{}),
		dropIfFull:    cfg.DropIfFull,
		droppedByType: make(map[EventType]uint64),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *eventDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

func (d *eventDispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.recordDrop(event.Type)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
	case <-d.done:
	}
}

func (d *eventDispatcher) recordDrop(t EventType) {
	d.dropped.Add(1)
	d.droppedMu.Lock()
	d.droppedByType[t]++
	d.droppedMu.Unlock()
}

func (d *eventDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped reports the total number of events discarded because the buffer
// was full.
func (d *eventDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedByType reports discards broken down by event type.
func (d *eventDispatcher) DroppedByType() map[EventType]uint64 {
	if d == nil {
		return nil
	}
	d.droppedMu.Lock()
	defer d.droppedMu.Unlock()
	out := make(map[EventType]uint64, len(d.droppedByType))
	for t, n := range d.droppedByType {
		out[t] = n
	}
	return out
}
