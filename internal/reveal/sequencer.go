package reveal

import (
	"sync"
	"time"
)

// RenderFunc receives each dequeued item. revealed is true when the
// item is being flushed by Skip rather than played on the timer.
type RenderFunc func(item Item, revealed bool)

// Delays holds the kind-dependent inter-item delays.
type Delays struct {
	// Header applies after header and separator items.
	Header time.Duration
	// Event applies after event and detail items.
	Event time.Duration
}

// DefaultDelays paces a readable playback.
var DefaultDelays = Delays{
	Header: 400 * time.Millisecond,
	Event:  1100 * time.Millisecond,
}

// Config configures a Sequencer.
type Config struct {
	// Render is invoked for every item, exactly once per item.
	Render RenderFunc

	// OnComplete fires exactly once per playback, on natural exhaustion
	// or on Skip. It is the only trigger that refreshes the persistent
	// event log view.
	OnComplete func()

	// Delays overrides DefaultDelays when non-zero.
	Delays Delays

	// After overrides time.After for tests.
	After func(d time.Duration) <-chan time.Time
}

// Sequencer plays reveal queues one item at a time. At most one
// playback is in flight; starting a new one force-skips the prior.
type Sequencer struct {
	render RenderFunc
	onDone func()
	delays Delays
	after  func(d time.Duration) <-chan time.Time

	mu sync.Mutex
	pb *playback
}

// playback is the state of one queue run. A fresh playback is built per
// turn summary; queues are never reused or appended to mid-flight.
type playback struct {
	q    *itemQueue
	stop chan struct{}

	// renderMu serializes the playback goroutine's pop+render step with
	// Skip's drain, keeping rendered order strictly FIFO.
	renderMu sync.Mutex

	stopOnce sync.Once
	doneOnce sync.Once
}

// NewSequencer creates a sequencer. cfg.Render must be non-nil.
func NewSequencer(cfg Config) *Sequencer {
	if cfg.Render == nil {
		panic("reveal: Config.Render is required")
	}
	s := &Sequencer{
		render: cfg.Render,
		onDone: cfg.OnComplete,
		delays: cfg.Delays,
		after:  cfg.After,
	}
	if s.delays == (Delays{}) {
		s.delays = DefaultDelays
	}
	if s.after == nil {
		s.after = time.After
	}
	return s
}

// Play starts a new playback over items. Any in-flight playback is
// force-terminated via Skip first, so its remaining items flush and its
// completion fires before the new queue starts.
func (s *Sequencer) Play(items []Item) {
	s.Skip()

	pb := &playback{
		q:    newItemQueue(items),
		stop: make(chan struct{}),
	}
	s.mu.Lock()
	s.pb = pb
	s.mu.Unlock()

	go s.run(pb)
}

// Skip terminates the current playback: the remaining queue is drained,
// every remaining item renders immediately marked as revealed, and the
// completion callback fires. Safe to call at any time; a no-op when
// nothing is playing.
func (s *Sequencer) Skip() {
	s.mu.Lock()
	pb := s.pb
	s.pb = nil
	s.mu.Unlock()

	if pb == nil {
		return
	}

	pb.stopOnce.Do(func() { close(pb.stop) })

	pb.renderMu.Lock()
	rest := pb.q.drain()
	pb.renderMu.Unlock()

	for _, item := range rest {
		s.render(item, true)
	}
	s.finish(pb)
}

// Active reports whether a playback is in flight.
func (s *Sequencer) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pb != nil
}

func (s *Sequencer) run(pb *playback) {
	for {
		pb.renderMu.Lock()
		if stopped(pb.stop) {
			pb.renderMu.Unlock()
			return
		}
		item, ok := pb.q.pop()
		if ok {
			s.render(item, false)
		}
		pb.renderMu.Unlock()

		if !ok {
			break
		}

		select {
		case <-s.after(s.delayFor(item.Kind)):
		case <-pb.stop:
			return
		}
	}

	s.mu.Lock()
	if s.pb == pb {
		s.pb = nil
	}
	s.mu.Unlock()
	s.finish(pb)
}

func (s *Sequencer) finish(pb *playback) {
	pb.doneOnce.Do(func() {
		if s.onDone != nil {
			s.onDone()
		}
	})
}

func (s *Sequencer) delayFor(k Kind) time.Duration {
	switch k {
	case KindHeader, KindSeparator:
		return s.delays.Header
	default:
		return s.delays.Event
	}
}

func stopped(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
