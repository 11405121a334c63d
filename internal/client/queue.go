package client

import "sync"

// command is one unit of work for the controller's run loop. The reply
// channel is nil for fire-and-forget commands (push signals); callers
// that need the result pass a buffered channel of size 1.
type command struct {
	run   func() error
	reply chan error
}

// commandQueue is a thread-safe FIFO queue feeding the single-writer
// run loop. Unbounded, so enqueuing never blocks a caller; a buffered
// signal channel of size 1 coalesces wakeups for the loop.
type commandQueue struct {
	mu       sync.Mutex
	commands []command
	closed   bool
	signal   chan struct{}
}

func newCommandQueue() *commandQueue {
	return &commandQueue{
		commands: make([]command, 0, 16),
		signal:   make(chan struct{}, 1),
	}
}

// enqueue adds a command to the back of the queue.
// Returns false if the queue is closed; the caller's reply channel, if
// any, will never be written to.
func (q *commandQueue) enqueue(c command) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.commands = append(q.commands, c)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// tryDequeue removes the front command without blocking.
func (q *commandQueue) tryDequeue() (command, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.commands) == 0 {
		return command{}, false
	}
	c := q.commands[0]

	// Nil out the slot so the closure and its captures are collectable.
	q.commands[0] = command{}
	if len(q.commands) == 1 {
		q.commands = q.commands[:0]
	} else {
		q.commands = q.commands[1:]
	}
	return c, true
}

// wait returns the wakeup channel for context-aware waiting in the run
// loop.
func (q *commandQueue) wait() <-chan struct{} {
	return q.signal
}

// close marks the queue closed and wakes any waiter. Pending commands
// stay dequeuable so the shutdown drain can reply to them.
func (q *commandQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
