package reveal

import "sync"

// itemQueue is a mutex-guarded FIFO over reveal items. The sequencer's
// playback goroutine pops one item at a time; Skip drains whatever
// remains. Pop and drain are mutually exclusive, so an item is handed
// out exactly once.
type itemQueue struct {
	mu    sync.Mutex
	items []Item
}

func newItemQueue(items []Item) *itemQueue {
	return &itemQueue{items: append([]Item(nil), items...)}
}

// pop removes and returns the front item. ok is false when the queue is
// empty.
func (q *itemQueue) pop() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Item{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// drain removes and returns every remaining item.
func (q *itemQueue) drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	rest := q.items
	q.items = nil
	return rest
}

// size returns the current queue length.
func (q *itemQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
