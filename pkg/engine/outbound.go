package engine

import (
	"sync"

	"github.com/heraldbot/herald/pkg/types"
)

// outboundQueue buffers changes awaiting drain by the presentation
// collaborator. Each event id appears at most once: re-appending a
// still-queued id replaces the previous entry in place, keeping its
// position.
type outboundQueue struct {
	mu    sync.Mutex
	order []string
	byID  map[string]types.Change
}

func newOutboundQueue() *outboundQueue {
	return &outboundQueue{
		byID: make(map[string]types.Change),
	}
}

func (q *outboundQueue) Append(ch types.Change) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, queued := q.byID[ch.Record.ID]; !queued {
		q.order = append(q.order, ch.Record.ID)
	}
	q.byID[ch.Record.ID] = ch
}

// Drain atomically removes and returns the queue contents in append
// order.
func (q *outboundQueue) Drain() []types.Change {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.order) == 0 {
		return nil
	}

	changes := make([]types.Change, 0, len(q.order))
	for _, id := range q.order {
		changes = append(changes, q.byID[id])
	}
	q.order = nil
	q.byID = make(map[string]types.Change)
	return changes
}

func (q *outboundQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.order)
}
