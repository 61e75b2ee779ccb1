package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldbot/herald/pkg/types"
)

func change(id, title string, cls types.Classification) types.Change {
	return types.Change{
		Record:         types.EventRecord{ID: id, Title: title, Link: types.Link(id)},
		Classification: cls,
	}
}

func TestOutboundDrainPreservesAppendOrder(t *testing.T) {
	q := newOutboundQueue()
	q.Append(change("a", "A", types.ClassificationNew))
	q.Append(change("b", "B", types.ClassificationNew))
	q.Append(change("c", "C", types.ClassificationUpdated))

	changes := q.Drain()
	require.Len(t, changes, 3)
	assert.Equal(t, "a", changes[0].Record.ID)
	assert.Equal(t, "b", changes[1].Record.ID)
	assert.Equal(t, "c", changes[2].Record.ID)
}

func TestOutboundDrainEmptiesQueue(t *testing.T) {
	q := newOutboundQueue()
	q.Append(change("a", "A", types.ClassificationNew))

	require.Len(t, q.Drain(), 1)
	assert.Empty(t, q.Drain())
	assert.Equal(t, 0, q.Len())
}

func TestOutboundReplaceKeepsPosition(t *testing.T) {
	q := newOutboundQueue()
	q.Append(change("a", "A", types.ClassificationNew))
	q.Append(change("b", "B", types.ClassificationNew))
	q.Append(change("a", "A2", types.ClassificationUpdated))

	changes := q.Drain()
	require.Len(t, changes, 2)
	assert.Equal(t, "a", changes[0].Record.ID)
	assert.Equal(t, "A2", changes[0].Record.Title)
	assert.Equal(t, types.ClassificationUpdated, changes[0].Classification)
	assert.Equal(t, "b", changes[1].Record.ID)
}

func TestOutboundConcurrentAppendAndDrain(t *testing.T) {
	q := newOutboundQueue()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			q.Append(change(fmt.Sprintf("e%d", i), "T", types.ClassificationNew))
		}
	}()

	total := 0
	for {
		total += len(q.Drain())
		select {
		case <-done:
			total += len(q.Drain())
			assert.Equal(t, 1000, total)
			return
		default:
		}
	}
}
