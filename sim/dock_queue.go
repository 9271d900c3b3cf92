// Implements the DockQueue, which holds the bikes currently docked at a
// station. Bikes are enqueued on arrival and released oldest-first.

package sim

import (
	"fmt"
	"strings"
)

// DockQueue represents a FIFO queue of docked bikes. Releasing from the
// head guarantees the longest-docked bike departs first, so bikes cycle
// out of a station instead of starving at the back of the rack.
type DockQueue struct {
	queue []*Bike // FIFO queue of bikes
}

// Enqueue adds a bike to the back of the dock queue.
func (dq *DockQueue) Enqueue(b *Bike) {
	dq.queue = append(dq.queue, b)
}

// Dequeue removes and returns the bike at the front of the queue.
// Returns nil if the queue is empty.
func (dq *DockQueue) Dequeue() *Bike {
	if len(dq.queue) == 0 {
		return nil
	}
	head := dq.queue[0]
	dq.queue = dq.queue[1:]
	return head
}

// Peek returns the bike at the front of the queue without removing it.
// Returns nil if the queue is empty.
func (dq *DockQueue) Peek() *Bike {
	if len(dq.queue) == 0 {
		return nil
	}
	return dq.queue[0]
}

// Len returns the number of bikes in the queue.
func (dq *DockQueue) Len() int {
	return len(dq.queue)
}

// Items returns the queue contents for iteration.
// The returned slice is the queue's internal storage -- callers within the
// sim package may iterate over it but MUST NOT append to or reslice it.
func (dq *DockQueue) Items() []*Bike {
	return dq.queue
}

func (dq *DockQueue) String() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, b := range dq.queue {
		sb.WriteString(fmt.Sprint(b.ID))
		if i < len(dq.queue)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
