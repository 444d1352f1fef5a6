package traffic

import (
	"math"
	"sync"
)

// QueueMap stores the number of vehicles waiting on each approach.
type QueueMap struct {
	order  []Direction
	queues map[Direction]int
	mu     sync.RWMutex
}

// NewQueueMap allocates empty queues for dirs, keeping their order.
func NewQueueMap(dirs ...Direction) *QueueMap {
	qm := &QueueMap{
		order:  append([]Direction(nil), dirs...),
		queues: make(map[Direction]int, len(dirs)),
	}
	for _, d := range dirs {
		qm.queues[d] = 0
	}
	return qm
}

// Directions returns the tracked approaches in construction order.
func (qm *QueueMap) Directions() []Direction {
	return append([]Direction(nil), qm.order...)
}

// Len returns the queue length of d; untracked directions are empty.
func (qm *QueueMap) Len(d Direction) int {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	return qm.queues[d]
}

// Lengths snapshots every queue in construction order.
func (qm *QueueMap) Lengths() []int {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	out := make([]int, len(qm.order))
	for i, d := range qm.order {
		out[i] = qm.queues[d]
	}
	return out
}

// Arrive appends one vehicle to d.
func (qm *QueueMap) Arrive(d Direction) {
	qm.mu.Lock()
	if _, ok := qm.queues[d]; ok {
		qm.queues[d]++
	}
	qm.mu.Unlock()
}

// Serve removes up to floor(capacity) vehicles from the front of d and
// returns how many left. It never removes more than are queued.
func (qm *QueueMap) Serve(d Direction, capacity float64) int {
	qm.mu.Lock()
	defer qm.mu.Unlock()
	n, ok := qm.queues[d]
	if !ok || capacity <= 0 {
		return 0
	}
	served := int(math.Floor(math.Min(capacity, float64(n))))
	qm.queues[d] = n - served
	return served
}

// Total is the number of vehicles waiting on all approaches.
func (qm *QueueMap) Total() int {
	qm.mu.RLock()
	defer qm.mu.RUnlock()
	total := 0
	for _, n := range qm.queues {
		total += n
	}
	return total
}

// Reset empties every queue.
func (qm *QueueMap) Reset() {
	qm.mu.Lock()
	for d := range qm.queues {
		qm.queues[d] = 0
	}
	qm.mu.Unlock()
}
