package waitlist

import (
	"context"
	"sync"
)

// MemoryQueue is an in-process Queue used in tests and single-node
// deployments without Redis.
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[int][]int
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		queues: make(map[int][]int),
	}
}

func (q *MemoryQueue) Join(_ context.Context, slotID, customerID int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, id := range q.queues[slotID] {
		if id == customerID {
			return ErrAlreadyQueued
		}
	}

	q.queues[slotID] = append(q.queues[slotID], customerID)
	return nil
}

func (q *MemoryQueue) PopNext(_ context.Context, slotID int) (int, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[slotID]
	if len(queue) == 0 {
		return 0, false, nil
	}

	customerID := queue[0]
	q.queues[slotID] = queue[1:]
	return customerID, true, nil
}

func (q *MemoryQueue) RequeueFront(_ context.Context, slotID, customerID int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.queues[slotID] = append([]int{customerID}, q.queues[slotID]...)
	return nil
}

func (q *MemoryQueue) Remove(_ context.Context, slotID, customerID int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[slotID]
	for i, id := range queue {
		if id == customerID {
			q.queues[slotID] = append(queue[:i:i], queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *MemoryQueue) PeekAll(_ context.Context, slotID int) ([]int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queue := q.queues[slotID]
	ids := make([]int, len(queue))
	copy(ids, queue)
	return ids, nil
}

func (q *MemoryQueue) Length(_ context.Context, slotID int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.queues[slotID]), nil
}
