// Package waitlist holds the per-slot FIFO of customers waiting for a
// freed seat.
package waitlist

import (
	"context"
	"errors"
)

var ErrAlreadyQueued = errors.New("customer already on waitlist")

type Queue interface {
	// Join appends the customer to the back of the slot's queue.
	// A customer can hold at most one position per slot.
	Join(ctx context.Context, slotID, customerID int) error

	// PopNext removes and returns the head of the queue. ok is false
	// when the queue is empty.
	PopNext(ctx context.Context, slotID int) (customerID int, ok bool, err error)

	// RequeueFront puts a customer back at the head of the queue,
	// used when a popped customer could not be promoted.
	RequeueFront(ctx context.Context, slotID, customerID int) error

	// Remove drops the customer from the queue wherever they stand.
	Remove(ctx context.Context, slotID, customerID int) error

	// PeekAll returns the queued customer ids in order without
	// consuming them.
	PeekAll(ctx context.Context, slotID int) ([]int, error)

	Length(ctx context.Context, slotID int) (int, error)
}
