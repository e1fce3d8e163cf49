package center

import (
	"context"
	"errors"
)

var (
	ErrCenterNotFound = errors.New("center not found")
	ErrSlotNotFound   = errors.New("slot not found")
)

type Repository interface {
	CreateCenter(ctx context.Context, name, city string) (*Center, error)
	GetAllCenters(ctx context.Context) ([]Center, error)
	GetCenterByID(ctx context.Context, id int) (*Center, error)

	CreateSlot(ctx context.Context, centerID, startMinutes, endMinutes, capacity int) (*Slot, error)
	GetSlotsByCenter(ctx context.Context, centerID int) ([]Slot, error)
	GetSlotByID(ctx context.Context, id int) (*Slot, error)
	GetSlotsWithAvailability(ctx context.Context, centerID int) ([]SlotWithAvailability, error)

	// TryIncrementOccupancy claims one seat in the slot. It returns false
	// without error when the slot is already at capacity.
	TryIncrementOccupancy(ctx context.Context, slotID int) (bool, error)

	// DecrementOccupancy releases one seat. Occupancy never drops below zero.
	DecrementOccupancy(ctx context.Context, slotID int) error
}
