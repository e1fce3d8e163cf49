package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"fitbook/internal/center"
	"fitbook/internal/logger"
)

// MemoryRepository is an in-process Repository sharing slot state with a
// center.MemoryRepository. Used in tests and single-node deployments
// without Postgres.
type MemoryRepository struct {
	mu           sync.Mutex
	reservations map[int]*Reservation
	nextID       int
	slots        *center.MemoryRepository
}

func NewMemoryRepository(slots *center.MemoryRepository) *MemoryRepository {
	return &MemoryRepository{
		reservations: make(map[int]*Reservation),
		nextID:       1,
		slots:        slots,
	}
}

func (m *MemoryRepository) CreateReservation(_ context.Context, userID, slotID int, status string) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.createLocked(userID, slotID, status), nil
}

func (m *MemoryRepository) createLocked(userID, slotID int, status string) *Reservation {
	reservation := &Reservation{
		ID:        m.nextID,
		UserID:    userID,
		SlotID:    slotID,
		Status:    status,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.reservations[reservation.ID] = reservation

	copied := *reservation
	return &copied
}

func (m *MemoryRepository) GetReservationByID(_ context.Context, id int) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, ok := m.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}

	copied := *reservation
	return &copied, nil
}

func (m *MemoryRepository) cancelFromStatus(id int, fromStatus string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservation, ok := m.reservations[id]
	if !ok || reservation.Status != fromStatus {
		return ErrAlreadyCancelled
	}

	reservation.Status = StatusCancelled
	return nil
}

func (m *MemoryRepository) CancelReservation(_ context.Context, id int) error {
	return m.cancelFromStatus(id, StatusConfirmed)
}

func (m *MemoryRepository) CancelWaitlisted(_ context.Context, id int) error {
	return m.cancelFromStatus(id, StatusWaitlisted)
}

func (m *MemoryRepository) CancelWaitlistedForSlot(_ context.Context, userID, slotID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reservations {
		if r.UserID == userID && r.SlotID == slotID && r.Status == StatusWaitlisted {
			r.Status = StatusCancelled
			return nil
		}
	}
	return ErrReservationNotFound
}

func (m *MemoryRepository) ConfirmWaitlisted(_ context.Context, userID, slotID int) (*Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reservations {
		if r.UserID == userID && r.SlotID == slotID && r.Status == StatusWaitlisted {
			r.Status = StatusConfirmed
			copied := *r
			return &copied, nil
		}
	}

	return nil, ErrReservationNotFound
}

func (m *MemoryRepository) UserHasConfirmedForSlot(_ context.Context, userID, slotID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.reservations {
		if r.UserID == userID && r.SlotID == slotID && r.Status == StatusConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryRepository) CountConfirmedForSlot(_ context.Context, slotID int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, r := range m.reservations {
		if r.SlotID == slotID && r.Status == StatusConfirmed {
			count++
		}
	}
	return count, nil
}

func (m *MemoryRepository) GetUserReservations(_ context.Context, userID int) ([]Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	reservations := make([]Reservation, 0)
	for _, r := range m.reservations {
		if r.UserID == userID {
			reservations = append(reservations, *r)
		}
	}
	sort.Slice(reservations, func(i, j int) bool { return reservations[i].ID < reservations[j].ID })
	return reservations, nil
}

func (m *MemoryRepository) GetUserReservationsWithSlots(ctx context.Context, userID int) ([]ReservationWithDetails, error) {
	m.mu.Lock()
	candidates := make([]Reservation, 0)
	for _, r := range m.reservations {
		if r.UserID == userID && r.Status != StatusCancelled {
			candidates = append(candidates, *r)
		}
	}
	m.mu.Unlock()

	details := make([]ReservationWithDetails, 0, len(candidates))
	for _, r := range candidates {
		slot, err := m.slots.GetSlotByID(ctx, r.SlotID)
		if err != nil {
			return nil, err
		}
		details = append(details, ReservationWithDetails{
			Reservation: r,
			SlotStart:   slot.StartMinutes,
			SlotEnd:     slot.EndMinutes,
			CenterID:    slot.CenterID,
		})
	}
	sort.Slice(details, func(i, j int) bool { return details[i].SlotStart < details[j].SlotStart })
	return details, nil
}

func (m *MemoryRepository) GetReservationsBySlot(_ context.Context, slotID int) ([]ReservationWithDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	details := make([]ReservationWithDetails, 0)
	for _, r := range m.reservations {
		if r.SlotID == slotID {
			details = append(details, ReservationWithDetails{Reservation: *r})
		}
	}
	sort.Slice(details, func(i, j int) bool { return details[i].ID < details[j].ID })
	return details, nil
}

func (m *MemoryRepository) GetReservationsByCenter(ctx context.Context, centerID int) ([]ReservationWithDetails, error) {
	slots, err := m.slots.GetSlotsByCenter(ctx, centerID)
	if err != nil {
		return nil, err
	}

	slotSet := make(map[int]bool, len(slots))
	for _, s := range slots {
		slotSet[s.ID] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	details := make([]ReservationWithDetails, 0)
	for _, r := range m.reservations {
		if slotSet[r.SlotID] {
			details = append(details, ReservationWithDetails{Reservation: *r, CenterID: centerID})
		}
	}
	sort.Slice(details, func(i, j int) bool { return details[i].ID < details[j].ID })
	return details, nil
}

// ReplaceReservations validates every cancel target before touching any
// state; a failure after the seat claim rolls the partial swap back, so
// callers never observe a half-applied swap.
func (m *MemoryRepository) ReplaceReservations(ctx context.Context, userID, newSlotID int, cancelIDs []int) (*Reservation, []Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	targets := make([]*Reservation, 0, len(cancelIDs))
	for _, id := range cancelIDs {
		reservation, ok := m.reservations[id]
		if !ok {
			return nil, nil, ErrReservationNotFound
		}
		if reservation.UserID != userID {
			return nil, nil, ErrNotOwner
		}
		if reservation.Status != StatusConfirmed {
			return nil, nil, ErrAlreadyCancelled
		}
		targets = append(targets, reservation)
	}

	claimed, err := m.slots.TryIncrementOccupancy(ctx, newSlotID)
	if err != nil {
		return nil, nil, err
	}
	if !claimed {
		return nil, nil, ErrSlotFull
	}

	cancelled := make([]Reservation, 0, len(targets))
	for i, reservation := range targets {
		reservation.Status = StatusCancelled
		if err := m.slots.DecrementOccupancy(ctx, reservation.SlotID); err != nil {
			for j := 0; j <= i; j++ {
				targets[j].Status = StatusConfirmed
			}
			for j := 0; j < i; j++ {
				if _, incErr := m.slots.TryIncrementOccupancy(ctx, targets[j].SlotID); incErr != nil {
					logger.Errorf("Failed to restore occupancy on slot %d during rebook rollback: %v", targets[j].SlotID, incErr)
				}
			}
			if decErr := m.slots.DecrementOccupancy(ctx, newSlotID); decErr != nil {
				logger.Errorf("Failed to release claimed seat on slot %d during rebook rollback: %v", newSlotID, decErr)
			}
			return nil, nil, err
		}
		cancelled = append(cancelled, *reservation)
	}

	newReservation := m.createLocked(userID, newSlotID, StatusConfirmed)
	return newReservation, cancelled, nil
}
