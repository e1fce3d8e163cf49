package center

import (
	"context"
	"sync"
	"time"

	"fitbook/internal/logger"
)

// MemoryRepository is an in-process Repository used in tests and single-node
// deployments without Postgres.
type MemoryRepository struct {
	mu           sync.Mutex
	centers      map[int]*Center
	slots        map[int]*Slot
	nextCenterID int
	nextSlotID   int
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		centers:      make(map[int]*Center),
		slots:        make(map[int]*Slot),
		nextCenterID: 1,
		nextSlotID:   1,
	}
}

func (m *MemoryRepository) CreateCenter(_ context.Context, name, city string) (*Center, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	center := &Center{
		ID:        m.nextCenterID,
		Name:      name,
		City:      city,
		CreatedAt: time.Now(),
	}
	m.nextCenterID++
	m.centers[center.ID] = center

	copied := *center
	return &copied, nil
}

func (m *MemoryRepository) GetAllCenters(_ context.Context) ([]Center, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	centers := make([]Center, 0, len(m.centers))
	for _, c := range m.centers {
		centers = append(centers, *c)
	}
	return centers, nil
}

func (m *MemoryRepository) GetCenterByID(_ context.Context, id int) (*Center, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	center, ok := m.centers[id]
	if !ok {
		return nil, ErrCenterNotFound
	}

	copied := *center
	return &copied, nil
}

func (m *MemoryRepository) CreateSlot(_ context.Context, centerID, startMinutes, endMinutes, capacity int) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.centers[centerID]; !ok {
		return nil, ErrCenterNotFound
	}

	slot := &Slot{
		ID:           m.nextSlotID,
		CenterID:     centerID,
		StartMinutes: startMinutes,
		EndMinutes:   endMinutes,
		Capacity:     capacity,
		Occupancy:    0,
		CreatedAt:    time.Now(),
	}
	m.nextSlotID++
	m.slots[slot.ID] = slot

	copied := *slot
	return &copied, nil
}

func (m *MemoryRepository) GetSlotsByCenter(_ context.Context, centerID int) ([]Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slots := make([]Slot, 0)
	for _, s := range m.slots {
		if s.CenterID == centerID {
			slots = append(slots, *s)
		}
	}
	return slots, nil
}

func (m *MemoryRepository) GetSlotByID(_ context.Context, id int) (*Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}

	copied := *slot
	return &copied, nil
}

func (m *MemoryRepository) GetSlotsWithAvailability(ctx context.Context, centerID int) ([]SlotWithAvailability, error) {
	slots, err := m.GetSlotsByCenter(ctx, centerID)
	if err != nil {
		return nil, err
	}

	result := make([]SlotWithAvailability, 0, len(slots))
	for _, slot := range slots {
		result = append(result, SlotWithAvailability{
			Slot:       slot,
			StartClock: FormatClock(slot.StartMinutes),
			EndClock:   FormatClock(slot.EndMinutes),
			Available:  slot.Capacity - slot.Occupancy,
			Full:       slot.IsFull(),
		})
	}
	return result, nil
}

func (m *MemoryRepository) TryIncrementOccupancy(_ context.Context, slotID int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok {
		return false, ErrSlotNotFound
	}

	if slot.Occupancy >= slot.Capacity {
		return false, nil
	}

	slot.Occupancy++
	return true, nil
}

func (m *MemoryRepository) DecrementOccupancy(_ context.Context, slotID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[slotID]
	if !ok {
		return ErrSlotNotFound
	}

	if slot.Occupancy == 0 {
		logger.Errorf("Occupancy decrement on slot %d hit the zero floor", slotID)
		return nil
	}

	slot.Occupancy--
	return nil
}
