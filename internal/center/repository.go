package center

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"fitbook/internal/logger"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateCenter(ctx context.Context, name, city string) (*Center, error) {
	query := `
		INSERT INTO centers (name, city)
		VALUES ($1, $2)
		RETURNING id, name, city, created_at
	`

	var center Center
	err := r.db.GetContext(ctx, &center, query, name, city)
	if err != nil {
		return nil, err
	}

	return &center, nil
}

func (r *repository) GetAllCenters(ctx context.Context) ([]Center, error) {
	query := `
		SELECT id, name, city, created_at
		FROM centers
		ORDER BY created_at DESC
	`

	var centers []Center
	err := r.db.SelectContext(ctx, &centers, query)
	if err != nil {
		return nil, err
	}

	return centers, nil
}

func (r *repository) GetCenterByID(ctx context.Context, id int) (*Center, error) {
	query := `
		SELECT id, name, city, created_at
		FROM centers
		WHERE id = $1
	`

	var center Center
	err := r.db.GetContext(ctx, &center, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCenterNotFound
		}
		return nil, err
	}

	return &center, nil
}

func (r *repository) CreateSlot(ctx context.Context, centerID, startMinutes, endMinutes, capacity int) (*Slot, error) {
	query := `
		INSERT INTO slots (center_id, start_minutes, end_minutes, capacity, occupancy)
		VALUES ($1, $2, $3, $4, 0)
		RETURNING id, center_id, start_minutes, end_minutes, capacity, occupancy, created_at
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, query, centerID, startMinutes, endMinutes, capacity)
	if err != nil {
		return nil, err
	}

	return &slot, nil
}

func (r *repository) GetSlotsByCenter(ctx context.Context, centerID int) ([]Slot, error) {
	query := `
		SELECT id, center_id, start_minutes, end_minutes, capacity, occupancy, created_at
		FROM slots
		WHERE center_id = $1
		ORDER BY start_minutes ASC
	`

	var slots []Slot
	err := r.db.SelectContext(ctx, &slots, query, centerID)
	if err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *repository) GetSlotByID(ctx context.Context, id int) (*Slot, error) {
	query := `
		SELECT id, center_id, start_minutes, end_minutes, capacity, occupancy, created_at
		FROM slots
		WHERE id = $1
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	return &slot, nil
}

func (r *repository) GetSlotsWithAvailability(ctx context.Context, centerID int) ([]SlotWithAvailability, error) {
	slots, err := r.GetSlotsByCenter(ctx, centerID)
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

// TryIncrementOccupancy uses a conditional update so two concurrent claims
// on the last seat cannot both succeed.
func (r *repository) TryIncrementOccupancy(ctx context.Context, slotID int) (bool, error) {
	query := `
		UPDATE slots
		SET occupancy = occupancy + 1
		WHERE id = $1 AND occupancy < capacity
	`

	result, err := r.db.ExecContext(ctx, query, slotID)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 1 {
		return true, nil
	}

	// No row updated: either the slot is full or it does not exist.
	var exists bool
	err = r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM slots WHERE id = $1)`, slotID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, ErrSlotNotFound
	}

	return false, nil
}

func (r *repository) DecrementOccupancy(ctx context.Context, slotID int) error {
	query := `
		UPDATE slots
		SET occupancy = occupancy - 1
		WHERE id = $1 AND occupancy > 0
	`

	result, err := r.db.ExecContext(ctx, query, slotID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		err = r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM slots WHERE id = $1)`, slotID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrSlotNotFound
		}
		// Decrementing past zero means a release without a matching
		// claim somewhere upstream.
		logger.Errorf("Occupancy decrement on slot %d hit the zero floor", slotID)
	}

	return nil
}
