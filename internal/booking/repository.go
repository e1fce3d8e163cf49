package booking

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"fitbook/internal/center"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const reservationColumns = "id, user_id, slot_id, status, created_at"

func (r *repository) CreateReservation(ctx context.Context, userID, slotID int, status string) (*Reservation, error) {
	query := `
		INSERT INTO reservations (user_id, slot_id, status)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, slot_id, status, created_at
	`

	var reservation Reservation
	err := r.db.GetContext(ctx, &reservation, query, userID, slotID, status)
	if err != nil {
		return nil, err
	}

	return &reservation, nil
}

func (r *repository) GetReservationByID(ctx context.Context, id int) (*Reservation, error) {
	query := `
		SELECT id, user_id, slot_id, status, created_at
		FROM reservations
		WHERE id = $1
	`

	var reservation Reservation
	err := r.db.GetContext(ctx, &reservation, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return &reservation, nil
}

func (r *repository) cancelFromStatus(ctx context.Context, id int, fromStatus string) error {
	query := `
		UPDATE reservations
		SET status = 'cancelled'
		WHERE id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, id, fromStatus)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlreadyCancelled
	}

	return nil
}

func (r *repository) CancelReservation(ctx context.Context, id int) error {
	return r.cancelFromStatus(ctx, id, StatusConfirmed)
}

func (r *repository) CancelWaitlisted(ctx context.Context, id int) error {
	return r.cancelFromStatus(ctx, id, StatusWaitlisted)
}

func (r *repository) CancelWaitlistedForSlot(ctx context.Context, userID, slotID int) error {
	query := `
		UPDATE reservations
		SET status = 'cancelled'
		WHERE user_id = $1 AND slot_id = $2 AND status = 'waitlisted'
	`

	result, err := r.db.ExecContext(ctx, query, userID, slotID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrReservationNotFound
	}

	return nil
}

func (r *repository) ConfirmWaitlisted(ctx context.Context, userID, slotID int) (*Reservation, error) {
	query := `
		UPDATE reservations
		SET status = 'confirmed'
		WHERE user_id = $1 AND slot_id = $2 AND status = 'waitlisted'
		RETURNING id, user_id, slot_id, status, created_at
	`

	var reservation Reservation
	err := r.db.GetContext(ctx, &reservation, query, userID, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return &reservation, nil
}

func (r *repository) UserHasConfirmedForSlot(ctx context.Context, userID, slotID int) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND slot_id = $2 AND status = 'confirmed'
		)
	`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, userID, slotID)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *repository) CountConfirmedForSlot(ctx context.Context, slotID int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM reservations
		WHERE slot_id = $1 AND status = 'confirmed'
	`

	var count int
	err := r.db.GetContext(ctx, &count, query, slotID)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repository) GetUserReservations(ctx context.Context, userID int) ([]Reservation, error) {
	query := `
		SELECT id, user_id, slot_id, status, created_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var reservations []Reservation
	err := r.db.SelectContext(ctx, &reservations, query, userID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

const detailsSelect = `
	SELECT
		r.id,
		r.user_id,
		r.slot_id,
		r.status,
		r.created_at,
		s.start_minutes AS slot_start,
		s.end_minutes AS slot_end,
		c.id AS center_id,
		c.name AS center_name,
		c.city AS center_city,
		u.name AS user_name,
		u.email AS user_email
	FROM reservations r
	JOIN slots s ON r.slot_id = s.id
	JOIN centers c ON s.center_id = c.id
	JOIN users u ON r.user_id = u.id
`

func (r *repository) GetUserReservationsWithSlots(ctx context.Context, userID int) ([]ReservationWithDetails, error) {
	query := detailsSelect + `
		WHERE r.user_id = $1 AND r.status != 'cancelled'
		ORDER BY s.start_minutes ASC
	`

	var reservations []ReservationWithDetails
	err := r.db.SelectContext(ctx, &reservations, query, userID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) GetReservationsBySlot(ctx context.Context, slotID int) ([]ReservationWithDetails, error) {
	query := detailsSelect + `
		WHERE r.slot_id = $1
		ORDER BY r.created_at DESC
	`

	var reservations []ReservationWithDetails
	err := r.db.SelectContext(ctx, &reservations, query, slotID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) GetReservationsByCenter(ctx context.Context, centerID int) ([]ReservationWithDetails, error) {
	query := detailsSelect + `
		WHERE c.id = $1
		ORDER BY s.start_minutes ASC, r.created_at DESC
	`

	var reservations []ReservationWithDetails
	err := r.db.SelectContext(ctx, &reservations, query, centerID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

// ReplaceReservations runs the whole swap in one transaction so no reader
// observes the old reservations cancelled without the new one existing.
func (r *repository) ReplaceReservations(ctx context.Context, userID, newSlotID int, cancelIDs []int) (*Reservation, []Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	cancelled := make([]Reservation, 0, len(cancelIDs))
	for _, id := range cancelIDs {
		var res Reservation
		err := tx.GetContext(ctx, &res, `
			SELECT id, user_id, slot_id, status, created_at
			FROM reservations
			WHERE id = $1
			FOR UPDATE
		`, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, ErrReservationNotFound
			}
			return nil, nil, err
		}

		if res.UserID != userID {
			return nil, nil, ErrNotOwner
		}
		if res.Status != StatusConfirmed {
			return nil, nil, ErrAlreadyCancelled
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE reservations SET status = 'cancelled' WHERE id = $1
		`, id); err != nil {
			return nil, nil, err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE slots SET occupancy = occupancy - 1 WHERE id = $1 AND occupancy > 0
		`, res.SlotID); err != nil {
			return nil, nil, err
		}

		res.Status = StatusCancelled
		cancelled = append(cancelled, res)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE slots SET occupancy = occupancy + 1 WHERE id = $1 AND occupancy < capacity
	`, newSlotID)
	if err != nil {
		return nil, nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, err
	}
	if rowsAffected == 0 {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM slots WHERE id = $1)`, newSlotID); err != nil {
			return nil, nil, err
		}
		if !exists {
			return nil, nil, center.ErrSlotNotFound
		}
		return nil, nil, ErrSlotFull
	}

	var newReservation Reservation
	err = tx.GetContext(ctx, &newReservation, `
		INSERT INTO reservations (user_id, slot_id, status)
		VALUES ($1, $2, 'confirmed')
		RETURNING id, user_id, slot_id, status, created_at
	`, userID, newSlotID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}

	return &newReservation, cancelled, nil
}
