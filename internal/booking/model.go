package booking

import (
	"errors"
	"time"
)

// Reservation statuses. Occupancy counts confirmed reservations only;
// waitlisted rows exist as an audit trail for queue membership.
const (
	StatusConfirmed  = "confirmed"
	StatusWaitlisted = "waitlisted"
	StatusCancelled  = "cancelled"
)

var (
	ErrReservationNotFound  = errors.New("reservation not found")
	ErrAlreadyCancelled     = errors.New("reservation already cancelled")
	ErrNotOwner             = errors.New("reservation belongs to another customer")
	ErrDuplicateReservation = errors.New("customer already has a reservation for this slot")
	ErrSlotFull             = errors.New("slot is full")
	ErrSlotNotFull          = errors.New("slot is not full, reserve directly")
)

type Reservation struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"user_id"`
	SlotID    int       `db:"slot_id" json:"slot_id"`
	Status    string    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ReservationWithDetails struct {
	Reservation
	SlotStart  int    `db:"slot_start" json:"slot_start_minutes"`
	SlotEnd    int    `db:"slot_end" json:"slot_end_minutes"`
	CenterID   int    `db:"center_id" json:"center_id"`
	CenterName string `db:"center_name" json:"center_name"`
	CenterCity string `db:"center_city" json:"center_city"`
	UserName   string `db:"user_name" json:"user_name"`
	UserEmail  string `db:"user_email" json:"user_email"`
}

type WaitlistEntry struct {
	Reservation *Reservation `json:"reservation"`
	Position    int          `json:"position"`
}

type RebookRequest struct {
	ReplaceReservationIDs []int `json:"replace_reservation_ids" binding:"required,min=1"`
}
