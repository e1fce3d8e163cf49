package booking

import "context"

type Repository interface {
	CreateReservation(ctx context.Context, userID, slotID int, status string) (*Reservation, error)
	GetReservationByID(ctx context.Context, id int) (*Reservation, error)

	// CancelReservation flips a confirmed reservation to cancelled.
	// Returns ErrAlreadyCancelled when the row was not in confirmed state.
	CancelReservation(ctx context.Context, id int) error

	// CancelWaitlisted flips a waitlisted reservation to cancelled.
	CancelWaitlisted(ctx context.Context, id int) error

	// CancelWaitlistedForSlot cancels the customer's waitlisted
	// reservation on the slot. Returns ErrReservationNotFound when the
	// customer holds none.
	CancelWaitlistedForSlot(ctx context.Context, userID, slotID int) error

	// ConfirmWaitlisted flips the customer's waitlisted reservation on the
	// slot to confirmed. Returns ErrReservationNotFound when no such row
	// exists.
	ConfirmWaitlisted(ctx context.Context, userID, slotID int) (*Reservation, error)

	UserHasConfirmedForSlot(ctx context.Context, userID, slotID int) (bool, error)
	CountConfirmedForSlot(ctx context.Context, slotID int) (int, error)
	GetUserReservations(ctx context.Context, userID int) ([]Reservation, error)

	// GetUserReservationsWithSlots returns the customer's non-cancelled
	// reservations joined with their slot windows.
	GetUserReservationsWithSlots(ctx context.Context, userID int) ([]ReservationWithDetails, error)

	GetReservationsBySlot(ctx context.Context, slotID int) ([]ReservationWithDetails, error)
	GetReservationsByCenter(ctx context.Context, centerID int) ([]ReservationWithDetails, error)

	// ReplaceReservations atomically cancels the given confirmed
	// reservations (all owned by userID), releases their seats, claims a
	// seat on newSlotID and creates the new confirmed reservation. On any
	// failure nothing is committed. Returns the new reservation and the
	// reservations that were cancelled.
	ReplaceReservations(ctx context.Context, userID, newSlotID int, cancelIDs []int) (*Reservation, []Reservation, error)
}
