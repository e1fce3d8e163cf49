package booking

import (
	"context"
	"errors"
	"fmt"

	"fitbook/internal/center"
	"fitbook/internal/logger"
	"fitbook/internal/metrics"
	"fitbook/internal/user"
	"fitbook/internal/waitlist"
)

// Notifier delivers booking events out of band. Failures are logged and
// never block or fail the booking path.
type Notifier interface {
	SendReservationConfirmed(ctx context.Context, email, name, centerName, window string) error
	SendReservationCancelled(ctx context.Context, email, name, centerName, window string) error
	SendWaitlistJoined(ctx context.Context, email, name, centerName, window string, position int) error
	SendWaitlistPromoted(ctx context.Context, email, name, centerName, window string) error
}

type Service interface {
	// Reserve claims a seat on the slot and records a confirmed
	// reservation. Returns ErrSlotFull when no seat is free, in which
	// case the caller may offer JoinWaitlist.
	Reserve(ctx context.Context, customerID, slotID int) (*Reservation, error)

	// Cancel releases the reservation's seat and promotes the next
	// waitlisted customer into it.
	Cancel(ctx context.Context, customerID, reservationID int) error

	// JoinWaitlist queues the customer on a full slot. Joining a slot
	// with free seats is rejected with ErrSlotNotFull.
	JoinWaitlist(ctx context.Context, customerID, slotID int) (*WaitlistEntry, error)

	// LeaveWaitlist withdraws the customer from the slot's queue and
	// cancels the waitlisted reservation.
	LeaveWaitlist(ctx context.Context, customerID, slotID int) error

	// GetSlotWaitlist returns the queued customer ids in promotion order.
	GetSlotWaitlist(ctx context.Context, slotID int) ([]int, error)

	// PromoteNext pops the waitlist head and converts it into a confirmed
	// reservation if a seat is free. promoted is false when the queue is
	// empty or the seat was taken back before the promotion landed.
	PromoteNext(ctx context.Context, slotID int) (customerID int, promoted bool, err error)

	// Rebook atomically swaps the customer's listed reservations for a
	// new one on newSlotID.
	Rebook(ctx context.Context, customerID, newSlotID int, replaceIDs []int) (*Reservation, error)

	// ConflictCheck returns the customer's non-cancelled reservations
	// whose slot window overlaps the candidate slot's window.
	ConflictCheck(ctx context.Context, customerID, candidateSlotID int) ([]ReservationWithDetails, error)

	GetUserReservations(ctx context.Context, userID int) ([]Reservation, error)
	GetReservationsBySlot(ctx context.Context, slotID int) ([]ReservationWithDetails, error)
	GetReservationsByCenter(ctx context.Context, centerID int) ([]ReservationWithDetails, error)
}

type service struct {
	repo     Repository
	slotRepo center.Repository
	queue    waitlist.Queue
	userRepo user.Repository
	notifier Notifier
}

func NewService(
	repo Repository,
	slotRepo center.Repository,
	queue waitlist.Queue,
	userRepo user.Repository,
	notifier Notifier,
) Service {
	return &service{
		repo:     repo,
		slotRepo: slotRepo,
		queue:    queue,
		userRepo: userRepo,
		notifier: notifier,
	}
}

func (s *service) Reserve(ctx context.Context, customerID, slotID int) (*Reservation, error) {
	if _, err := s.slotRepo.GetSlotByID(ctx, slotID); err != nil {
		return nil, err
	}

	hasReservation, err := s.repo.UserHasConfirmedForSlot(ctx, customerID, slotID)
	if err != nil {
		return nil, err
	}
	if hasReservation {
		return nil, ErrDuplicateReservation
	}

	claimed, err := s.slotRepo.TryIncrementOccupancy(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		metrics.RecordReservation("slot_full")
		return nil, ErrSlotFull
	}

	reservation, err := s.repo.CreateReservation(ctx, customerID, slotID, StatusConfirmed)
	if err != nil {
		// The seat was claimed but the ledger write failed, give the
		// seat back before surfacing the error.
		if decErr := s.slotRepo.DecrementOccupancy(ctx, slotID); decErr != nil {
			logger.Errorf("Failed to release seat on slot %d after ledger error: %v", slotID, decErr)
		}
		metrics.RecordReservation("storage_error")
		return nil, err
	}

	metrics.RecordReservation("confirmed")
	s.notifyReservation(ctx, customerID, slotID, s.notifyConfirmed)
	return reservation, nil
}

func (s *service) Cancel(ctx context.Context, customerID, reservationID int) error {
	reservation, err := s.repo.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}

	if reservation.UserID != customerID {
		return ErrNotOwner
	}

	switch reservation.Status {
	case StatusWaitlisted:
		if err := s.repo.CancelWaitlisted(ctx, reservationID); err != nil {
			return err
		}
		if err := s.queue.Remove(ctx, reservation.SlotID, customerID); err != nil {
			logger.Errorf("Failed to remove customer %d from waitlist of slot %d: %v", customerID, reservation.SlotID, err)
		}
		metrics.RecordCancellation()
		return nil

	case StatusCancelled:
		return ErrAlreadyCancelled
	}

	if err := s.repo.CancelReservation(ctx, reservationID); err != nil {
		return err
	}

	if err := s.slotRepo.DecrementOccupancy(ctx, reservation.SlotID); err != nil {
		logger.Errorf("Failed to release seat on slot %d for cancelled reservation %d: %v", reservation.SlotID, reservationID, err)
	}

	metrics.RecordCancellation()

	if _, _, err := s.PromoteNext(ctx, reservation.SlotID); err != nil {
		logger.Errorf("Promotion after cancel on slot %d failed: %v", reservation.SlotID, err)
	}

	s.notifyReservation(ctx, customerID, reservation.SlotID, s.notifyCancelled)
	return nil
}

func (s *service) JoinWaitlist(ctx context.Context, customerID, slotID int) (*WaitlistEntry, error) {
	slot, err := s.slotRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	if !slot.IsFull() {
		return nil, ErrSlotNotFull
	}

	if err := s.queue.Join(ctx, slotID, customerID); err != nil {
		return nil, err
	}

	reservation, err := s.repo.CreateReservation(ctx, customerID, slotID, StatusWaitlisted)
	if err != nil {
		if remErr := s.queue.Remove(ctx, slotID, customerID); remErr != nil {
			logger.Errorf("Failed to remove customer %d from waitlist of slot %d after ledger error: %v", customerID, slotID, remErr)
		}
		return nil, err
	}

	position, err := s.queue.Length(ctx, slotID)
	if err != nil {
		logger.Errorf("Failed to read waitlist length for slot %d: %v", slotID, err)
		position = 0
	}

	metrics.RecordWaitlistJoin()
	s.notifyWaitlisted(ctx, customerID, slot, position)

	return &WaitlistEntry{Reservation: reservation, Position: position}, nil
}

func (s *service) LeaveWaitlist(ctx context.Context, customerID, slotID int) error {
	if _, err := s.slotRepo.GetSlotByID(ctx, slotID); err != nil {
		return err
	}

	// The audit row doubles as the membership check.
	if err := s.repo.CancelWaitlistedForSlot(ctx, customerID, slotID); err != nil {
		return err
	}

	if err := s.queue.Remove(ctx, slotID, customerID); err != nil {
		logger.Errorf("Failed to remove customer %d from waitlist of slot %d: %v", customerID, slotID, err)
		return err
	}

	return nil
}

func (s *service) GetSlotWaitlist(ctx context.Context, slotID int) ([]int, error) {
	if _, err := s.slotRepo.GetSlotByID(ctx, slotID); err != nil {
		return nil, err
	}
	return s.queue.PeekAll(ctx, slotID)
}

func (s *service) PromoteNext(ctx context.Context, slotID int) (int, bool, error) {
	customerID, ok, err := s.queue.PopNext(ctx, slotID)
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}

	claimed, err := s.slotRepo.TryIncrementOccupancy(ctx, slotID)
	if err != nil {
		s.requeue(ctx, slotID, customerID)
		return 0, false, err
	}
	if !claimed {
		// Seat was taken before the promotion landed, the customer keeps
		// their place at the head of the queue.
		s.requeue(ctx, slotID, customerID)
		metrics.RecordPromotion("requeued")
		return 0, false, nil
	}

	reservation, err := s.repo.ConfirmWaitlisted(ctx, customerID, slotID)
	if errors.Is(err, ErrReservationNotFound) {
		reservation, err = s.repo.CreateReservation(ctx, customerID, slotID, StatusConfirmed)
	}
	if err != nil {
		if decErr := s.slotRepo.DecrementOccupancy(ctx, slotID); decErr != nil {
			logger.Errorf("Failed to release seat on slot %d after failed promotion: %v", slotID, decErr)
		}
		s.requeue(ctx, slotID, customerID)
		metrics.RecordPromotion("storage_error")
		return 0, false, err
	}

	metrics.RecordPromotion("promoted")
	logger.Infof("Promoted customer %d into slot %d (reservation %d)", customerID, slotID, reservation.ID)
	s.notifyReservation(ctx, customerID, slotID, s.notifyPromoted)
	return customerID, true, nil
}

func (s *service) Rebook(ctx context.Context, customerID, newSlotID int, replaceIDs []int) (*Reservation, error) {
	if _, err := s.slotRepo.GetSlotByID(ctx, newSlotID); err != nil {
		return nil, err
	}

	hasReservation, err := s.repo.UserHasConfirmedForSlot(ctx, customerID, newSlotID)
	if err != nil {
		return nil, err
	}
	if hasReservation {
		return nil, ErrDuplicateReservation
	}

	newReservation, cancelled, err := s.repo.ReplaceReservations(ctx, customerID, newSlotID, replaceIDs)
	if err != nil {
		if errors.Is(err, ErrSlotFull) {
			metrics.RecordReservation("slot_full")
		}
		return nil, err
	}

	metrics.RecordReservation("confirmed")
	for range cancelled {
		metrics.RecordCancellation()
	}

	// Seats freed on the old slots can be handed to their waitlists.
	promotedSlots := make(map[int]bool)
	for _, old := range cancelled {
		if old.SlotID == newSlotID || promotedSlots[old.SlotID] {
			continue
		}
		promotedSlots[old.SlotID] = true
		if _, _, err := s.PromoteNext(ctx, old.SlotID); err != nil {
			logger.Errorf("Promotion after rebook on slot %d failed: %v", old.SlotID, err)
		}
	}

	s.notifyReservation(ctx, customerID, newSlotID, s.notifyConfirmed)
	for _, old := range cancelled {
		s.notifyReservation(ctx, customerID, old.SlotID, s.notifyCancelled)
	}

	return newReservation, nil
}

func (s *service) ConflictCheck(ctx context.Context, customerID, candidateSlotID int) ([]ReservationWithDetails, error) {
	candidate, err := s.slotRepo.GetSlotByID(ctx, candidateSlotID)
	if err != nil {
		return nil, err
	}

	reservations, err := s.repo.GetUserReservationsWithSlots(ctx, customerID)
	if err != nil {
		return nil, err
	}

	conflicts := make([]ReservationWithDetails, 0)
	for _, r := range reservations {
		if center.Overlaps(candidate.StartMinutes, candidate.EndMinutes, r.SlotStart, r.SlotEnd) {
			conflicts = append(conflicts, r)
		}
	}

	return conflicts, nil
}

func (s *service) GetUserReservations(ctx context.Context, userID int) ([]Reservation, error) {
	return s.repo.GetUserReservations(ctx, userID)
}

func (s *service) GetReservationsBySlot(ctx context.Context, slotID int) ([]ReservationWithDetails, error) {
	return s.repo.GetReservationsBySlot(ctx, slotID)
}

func (s *service) GetReservationsByCenter(ctx context.Context, centerID int) ([]ReservationWithDetails, error) {
	return s.repo.GetReservationsByCenter(ctx, centerID)
}

func (s *service) requeue(ctx context.Context, slotID, customerID int) {
	if err := s.queue.RequeueFront(ctx, slotID, customerID); err != nil {
		logger.Errorf("Failed to requeue customer %d on slot %d: %v", customerID, slotID, err)
	}
}

func slotWindow(slot *center.Slot) string {
	return fmt.Sprintf("%s-%s", center.FormatClock(slot.StartMinutes), center.FormatClock(slot.EndMinutes))
}

type notifyFunc func(ctx context.Context, email, name, centerName, window string) error

func (s *service) notifyReservation(ctx context.Context, customerID, slotID int, send notifyFunc) {
	email, name, centerName, window, ok := s.notifyContext(ctx, customerID, slotID)
	if !ok {
		return
	}
	if err := send(ctx, email, name, centerName, window); err != nil {
		logger.Errorf("Failed to queue notification for customer %d on slot %d: %v", customerID, slotID, err)
	}
}

func (s *service) notifyConfirmed(ctx context.Context, email, name, centerName, window string) error {
	return s.notifier.SendReservationConfirmed(ctx, email, name, centerName, window)
}

func (s *service) notifyCancelled(ctx context.Context, email, name, centerName, window string) error {
	return s.notifier.SendReservationCancelled(ctx, email, name, centerName, window)
}

func (s *service) notifyPromoted(ctx context.Context, email, name, centerName, window string) error {
	return s.notifier.SendWaitlistPromoted(ctx, email, name, centerName, window)
}

func (s *service) notifyWaitlisted(ctx context.Context, customerID int, slot *center.Slot, position int) {
	email, name, centerName, window, ok := s.notifyContext(ctx, customerID, slot.ID)
	if !ok {
		return
	}
	if err := s.notifier.SendWaitlistJoined(ctx, email, name, centerName, window, position); err != nil {
		logger.Errorf("Failed to queue waitlist notification for customer %d on slot %d: %v", customerID, slot.ID, err)
	}
}

func (s *service) notifyContext(ctx context.Context, customerID, slotID int) (email, name, centerName, window string, ok bool) {
	u, err := s.userRepo.FindByID(ctx, customerID)
	if err != nil {
		logger.Errorf("Notification lookup for customer %d failed: %v", customerID, err)
		return "", "", "", "", false
	}

	slot, err := s.slotRepo.GetSlotByID(ctx, slotID)
	if err != nil {
		logger.Errorf("Notification lookup for slot %d failed: %v", slotID, err)
		return "", "", "", "", false
	}

	c, err := s.slotRepo.GetCenterByID(ctx, slot.CenterID)
	if err != nil {
		logger.Errorf("Notification lookup for center %d failed: %v", slot.CenterID, err)
		return "", "", "", "", false
	}

	return u.Email, u.Name, c.Name, slotWindow(slot), true
}
