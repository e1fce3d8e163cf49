package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitbook/internal/center"
	"fitbook/internal/user"
	"fitbook/internal/waitlist"
)

// The tests below run the whole engine against the in-memory stores, no
// mocks, to check the capacity and ordering guarantees end to end.

type stubUserRepo struct{}

func (stubUserRepo) Create(_ context.Context, name, email, _, role string) (*user.User, error) {
	return &user.User{ID: 1, Name: name, Email: email, Role: role}, nil
}

func (stubUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	return &user.User{ID: 1, Email: email}, nil
}

func (stubUserRepo) FindByID(_ context.Context, id int) (*user.User, error) {
	return &user.User{ID: id, Name: fmt.Sprintf("customer-%d", id), Email: fmt.Sprintf("c%d@example.com", id)}, nil
}

func (stubUserRepo) EmailExists(context.Context, string) (bool, error) {
	return false, nil
}

type noopNotifier struct{}

func (noopNotifier) SendReservationConfirmed(context.Context, string, string, string, string) error {
	return nil
}

func (noopNotifier) SendReservationCancelled(context.Context, string, string, string, string) error {
	return nil
}

func (noopNotifier) SendWaitlistJoined(context.Context, string, string, string, string, int) error {
	return nil
}

func (noopNotifier) SendWaitlistPromoted(context.Context, string, string, string, string) error {
	return nil
}

type engine struct {
	service  Service
	repo     *MemoryRepository
	slotRepo *center.MemoryRepository
	slot     *center.Slot
}

func newEngine(t *testing.T, capacity int) *engine {
	t.Helper()
	ctx := context.Background()

	slotRepo := center.NewMemoryRepository()
	repo := NewMemoryRepository(slotRepo)
	queue := waitlist.NewMemoryQueue()

	c, err := slotRepo.CreateCenter(ctx, "Iron Works", "Berlin")
	require.NoError(t, err)
	slot, err := slotRepo.CreateSlot(ctx, c.ID, 360, 420, capacity)
	require.NoError(t, err)

	return &engine{
		service:  NewService(repo, slotRepo, queue, stubUserRepo{}, noopNotifier{}),
		repo:     repo,
		slotRepo: slotRepo,
		slot:     slot,
	}
}

// occupancy must equal the number of confirmed reservations on the slot.
func (e *engine) assertInvariant(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	slot, err := e.slotRepo.GetSlotByID(ctx, e.slot.ID)
	require.NoError(t, err)
	count, err := e.repo.CountConfirmedForSlot(ctx, e.slot.ID)
	require.NoError(t, err)

	assert.Equal(t, count, slot.Occupancy, "occupancy must match confirmed reservation count")
	assert.LessOrEqual(t, slot.Occupancy, slot.Capacity)
}

func TestEngineReserveUntilFull(t *testing.T) {
	e := newEngine(t, 3)
	ctx := context.Background()

	for customerID := 1; customerID <= 3; customerID++ {
		_, err := e.service.Reserve(ctx, customerID, e.slot.ID)
		require.NoError(t, err)
	}

	_, err := e.service.Reserve(ctx, 4, e.slot.ID)
	assert.ErrorIs(t, err, ErrSlotFull)

	e.assertInvariant(t)
}

// N callers race for the remaining seats, exactly capacity of them win.
func TestEngineConcurrentReserveRace(t *testing.T) {
	const capacity = 5
	const contenders = 40

	e := newEngine(t, capacity)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	confirmed, full := 0, 0

	for i := 1; i <= contenders; i++ {
		wg.Add(1)
		go func(customerID int) {
			defer wg.Done()
			_, err := e.service.Reserve(ctx, customerID, e.slot.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				confirmed++
			case errors.Is(err, ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, capacity, confirmed)
	assert.Equal(t, contenders-capacity, full)
	e.assertInvariant(t)
}

func TestEngineTwoRaceForLastSeat(t *testing.T) {
	e := newEngine(t, 1)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = e.service.Reserve(ctx, i+1, e.slot.ID)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrSlotFull)
		}
	}
	assert.Equal(t, 1, winners)
	e.assertInvariant(t)
}

func TestEngineCancelIdempotence(t *testing.T) {
	e := newEngine(t, 2)
	ctx := context.Background()

	reservation, err := e.service.Reserve(ctx, 1, e.slot.ID)
	require.NoError(t, err)

	require.NoError(t, e.service.Cancel(ctx, 1, reservation.ID))

	err = e.service.Cancel(ctx, 1, reservation.ID)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)

	// The seat was given back exactly once.
	slot, err := e.slotRepo.GetSlotByID(ctx, e.slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, slot.Occupancy)
	e.assertInvariant(t)
}

// Capacity-1 slot: X reserves, Y is waitlisted, X cancels, Y gets the
// seat automatically.
func TestEngineCancelPromotesWaitlisted(t *testing.T) {
	e := newEngine(t, 1)
	ctx := context.Background()

	const customerX, customerY = 1, 2

	reservationX, err := e.service.Reserve(ctx, customerX, e.slot.ID)
	require.NoError(t, err)

	_, err = e.service.Reserve(ctx, customerY, e.slot.ID)
	require.ErrorIs(t, err, ErrSlotFull)

	entry, err := e.service.JoinWaitlist(ctx, customerY, e.slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Position)

	require.NoError(t, e.service.Cancel(ctx, customerX, reservationX.ID))

	hasSeat, err := e.repo.UserHasConfirmedForSlot(ctx, customerY, e.slot.ID)
	require.NoError(t, err)
	assert.True(t, hasSeat, "waitlisted customer must be promoted into the freed seat")

	slot, err := e.slotRepo.GetSlotByID(ctx, e.slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, slot.Occupancy)
	e.assertInvariant(t)
}

// A joins before B, two seats free up, A is promoted strictly before B.
func TestEngineWaitlistFIFO(t *testing.T) {
	e := newEngine(t, 2)
	ctx := context.Background()

	resOne, err := e.service.Reserve(ctx, 1, e.slot.ID)
	require.NoError(t, err)
	resTwo, err := e.service.Reserve(ctx, 2, e.slot.ID)
	require.NoError(t, err)

	const customerA, customerB = 3, 4
	_, err = e.service.JoinWaitlist(ctx, customerA, e.slot.ID)
	require.NoError(t, err)
	_, err = e.service.JoinWaitlist(ctx, customerB, e.slot.ID)
	require.NoError(t, err)

	require.NoError(t, e.service.Cancel(ctx, 1, resOne.ID))

	hasA, err := e.repo.UserHasConfirmedForSlot(ctx, customerA, e.slot.ID)
	require.NoError(t, err)
	hasB, err := e.repo.UserHasConfirmedForSlot(ctx, customerB, e.slot.ID)
	require.NoError(t, err)
	assert.True(t, hasA, "first joiner must be promoted first")
	assert.False(t, hasB)

	require.NoError(t, e.service.Cancel(ctx, 2, resTwo.ID))

	hasB, err = e.repo.UserHasConfirmedForSlot(ctx, customerB, e.slot.ID)
	require.NoError(t, err)
	assert.True(t, hasB)
	e.assertInvariant(t)
}

func TestEngineJoinWaitlistRejectedWhenSeatsFree(t *testing.T) {
	e := newEngine(t, 2)
	ctx := context.Background()

	_, err := e.service.JoinWaitlist(ctx, 1, e.slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotFull)
}

func TestEngineRebookSwap(t *testing.T) {
	e := newEngine(t, 2)
	ctx := context.Background()

	otherSlot, err := e.slotRepo.CreateSlot(ctx, e.slot.CenterID, 420, 480, 2)
	require.NoError(t, err)

	reservation, err := e.service.Reserve(ctx, 1, e.slot.ID)
	require.NoError(t, err)

	newReservation, err := e.service.Rebook(ctx, 1, otherSlot.ID, []int{reservation.ID})
	require.NoError(t, err)
	assert.Equal(t, otherSlot.ID, newReservation.SlotID)
	assert.Equal(t, StatusConfirmed, newReservation.Status)

	old, err := e.repo.GetReservationByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, old.Status)

	oldSlot, err := e.slotRepo.GetSlotByID(ctx, e.slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, oldSlot.Occupancy)

	fresh, err := e.slotRepo.GetSlotByID(ctx, otherSlot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Occupancy)
}

// Rebook onto a full slot changes nothing at all.
func TestEngineRebookAtomicOnFullSlot(t *testing.T) {
	e := newEngine(t, 2)
	ctx := context.Background()

	fullSlot, err := e.slotRepo.CreateSlot(ctx, e.slot.CenterID, 420, 480, 1)
	require.NoError(t, err)
	_, err = e.service.Reserve(ctx, 9, fullSlot.ID)
	require.NoError(t, err)

	reservation, err := e.service.Reserve(ctx, 1, e.slot.ID)
	require.NoError(t, err)

	_, err = e.service.Rebook(ctx, 1, fullSlot.ID, []int{reservation.ID})
	require.ErrorIs(t, err, ErrSlotFull)

	// Old reservation still confirmed, old seat still held.
	old, err := e.repo.GetReservationByID(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, old.Status)

	oldSlot, err := e.slotRepo.GetSlotByID(ctx, e.slot.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, oldSlot.Occupancy)

	reservations, err := e.repo.GetUserReservations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, reservations, 1)
	e.assertInvariant(t)
}

func TestEngineRebookFreedSeatPromotes(t *testing.T) {
	e := newEngine(t, 1)
	ctx := context.Background()

	otherSlot, err := e.slotRepo.CreateSlot(ctx, e.slot.CenterID, 420, 480, 1)
	require.NoError(t, err)

	reservation, err := e.service.Reserve(ctx, 1, e.slot.ID)
	require.NoError(t, err)

	// Customer 2 waits for the now-full first slot.
	_, err = e.service.JoinWaitlist(ctx, 2, e.slot.ID)
	require.NoError(t, err)

	_, err = e.service.Rebook(ctx, 1, otherSlot.ID, []int{reservation.ID})
	require.NoError(t, err)

	hasSeat, err := e.repo.UserHasConfirmedForSlot(ctx, 2, e.slot.ID)
	require.NoError(t, err)
	assert.True(t, hasSeat, "seat freed by rebook must go to the waitlist head")
}

func TestEngineConflictCheckScenarios(t *testing.T) {
	e := newEngine(t, 5)
	ctx := context.Background()

	// Existing reservation on 09:00-10:00.
	nineToTen, err := e.slotRepo.CreateSlot(ctx, e.slot.CenterID, 540, 600, 5)
	require.NoError(t, err)
	_, err = e.service.Reserve(ctx, 1, nineToTen.ID)
	require.NoError(t, err)

	overlapping, err := e.slotRepo.CreateSlot(ctx, e.slot.CenterID, 570, 630, 5)
	require.NoError(t, err)
	adjacent, err := e.slotRepo.CreateSlot(ctx, e.slot.CenterID, 600, 660, 5)
	require.NoError(t, err)

	conflicts, err := e.service.ConflictCheck(ctx, 1, overlapping.ID)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1, "09:30-10:30 overlaps 09:00-10:00")

	conflicts, err = e.service.ConflictCheck(ctx, 1, adjacent.ID)
	require.NoError(t, err)
	assert.Empty(t, conflicts, "10:00-11:00 is adjacent, not overlapping")
}

// Mixed concurrent reserves and cancels must keep the ledger and the
// occupancy counter consistent.
func TestEngineInvariantUnderConcurrentChurn(t *testing.T) {
	e := newEngine(t, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(customerID int) {
			defer wg.Done()
			reservation, err := e.service.Reserve(ctx, customerID, e.slot.ID)
			if err != nil {
				return
			}
			if customerID%2 == 0 {
				_ = e.service.Cancel(ctx, customerID, reservation.ID)
			}
		}(i)
	}
	wg.Wait()

	e.assertInvariant(t)
}
