package booking

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)

	dbx := sqlx.NewDb(db, "sqlmock")
	return NewRepository(dbx), mock, func() { db.Close() }
}

func reservationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "slot_id", "status", "created_at"})
}

func TestCreateReservation(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`INSERT INTO reservations.*`).
		WithArgs(7, 3, StatusConfirmed).
		WillReturnRows(reservationRows().AddRow(1, 7, 3, StatusConfirmed, time.Now()))

	reservation, err := repo.CreateReservation(context.Background(), 7, 3, StatusConfirmed)
	assert.NoError(t, err)
	assert.Equal(t, 1, reservation.ID)
	assert.Equal(t, StatusConfirmed, reservation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservationByIDNotFound(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT id, user_id, slot_id, status, created_at FROM reservations WHERE id = \$1`).
		WithArgs(42).
		WillReturnRows(reservationRows())

	_, err := repo.GetReservationByID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservation(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE reservations SET status = 'cancelled' WHERE id = \$1 AND status = \$2`).
		WithArgs(1, StatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CancelReservation(context.Background(), 1)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationAlreadyCancelled(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE reservations SET status = 'cancelled' WHERE id = \$1 AND status = \$2`).
		WithArgs(1, StatusConfirmed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CancelReservation(context.Background(), 1)
	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWaitlistedForSlot(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE reservations\s+SET status = 'cancelled'\s+WHERE user_id = \$1 AND slot_id = \$2 AND status = 'waitlisted'`).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.CancelWaitlistedForSlot(context.Background(), 7, 3)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelWaitlistedForSlotMissing(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE reservations\s+SET status = 'cancelled'\s+WHERE user_id = \$1 AND slot_id = \$2 AND status = 'waitlisted'`).
		WithArgs(7, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CancelWaitlistedForSlot(context.Background(), 7, 3)
	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmWaitlisted(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`UPDATE reservations\s+SET status = 'confirmed'\s+WHERE user_id = \$1 AND slot_id = \$2 AND status = 'waitlisted'.*`).
		WithArgs(9, 3).
		WillReturnRows(reservationRows().AddRow(2, 9, 3, StatusConfirmed, time.Now()))

	reservation, err := repo.ConfirmWaitlisted(context.Background(), 9, 3)
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, reservation.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmWaitlistedMissing(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`UPDATE reservations\s+SET status = 'confirmed'.*`).
		WithArgs(9, 3).
		WillReturnRows(reservationRows())

	_, err := repo.ConfirmWaitlisted(context.Background(), 9, 3)
	assert.ErrorIs(t, err, ErrReservationNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserHasConfirmedForSlot(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT EXISTS\(.*\)`).
		WithArgs(7, 3).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UserHasConfirmedForSlot(context.Background(), 7, 3)
	assert.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceReservations(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, slot_id, status, created_at\s+FROM reservations\s+WHERE id = \$1\s+FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(reservationRows().AddRow(1, 7, 3, StatusConfirmed, time.Now()))
	mock.ExpectExec(`UPDATE reservations SET status = 'cancelled' WHERE id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE slots SET occupancy = occupancy - 1 WHERE id = \$1 AND occupancy > 0`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE slots SET occupancy = occupancy \+ 1 WHERE id = \$1 AND occupancy < capacity`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO reservations.*`).
		WithArgs(7, 5).
		WillReturnRows(reservationRows().AddRow(2, 7, 5, StatusConfirmed, time.Now()))
	mock.ExpectCommit()

	newReservation, cancelled, err := repo.ReplaceReservations(context.Background(), 7, 5, []int{1})

	require.NoError(t, err)
	assert.Equal(t, 5, newReservation.SlotID)
	require.Len(t, cancelled, 1)
	assert.Equal(t, StatusCancelled, cancelled[0].Status)
	assert.Equal(t, 3, cancelled[0].SlotID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// A full new slot aborts the transaction, the old reservation stays
// confirmed.
func TestReplaceReservationsNewSlotFull(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, slot_id, status, created_at\s+FROM reservations\s+WHERE id = \$1\s+FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(reservationRows().AddRow(1, 7, 3, StatusConfirmed, time.Now()))
	mock.ExpectExec(`UPDATE reservations SET status = 'cancelled' WHERE id = \$1`).
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE slots SET occupancy = occupancy - 1 WHERE id = \$1 AND occupancy > 0`).
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE slots SET occupancy = occupancy \+ 1 WHERE id = \$1 AND occupancy < capacity`).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM slots WHERE id = \$1\)`).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, _, err := repo.ReplaceReservations(context.Background(), 7, 5, []int{1})

	assert.ErrorIs(t, err, ErrSlotFull)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceReservationsNotOwner(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, slot_id, status, created_at\s+FROM reservations\s+WHERE id = \$1\s+FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(reservationRows().AddRow(1, 8, 3, StatusConfirmed, time.Now()))
	mock.ExpectRollback()

	_, _, err := repo.ReplaceReservations(context.Background(), 7, 5, []int{1})

	assert.ErrorIs(t, err, ErrNotOwner)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceReservationsTargetCancelled(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, user_id, slot_id, status, created_at\s+FROM reservations\s+WHERE id = \$1\s+FOR UPDATE`).
		WithArgs(1).
		WillReturnRows(reservationRows().AddRow(1, 7, 3, StatusCancelled, time.Now()))
	mock.ExpectRollback()

	_, _, err := repo.ReplaceReservations(context.Background(), 7, 5, []int{1})

	assert.ErrorIs(t, err, ErrAlreadyCancelled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserReservationsWithSlots(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "slot_id", "status", "created_at",
		"slot_start", "slot_end", "center_id", "center_name", "center_city", "user_name", "user_email",
	}).AddRow(1, 7, 3, StatusConfirmed, time.Now(), 360, 420, 1, "Iron Works", "Berlin", "Jane", "jane@example.com")

	mock.ExpectQuery(`SELECT.*FROM reservations r.*JOIN slots s.*WHERE r\.user_id = \$1 AND r\.status != 'cancelled'.*`).
		WithArgs(7).
		WillReturnRows(rows)

	reservations, err := repo.GetUserReservationsWithSlots(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, reservations, 1)
	assert.Equal(t, 360, reservations[0].SlotStart)
	assert.Equal(t, "Iron Works", reservations[0].CenterName)
	assert.NoError(t, mock.ExpectationsWereMet())
}
