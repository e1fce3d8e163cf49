package center

import "time"

type Center struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	City      string    `db:"city" json:"city"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Slot is a daily recurring booking window. Start and end are stored as
// minutes since midnight; occupancy counts confirmed reservations and is
// never allowed past capacity.
type Slot struct {
	ID           int       `db:"id" json:"id"`
	CenterID     int       `db:"center_id" json:"center_id"`
	StartMinutes int       `db:"start_minutes" json:"start_minutes"`
	EndMinutes   int       `db:"end_minutes" json:"end_minutes"`
	Capacity     int       `db:"capacity" json:"capacity"`
	Occupancy    int       `db:"occupancy" json:"occupancy"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

func (s *Slot) IsFull() bool {
	return s.Occupancy >= s.Capacity
}

type SlotWithAvailability struct {
	Slot
	StartClock string `json:"start"`
	EndClock   string `json:"end"`
	Available  int    `json:"available"`
	Full       bool   `json:"is_full"`
}

type CreateCenterRequest struct {
	Name string `json:"name" binding:"required"`
	City string `json:"city" binding:"required"`
}

type CreateSlotRequest struct {
	Start    string `json:"start" binding:"required"`
	End      string `json:"end" binding:"required"`
	Capacity int    `json:"capacity" binding:"required,min=1"`
}
