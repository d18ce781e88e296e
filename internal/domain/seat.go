package domain

import "time"

// Seat is a physical seat of an airplane type. The same layout is
// shared by every flight flown with that type; occupancy is tracked
// per flight, not on the seat itself.
type Seat struct {
	ID           int64
	AirplaneType string
	Number       string
	Row          int
	Column       string
	Class        CabinClass
	Blocked      bool
}

// SeatOccupancy marks a seat taken on one specific flight's manifest.
// (FlightID, SeatID) is unique in the store, which is what turns a
// concurrent double-commit into a detectable conflict.
type SeatOccupancy struct {
	FlightID  int64
	SeatID    int64
	BookingID int64
	CreatedAt time.Time
}

// SeatStatus is the seat-map view of one seat for a flight.
type SeatStatus struct {
	Seat     Seat
	Occupied bool
	Held     bool
}

// SeatHold is one active cache hold, keyed back to the draft that
// owns it.
type SeatHold struct {
	FlightID int64
	SeatID   int64
	DraftID  string
}
