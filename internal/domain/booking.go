package domain

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

type Booking struct {
	ID         int64
	Reference  string
	DraftID    string
	MemberID   *int64
	TotalPrice int64
	Currency   string
	Status     BookingStatus
	Contact    Contact
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Ticket links one passenger to one seat on one flight leg.
type Ticket struct {
	ID             int64
	BookingID      int64
	FlightID       int64
	SeatID         int64
	SeatNumber     string
	Class          CabinClass
	PassengerName  string
	DocumentNumber string
	Leg            Leg
	CreatedAt      time.Time
}

type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type Payment struct {
	ID        int64
	BookingID int64
	Method    string
	Amount    int64
	Currency  string
	Status    PaymentStatus
	CreatedAt time.Time
}
