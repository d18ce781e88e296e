package domain

import "time"

type TripType string

const (
	TripOneWay    TripType = "one-way"
	TripRoundTrip TripType = "round-trip"
)

type Leg string

const (
	LegOutbound Leg = "outbound"
	LegReturn   Leg = "return"
)

func (l Leg) IsReturn() bool { return l == LegReturn }

// LegSelection is the fare the user holds for one leg, priced at
// selection time.
type LegSelection struct {
	FlightID int64
	Class    CabinClass
	Amount   int64
	Currency string
}

// DraftSeat is one chosen seat tagged with its leg.
type DraftSeat struct {
	SeatID     int64
	SeatNumber string
	FlightID   int64
	Class      CabinClass
	Leg        Leg
}

type PendingKind string

const (
	PendingUpgrade   PendingKind = "upgrade"
	PendingDowngrade PendingKind = "downgrade"
)

// PendingSeat holds a clicked seat whose cabin differs from the leg's
// held class, awaiting an explicit confirmation.
type PendingSeat struct {
	Kind PendingKind
	Leg  Leg
	Seat Seat
}

type Passenger struct {
	FirstName      string
	LastName       string
	DocumentNumber string
	DateOfBirth    time.Time
}

type Contact struct {
	Email string
	Phone string
}

// Draft is the server-side booking draft assembled across the wizard
// steps. It lives in Redis under its ID until commit or expiry.
type Draft struct {
	ID             string
	TripType       TripType
	PassengerCount int
	MemberID       *int64
	Legs           map[Leg]*LegSelection
	Seats          []DraftSeat
	Passengers     []Passenger
	Contact        Contact
	Pending        *PendingSeat
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// ToggleOutcome tells the caller what a seat click did.
type ToggleOutcome string

const (
	ToggleRemoved          ToggleOutcome = "removed"
	ToggleSelected         ToggleOutcome = "selected"
	ToggleConfirmUpgrade   ToggleOutcome = "confirm-upgrade"
	ToggleConfirmDowngrade ToggleOutcome = "confirm-downgrade"
)

func (d *Draft) RequiredLegs() []Leg {
	if d.TripType == TripRoundTrip {
		return []Leg{LegOutbound, LegReturn}
	}
	return []Leg{LegOutbound}
}

func (d *Draft) SeatsForLeg(leg Leg) []DraftSeat {
	var out []DraftSeat
	for _, s := range d.Seats {
		if s.Leg == leg {
			out = append(out, s)
		}
	}
	return out
}

func (d *Draft) findSeat(leg Leg, seatID int64) int {
	for i, s := range d.Seats {
		if s.Leg == leg && s.SeatID == seatID {
			return i
		}
	}
	return -1
}

// ToggleSeat applies one seat click for a leg. A click on an already
// selected seat removes it. A click on a free seat of the held class
// selects it directly; a class mismatch parks the seat in Pending and
// records nothing until the confirmation is resolved.
func (d *Draft) ToggleSeat(leg Leg, st SeatStatus) (ToggleOutcome, error) {
	sel, ok := d.Legs[leg]
	if !ok {
		return "", NewError(KindValidation, "select a fare for the %s leg first", leg)
	}

	if i := d.findSeat(leg, st.Seat.ID); i >= 0 {
		d.Seats = append(d.Seats[:i], d.Seats[i+1:]...)
		return ToggleRemoved, nil
	}

	if st.Seat.Blocked || st.Occupied || st.Held {
		return "", NewError(KindConflict, "seat %s is not available", st.Seat.Number)
	}
	if len(d.SeatsForLeg(leg)) >= d.PassengerCount {
		return "", NewError(KindValidation, "all %d seats for the %s leg are already selected", d.PassengerCount, leg)
	}

	switch {
	case st.Seat.Class.Rank() > sel.Class.Rank():
		d.Pending = &PendingSeat{Kind: PendingUpgrade, Leg: leg, Seat: st.Seat}
		return ToggleConfirmUpgrade, nil
	case st.Seat.Class.Rank() < sel.Class.Rank():
		d.Pending = &PendingSeat{Kind: PendingDowngrade, Leg: leg, Seat: st.Seat}
		return ToggleConfirmDowngrade, nil
	}

	// A successful selection supersedes any parked confirmation.
	d.Pending = nil
	d.Seats = append(d.Seats, DraftSeat{
		SeatID:     st.Seat.ID,
		SeatNumber: st.Seat.Number,
		FlightID:   sel.FlightID,
		Class:      st.Seat.Class,
		Leg:        leg,
	})
	return ToggleSelected, nil
}

// ResolvePending answers the upgrade/downgrade confirmation. Accepting
// moves the leg to the candidate seat's class and records the seat;
// declining discards the candidate and changes nothing. The per-leg
// cap is re-checked at acceptance, since seats may have been selected
// while the confirmation was open. The returned seat is non-nil only
// when a seat was recorded.
func (d *Draft) ResolvePending(accept bool) (*DraftSeat, error) {
	p := d.Pending
	if p == nil {
		return nil, NewError(KindValidation, "no seat confirmation is pending")
	}
	d.Pending = nil
	if !accept {
		return nil, nil
	}
	if len(d.SeatsForLeg(p.Leg)) >= d.PassengerCount {
		return nil, NewError(KindValidation, "all %d seats for the %s leg are already selected", d.PassengerCount, p.Leg)
	}

	sel := d.Legs[p.Leg]
	sel.Class = p.Seat.Class
	seat := DraftSeat{
		SeatID:     p.Seat.ID,
		SeatNumber: p.Seat.Number,
		FlightID:   sel.FlightID,
		Class:      p.Seat.Class,
		Leg:        p.Leg,
	}
	d.Seats = append(d.Seats, seat)
	return &seat, nil
}

// Complete checks the commit preconditions: a fare for every required
// leg, a full set of seats per leg, and passenger details captured.
func (d *Draft) Complete() error {
	for _, leg := range d.RequiredLegs() {
		if _, ok := d.Legs[leg]; !ok {
			return NewError(KindValidation, "no fare selected for the %s leg", leg)
		}
		if n := len(d.SeatsForLeg(leg)); n != d.PassengerCount {
			return NewError(KindValidation, "the %s leg needs %d seats, %d selected", leg, d.PassengerCount, n)
		}
	}
	if len(d.Passengers) != d.PassengerCount {
		return NewError(KindValidation, "passenger details incomplete: need %d, have %d", d.PassengerCount, len(d.Passengers))
	}
	return nil
}

// TotalPrice is the committed booking total: per-leg fare times the
// passenger count, summed across legs.
func (d *Draft) TotalPrice() int64 {
	var total int64
	for _, leg := range d.RequiredLegs() {
		if sel, ok := d.Legs[leg]; ok {
			total += sel.Amount * int64(d.PassengerCount)
		}
	}
	return total
}

func (d *Draft) Currency() string {
	if sel, ok := d.Legs[LegOutbound]; ok {
		return sel.Currency
	}
	return ""
}
