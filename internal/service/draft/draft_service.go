package draft

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/repository"
)

type DraftUseCase interface {
	Create(ctx context.Context, input CreateDraftInput) (*domain.Draft, error)
	Get(ctx context.Context, id string) (*domain.Draft, error)
	SelectFare(ctx context.Context, id string, leg domain.Leg, flightID int64, class domain.CabinClass) (*domain.Draft, error)
	ToggleSeat(ctx context.Context, id string, leg domain.Leg, seatNumber string) (*domain.Draft, domain.ToggleOutcome, error)
	ResolvePending(ctx context.Context, id string, accept bool) (*domain.Draft, error)
	SetPassengers(ctx context.Context, id string, passengers []domain.Passenger, contact domain.Contact) (*domain.Draft, error)
	ReleaseOrphanedHolds(ctx context.Context) (int, error)
}

// Store keeps drafts server-side with an expiry, so abandoning the
// browser never strands durable state.
type Store interface {
	SaveDraft(ctx context.Context, draft *domain.Draft) error
	GetDraft(ctx context.Context, id string) (*domain.Draft, error)
	DeleteDraft(ctx context.Context, id string) error
}

type HoldCache interface {
	AcquireSeatHold(ctx context.Context, flightID, seatID int64, draftID string, ttl time.Duration) (bool, error)
	ReleaseSeatHold(ctx context.Context, flightID, seatID int64, draftID string) error
	SeatHoldOwner(ctx context.Context, flightID, seatID int64) (string, error)
	SeatHolds(ctx context.Context) ([]domain.SeatHold, error)
}

type DraftService struct {
	flights  repository.FlightRepository
	store    Store
	holds    HoldCache
	draftTTL time.Duration
	holdTTL  time.Duration
}

type CreateDraftInput struct {
	TripType       domain.TripType
	PassengerCount int
	MemberID       *int64
}

func NewDraftService(flights repository.FlightRepository, store Store, holds HoldCache, draftTTL, holdTTL time.Duration) *DraftService {
	return &DraftService{
		flights:  flights,
		store:    store,
		holds:    holds,
		draftTTL: draftTTL,
		holdTTL:  holdTTL,
	}
}

func (s *DraftService) Create(ctx context.Context, input CreateDraftInput) (*domain.Draft, error) {
	if input.TripType != domain.TripOneWay && input.TripType != domain.TripRoundTrip {
		return nil, domain.NewError(domain.KindValidation, "trip type must be one-way or round-trip")
	}
	if input.PassengerCount < 1 || input.PassengerCount > 9 {
		return nil, domain.NewError(domain.KindValidation, "passenger count must be between 1 and 9")
	}

	now := time.Now()
	draft := &domain.Draft{
		ID:             uuid.NewString(),
		TripType:       input.TripType,
		PassengerCount: input.PassengerCount,
		MemberID:       input.MemberID,
		Legs:           make(map[domain.Leg]*domain.LegSelection),
		CreatedAt:      now,
		ExpiresAt:      now.Add(s.draftTTL),
	}
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) Get(ctx context.Context, id string) (*domain.Draft, error) {
	return s.store.GetDraft(ctx, id)
}

// SelectFare records the chosen flight and class for a leg, priced at
// selection time. Changing the fare drops any seats already chosen
// for that leg, since they may no longer match the cabin.
func (s *DraftService) SelectFare(ctx context.Context, id string, leg domain.Leg, flightID int64, class domain.CabinClass) (*domain.Draft, error) {
	if !class.Valid() {
		return nil, domain.NewError(domain.KindValidation, "unknown fare class")
	}

	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if !legAllowed(draft, leg) {
		return nil, domain.NewError(domain.KindValidation, "a %s booking has no %s leg", draft.TripType, leg)
	}

	if _, err := s.flights.GetByID(ctx, flightID); err != nil {
		return nil, err
	}
	fare, err := s.fareFor(ctx, flightID, class)
	if err != nil {
		return nil, err
	}

	for _, seat := range draft.SeatsForLeg(leg) {
		_ = s.holds.ReleaseSeatHold(ctx, seat.FlightID, seat.SeatID, draft.ID)
	}
	kept := draft.Seats[:0]
	for _, seat := range draft.Seats {
		if seat.Leg != leg {
			kept = append(kept, seat)
		}
	}
	draft.Seats = kept
	draft.Pending = nil

	draft.Legs[leg] = &domain.LegSelection{
		FlightID: flightID,
		Class:    class,
		Amount:   fare.Amount,
		Currency: fare.Currency,
	}
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ToggleSeat applies one seat click. Selecting acquires a short-lived
// hold on the seat; a class mismatch parks the click behind a
// confirmation instead, and nothing is held until it is resolved.
func (s *DraftService) ToggleSeat(ctx context.Context, id string, leg domain.Leg, seatNumber string) (*domain.Draft, domain.ToggleOutcome, error) {
	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, "", err
	}
	sel, ok := draft.Legs[leg]
	if !ok {
		return nil, "", domain.NewError(domain.KindValidation, "select a fare for the %s leg first", leg)
	}

	status, err := s.seatStatus(ctx, draft, sel.FlightID, seatNumber)
	if err != nil {
		return nil, "", err
	}

	outcome, err := draft.ToggleSeat(leg, *status)
	if err != nil {
		return nil, "", err
	}

	switch outcome {
	case domain.ToggleRemoved:
		_ = s.holds.ReleaseSeatHold(ctx, sel.FlightID, status.Seat.ID, draft.ID)
	case domain.ToggleSelected:
		if err := s.holdSeat(ctx, draft, sel.FlightID, status.Seat); err != nil {
			draft.Seats = draft.Seats[:len(draft.Seats)-1]
			return nil, "", err
		}
	}

	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, "", err
	}
	return draft, outcome, nil
}

// ResolvePending answers an upgrade/downgrade confirmation. Accepting
// re-quotes the leg's fare for the new class before anything is
// recorded; declining leaves the draft as it was.
func (s *DraftService) ResolvePending(ctx context.Context, id string, accept bool) (*domain.Draft, error) {
	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	pending := draft.Pending
	if pending == nil {
		return nil, domain.NewError(domain.KindValidation, "no seat confirmation is pending")
	}

	var fare *domain.FarePrice
	if accept {
		sel := draft.Legs[pending.Leg]
		fare, err = s.fareFor(ctx, sel.FlightID, pending.Seat.Class)
		if err != nil {
			return nil, err
		}
	}

	seat, err := draft.ResolvePending(accept)
	if err != nil {
		return nil, err
	}
	if seat != nil {
		sel := draft.Legs[pending.Leg]
		sel.Amount = fare.Amount
		sel.Currency = fare.Currency
		if err := s.holdSeat(ctx, draft, seat.FlightID, pending.Seat); err != nil {
			return nil, err
		}
	}

	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) SetPassengers(ctx context.Context, id string, passengers []domain.Passenger, contact domain.Contact) (*domain.Draft, error) {
	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(passengers) != draft.PassengerCount {
		return nil, domain.NewError(domain.KindValidation, "expected %d passengers, got %d", draft.PassengerCount, len(passengers))
	}
	for i, p := range passengers {
		if strings.TrimSpace(p.FirstName) == "" || strings.TrimSpace(p.LastName) == "" {
			return nil, domain.NewError(domain.KindValidation, "passenger %d is missing a name", i+1)
		}
	}
	if contact.Email == "" {
		return nil, domain.NewError(domain.KindValidation, "a contact email is required")
	}

	draft.Passengers = passengers
	draft.Contact = contact
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

// ReleaseOrphanedHolds drops holds whose owning draft no longer
// exists. Holds normally lapse by TTL; the sweep catches ones that
// outlive an expired or committed draft, since the hold TTL renews on
// every selection while the draft's does not.
func (s *DraftService) ReleaseOrphanedHolds(ctx context.Context) (int, error) {
	holds, err := s.holds.SeatHolds(ctx)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, h := range holds {
		_, err := s.store.GetDraft(ctx, h.DraftID)
		if err == nil {
			continue
		}
		if domain.KindOf(err) != domain.KindGone {
			return released, err
		}
		if err := s.holds.ReleaseSeatHold(ctx, h.FlightID, h.SeatID, h.DraftID); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

func (s *DraftService) seatStatus(ctx context.Context, draft *domain.Draft, flightID int64, seatNumber string) (*domain.SeatStatus, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seat, err := s.flights.SeatByNumber(ctx, flight.AirplaneType, seatNumber)
	if err != nil {
		return nil, err
	}

	occupied, err := s.flights.OccupiedSeats(ctx, flightID)
	if err != nil {
		return nil, err
	}
	_, taken := occupied[seat.ID]

	heldByOther := false
	if owner, err := s.holds.SeatHoldOwner(ctx, flightID, seat.ID); err != nil {
		return nil, err
	} else if owner != "" && owner != draft.ID {
		heldByOther = true
	}

	return &domain.SeatStatus{Seat: *seat, Occupied: taken, Held: heldByOther}, nil
}

func (s *DraftService) holdSeat(ctx context.Context, draft *domain.Draft, flightID int64, seat domain.Seat) error {
	ok, err := s.holds.AcquireSeatHold(ctx, flightID, seat.ID, draft.ID, s.holdTTL)
	if err != nil {
		return err
	}
	if !ok {
		owner, err := s.holds.SeatHoldOwner(ctx, flightID, seat.ID)
		if err != nil {
			return err
		}
		if owner != draft.ID {
			return domain.NewError(domain.KindConflict, "seat %s was just taken by another booking", seat.Number)
		}
	}
	return nil
}

func (s *DraftService) fareFor(ctx context.Context, flightID int64, class domain.CabinClass) (*domain.FarePrice, error) {
	fares, err := s.flights.Fares(ctx, flightID, []domain.CabinClass{class})
	if err != nil {
		return nil, err
	}
	if len(fares) == 0 {
		return nil, domain.NewError(domain.KindValidation, "%s is not offered on this flight", class)
	}
	return &fares[0], nil
}

func legAllowed(draft *domain.Draft, leg domain.Leg) bool {
	for _, l := range draft.RequiredLegs() {
		if l == leg {
			return true
		}
	}
	return false
}

var _ DraftUseCase = (*DraftService)(nil)
