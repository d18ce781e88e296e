package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/kafka"
	"github.com/lotusair/booking/internal/repository"
)

type BookingUseCase interface {
	Commit(ctx context.Context, input CommitInput) (*domain.Booking, error)
	Get(ctx context.Context, reference string) (*BookingDetails, error)
	ListForMember(ctx context.Context, memberID int64) ([]domain.Booking, error)
	Cancel(ctx context.Context, reference, lastName string) (*domain.Booking, error)
}

type DraftStore interface {
	GetDraft(ctx context.Context, id string) (*domain.Draft, error)
	DeleteDraft(ctx context.Context, id string) error
}

type HoldCache interface {
	AcquireSeatHold(ctx context.Context, flightID, seatID int64, draftID string, ttl time.Duration) (bool, error)
	ReleaseSeatHold(ctx context.Context, flightID, seatID int64, draftID string) error
	SeatHoldOwner(ctx context.Context, flightID, seatID int64) (string, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
	PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error
}

// Notification events drive customer email; they get a few attempts
// before being given up on.
const notifyRetries = 3

type BookingService struct {
	bookings           repository.BookingRepository
	flights            repository.FlightRepository
	members            repository.MemberRepository
	drafts             DraftStore
	holds              HoldCache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
}

type CommitInput struct {
	DraftID       string
	PaymentMethod string
}

type BookingDetails struct {
	Booking domain.Booking
	Tickets []domain.Ticket
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	members repository.MemberRepository,
	drafts DraftStore,
	holds HoldCache,
	producer Producer,
	bookingTopic string,
	holdTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:     bookings,
		flights:      flights,
		members:      members,
		drafts:       drafts,
		holds:        holds,
		producer:     producer,
		bookingTopic: bookingTopic,
		holdTTL:      holdTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Commit turns a complete draft into a confirmed booking in one
// transaction: booking row, seat occupancy, one ticket per passenger
// per leg, payment. It is idempotent by draft id, so a retried
// submission returns the booking the first attempt created.
func (s *BookingService) Commit(ctx context.Context, input CommitInput) (*domain.Booking, error) {
	if input.PaymentMethod == "" {
		return nil, domain.NewError(domain.KindValidation, "a payment method is required")
	}

	if existing, err := s.bookings.GetByDraftID(ctx, input.DraftID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	draft, err := s.drafts.GetDraft(ctx, input.DraftID)
	if err != nil {
		return nil, err
	}
	if err := draft.Complete(); err != nil {
		return nil, err
	}
	if err := s.reassertHolds(ctx, draft); err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		Reference:  newReference(),
		DraftID:    draft.ID,
		MemberID:   draft.MemberID,
		TotalPrice: draft.TotalPrice(),
		Currency:   draft.Currency(),
		Contact:    draft.Contact,
	}

	tickets := buildTickets(draft)
	payment := &domain.Payment{
		Method:   input.PaymentMethod,
		Amount:   booking.TotalPrice,
		Currency: booking.Currency,
	}

	if err := s.bookings.CreateConfirmed(ctx, booking, tickets, payment); err != nil {
		return nil, err
	}

	for _, seat := range draft.Seats {
		_ = s.holds.ReleaseSeatHold(ctx, seat.FlightID, seat.SeatID, draft.ID)
	}
	if err := s.drafts.DeleteDraft(ctx, draft.ID); err != nil {
		log.Printf("delete draft %s after commit: %v", draft.ID, err)
	}

	s.accrueMiles(ctx, draft)
	s.publish(ctx, kafka.EventBookingConfirmed, booking)
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, reference string) (*BookingDetails, error) {
	booking, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	tickets, err := s.bookings.Tickets(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	return &BookingDetails{Booking: *booking, Tickets: tickets}, nil
}

func (s *BookingService) ListForMember(ctx context.Context, memberID int64) ([]domain.Booking, error) {
	return s.bookings.ListForMember(ctx, memberID)
}

// Cancel flips a confirmed booking to Cancelled and releases its
// seats. Guests authorise with a ticket passenger's last name.
func (s *BookingService) Cancel(ctx context.Context, reference, lastName string) (*domain.Booking, error) {
	current, err := s.bookings.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.BookingStatusCancelled {
		return current, nil
	}
	if current.Status != domain.BookingStatusConfirmed {
		return nil, domain.NewError(domain.KindValidation, "booking %s cannot be cancelled", reference)
	}

	tickets, err := s.bookings.Tickets(ctx, current.ID)
	if err != nil {
		return nil, err
	}
	if !lastNameMatches(tickets, lastName) {
		return nil, domain.NewError(domain.KindValidation, "last name does not match this booking")
	}

	cancelled, err := s.bookings.Cancel(ctx, reference)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventBookingCancelled, cancelled)
	return cancelled, nil
}

// reassertHolds verifies every chosen seat is still held by this
// draft; a lapsed hold is re-acquired when the seat is free, and the
// commit is refused when another draft got there first.
func (s *BookingService) reassertHolds(ctx context.Context, draft *domain.Draft) error {
	for _, seat := range draft.Seats {
		owner, err := s.holds.SeatHoldOwner(ctx, seat.FlightID, seat.SeatID)
		if err != nil {
			return err
		}
		switch owner {
		case draft.ID:
			continue
		case "":
			ok, err := s.holds.AcquireSeatHold(ctx, seat.FlightID, seat.SeatID, draft.ID, s.holdTTL)
			if err != nil {
				return err
			}
			if !ok {
				return domain.NewError(domain.KindConflict, "seat %s is no longer available", seat.SeatNumber)
			}
		default:
			return domain.NewError(domain.KindConflict, "seat %s is no longer available", seat.SeatNumber)
		}
	}
	return nil
}

func (s *BookingService) accrueMiles(ctx context.Context, draft *domain.Draft) {
	if draft.MemberID == nil {
		return
	}
	miles := 0
	for _, leg := range draft.RequiredLegs() {
		sel := draft.Legs[leg]
		flight, err := s.flights.GetByID(ctx, sel.FlightID)
		if err != nil {
			log.Printf("accrue miles: flight %d: %v", sel.FlightID, err)
			continue
		}
		miles += flight.DistanceMiles
	}
	if miles == 0 {
		return
	}
	if _, err := s.members.AccrueMiles(ctx, *draft.MemberID, miles); err != nil {
		log.Printf("accrue %d miles for member %d: %v", miles, *draft.MemberID, err)
	}
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil {
		return
	}
	event := kafka.NotificationEvent{
		Type:      eventType,
		Email:     booking.Contact.Email,
		Reference: booking.Reference,
		Total:     booking.TotalPrice,
		Currency:  booking.Currency,
	}
	if s.bookingTopic != "" {
		if err := s.producer.Publish(ctx, s.bookingTopic, booking.Reference, event); err != nil {
			log.Printf("publish %s for booking %s: %v", eventType, booking.Reference, err)
		}
	}
	if s.notificationsTopic != "" {
		if err := s.producer.PublishWithRetry(ctx, s.notificationsTopic, booking.Reference, event, notifyRetries); err != nil {
			log.Printf("publish %s notification for booking %s: %v", eventType, booking.Reference, err)
		}
	}
}

// buildTickets pairs passengers with the leg's seats in selection
// order: passenger i gets seat i.
func buildTickets(draft *domain.Draft) []domain.Ticket {
	var tickets []domain.Ticket
	for _, leg := range draft.RequiredLegs() {
		seats := draft.SeatsForLeg(leg)
		for i, p := range draft.Passengers {
			seat := seats[i]
			tickets = append(tickets, domain.Ticket{
				FlightID:       seat.FlightID,
				SeatID:         seat.SeatID,
				SeatNumber:     seat.SeatNumber,
				Class:          seat.Class,
				PassengerName:  p.FirstName + " " + p.LastName,
				DocumentNumber: p.DocumentNumber,
				Leg:            leg,
			})
		}
	}
	return tickets
}

func lastNameMatches(tickets []domain.Ticket, lastName string) bool {
	want := strings.ToLower(strings.TrimSpace(lastName))
	if want == "" {
		return false
	}
	for _, t := range tickets {
		if strings.HasSuffix(strings.ToLower(t.PassengerName), " "+want) {
			return true
		}
	}
	return false
}

func newReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

var _ BookingUseCase = (*BookingService)(nil)
