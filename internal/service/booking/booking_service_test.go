package booking

import (
	"context"
	"testing"
	"time"

	"github.com/lotusair/booking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CreateConfirmed(ctx context.Context, booking *domain.Booking, tickets []domain.Ticket, payment *domain.Payment) error {
	args := m.Called(ctx, booking, tickets, payment)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByDraftID(ctx context.Context, draftID string) (*domain.Booking, error) {
	args := m.Called(ctx, draftID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) ListForMember(ctx context.Context, memberID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, memberID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Tickets(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockBookingRepository) Cancel(ctx context.Context, reference string) (*domain.Booking, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Flight, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) Fares(ctx context.Context, flightID int64, classes []domain.CabinClass) ([]domain.FarePrice, error) {
	args := m.Called(ctx, flightID, classes)
	return args.Get(0).([]domain.FarePrice), args.Error(1)
}

func (m *MockFlightRepository) Seats(ctx context.Context, airplaneType string) ([]domain.Seat, error) {
	args := m.Called(ctx, airplaneType)
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockFlightRepository) SeatByNumber(ctx context.Context, airplaneType, number string) (*domain.Seat, error) {
	args := m.Called(ctx, airplaneType, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Seat), args.Error(1)
}

func (m *MockFlightRepository) OccupiedSeats(ctx context.Context, flightID int64) (map[int64]int64, error) {
	args := m.Called(ctx, flightID)
	return args.Get(0).(map[int64]int64), args.Error(1)
}

type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) UpdateProfile(ctx context.Context, member *domain.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockMemberRepository) SetVerified(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMemberRepository) SetPassword(ctx context.Context, id int64, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

func (m *MockMemberRepository) AccrueMiles(ctx context.Context, id int64, miles int) (*domain.Member, error) {
	args := m.Called(ctx, id, miles)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Member), args.Error(1)
}

func (m *MockMemberRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockMemberRepository) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockMemberRepository) DeleteSession(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockMemberRepository) DeleteExpiredSessions(ctx context.Context, deadline time.Time) (int64, error) {
	args := m.Called(ctx, deadline)
	return args.Get(0).(int64), args.Error(1)
}

type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) GetDraft(ctx context.Context, id string) (*domain.Draft, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Draft), args.Error(1)
}

func (m *MockDraftStore) DeleteDraft(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockHoldCache struct {
	mock.Mock
}

func (m *MockHoldCache) AcquireSeatHold(ctx context.Context, flightID, seatID int64, draftID string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, flightID, seatID, draftID, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldCache) ReleaseSeatHold(ctx context.Context, flightID, seatID int64, draftID string) error {
	args := m.Called(ctx, flightID, seatID, draftID)
	return args.Error(0)
}

func (m *MockHoldCache) SeatHoldOwner(ctx context.Context, flightID, seatID int64) (string, error) {
	args := m.Called(ctx, flightID, seatID)
	return args.String(0), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func (m *MockProducer) PublishWithRetry(ctx context.Context, topic, key string, value interface{}, maxRetries int) error {
	args := m.Called(ctx, topic, key, value, maxRetries)
	return args.Error(0)
}

func completeDraft() *domain.Draft {
	return &domain.Draft{
		ID:             "draft-9",
		TripType:       domain.TripOneWay,
		PassengerCount: 1,
		Legs: map[domain.Leg]*domain.LegSelection{
			domain.LegOutbound: {FlightID: 7, Class: domain.CabinEconomyFlex, Amount: 2000000, Currency: "VND"},
		},
		Seats: []domain.DraftSeat{
			{SeatID: 3, SeatNumber: "12C", FlightID: 7, Class: domain.CabinEconomyFlex, Leg: domain.LegOutbound},
		},
		Passengers: []domain.Passenger{{FirstName: "An", LastName: "Nguyen", DocumentNumber: "C1234567"}},
		Contact:    domain.Contact{Email: "an@example.com", Phone: "+84901234567"},
		ExpiresAt:  time.Now().Add(30 * time.Minute),
	}
}

func newTestService(
	bookings *MockBookingRepository,
	flights *MockFlightRepository,
	members *MockMemberRepository,
	drafts *MockDraftStore,
	holds *MockHoldCache,
	producer *MockProducer,
) *BookingService {
	service := NewBookingService(bookings, flights, members, drafts, holds, nil, "bookings", 10*time.Minute,
		WithNotificationsTopic("notifications"))
	if producer != nil {
		service.producer = producer
	}
	return service
}

func TestBookingService_Commit_Success(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockDrafts := &MockDraftStore{}
	mockHolds := &MockHoldCache{}
	mockProducer := &MockProducer{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, mockDrafts, mockHolds, mockProducer)

	ctx := context.Background()
	draft := completeDraft()

	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(nil, nil).Once()
	mockDrafts.On("GetDraft", ctx, "draft-9").Return(draft, nil).Once()
	mockHolds.On("SeatHoldOwner", ctx, int64(7), int64(3)).Return("draft-9", nil).Once()
	mockBookings.On("CreateConfirmed", ctx,
		mock.AnythingOfType("*domain.Booking"),
		mock.AnythingOfType("[]domain.Ticket"),
		mock.AnythingOfType("*domain.Payment"),
	).Return(nil).Once()
	mockHolds.On("ReleaseSeatHold", ctx, int64(7), int64(3), "draft-9").Return(nil).Once()
	mockDrafts.On("DeleteDraft", ctx, "draft-9").Return(nil).Once()
	mockProducer.On("Publish", ctx, "bookings", mock.AnythingOfType("string"), mock.Anything).Return(nil).Once()
	mockProducer.On("PublishWithRetry", ctx, "notifications", mock.AnythingOfType("string"), mock.Anything, 3).Return(nil).Once()

	booking, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.NoError(t, err)
	assert.Len(t, booking.Reference, 8)
	assert.Equal(t, int64(2000000), booking.TotalPrice)
	assert.Equal(t, "VND", booking.Currency)
	assert.Equal(t, "an@example.com", booking.Contact.Email)

	createCall := mockBookings.Calls[1]
	tickets := createCall.Arguments.Get(2).([]domain.Ticket)
	assert.Len(t, tickets, 1)
	assert.Equal(t, "An Nguyen", tickets[0].PassengerName)
	assert.Equal(t, "12C", tickets[0].SeatNumber)
	payment := createCall.Arguments.Get(3).(*domain.Payment)
	assert.Equal(t, int64(2000000), payment.Amount)

	mockBookings.AssertExpectations(t)
	mockDrafts.AssertExpectations(t)
	mockHolds.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_Commit_RoundTripPricesPerPassengerPerLeg(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockDrafts := &MockDraftStore{}
	mockHolds := &MockHoldCache{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, mockDrafts, mockHolds, nil)

	ctx := context.Background()
	draft := completeDraft()
	draft.TripType = domain.TripRoundTrip
	draft.PassengerCount = 2
	draft.Legs[domain.LegReturn] = &domain.LegSelection{FlightID: 8, Class: domain.CabinEconomySaver, Amount: 1200000, Currency: "VND"}
	draft.Seats = []domain.DraftSeat{
		{SeatID: 3, SeatNumber: "12C", FlightID: 7, Class: domain.CabinEconomyFlex, Leg: domain.LegOutbound},
		{SeatID: 4, SeatNumber: "12D", FlightID: 7, Class: domain.CabinEconomyFlex, Leg: domain.LegOutbound},
		{SeatID: 13, SeatNumber: "14A", FlightID: 8, Class: domain.CabinEconomySaver, Leg: domain.LegReturn},
		{SeatID: 14, SeatNumber: "14B", FlightID: 8, Class: domain.CabinEconomySaver, Leg: domain.LegReturn},
	}
	draft.Passengers = append(draft.Passengers, domain.Passenger{FirstName: "Binh", LastName: "Tran", DocumentNumber: "C7654321"})

	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(nil, nil).Once()
	mockDrafts.On("GetDraft", ctx, "draft-9").Return(draft, nil).Once()
	for _, seat := range draft.Seats {
		mockHolds.On("SeatHoldOwner", ctx, seat.FlightID, seat.SeatID).Return("draft-9", nil).Once()
		mockHolds.On("ReleaseSeatHold", ctx, seat.FlightID, seat.SeatID, "draft-9").Return(nil).Once()
	}
	mockBookings.On("CreateConfirmed", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	mockDrafts.On("DeleteDraft", ctx, "draft-9").Return(nil).Once()

	booking, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.NoError(t, err)
	// (2,000,000 + 1,200,000) per passenger, two passengers.
	assert.Equal(t, int64(6400000), booking.TotalPrice)

	tickets := mockBookings.Calls[1].Arguments.Get(2).([]domain.Ticket)
	assert.Len(t, tickets, 4)

	mockBookings.AssertExpectations(t)
	mockHolds.AssertExpectations(t)
}

func TestBookingService_Commit_IsIdempotentByDraft(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, &MockDraftStore{}, &MockHoldCache{}, nil)

	ctx := context.Background()
	existing := &domain.Booking{ID: 42, Reference: "AB12CD34", DraftID: "draft-9", Status: domain.BookingStatusConfirmed}
	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(existing, nil).Once()

	booking, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.NoError(t, err)
	assert.Equal(t, existing, booking)
	mockBookings.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_Commit_IncompleteDraftRejected(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockDrafts := &MockDraftStore{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, mockDrafts, &MockHoldCache{}, nil)

	ctx := context.Background()
	draft := completeDraft()
	draft.Seats = nil

	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(nil, nil).Once()
	mockDrafts.On("GetDraft", ctx, "draft-9").Return(draft, nil).Once()

	_, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	mockBookings.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_Commit_LostHoldRefused(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockDrafts := &MockDraftStore{}
	mockHolds := &MockHoldCache{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, mockDrafts, mockHolds, nil)

	ctx := context.Background()
	draft := completeDraft()

	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(nil, nil).Once()
	mockDrafts.On("GetDraft", ctx, "draft-9").Return(draft, nil).Once()
	mockHolds.On("SeatHoldOwner", ctx, int64(7), int64(3)).Return("draft-2", nil).Once()

	_, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
	mockBookings.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingService_Commit_LapsedHoldReacquired(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockDrafts := &MockDraftStore{}
	mockHolds := &MockHoldCache{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, mockDrafts, mockHolds, nil)

	ctx := context.Background()
	draft := completeDraft()

	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(nil, nil).Once()
	mockDrafts.On("GetDraft", ctx, "draft-9").Return(draft, nil).Once()
	mockHolds.On("SeatHoldOwner", ctx, int64(7), int64(3)).Return("", nil).Once()
	mockHolds.On("AcquireSeatHold", ctx, int64(7), int64(3), "draft-9", 10*time.Minute).Return(true, nil).Once()
	mockBookings.On("CreateConfirmed", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	mockHolds.On("ReleaseSeatHold", ctx, int64(7), int64(3), "draft-9").Return(nil).Once()
	mockDrafts.On("DeleteDraft", ctx, "draft-9").Return(nil).Once()

	_, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.NoError(t, err)
	mockHolds.AssertExpectations(t)
}

func TestBookingService_Commit_AccruesMilesForMember(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockFlights := &MockFlightRepository{}
	mockMembers := &MockMemberRepository{}
	mockDrafts := &MockDraftStore{}
	mockHolds := &MockHoldCache{}
	service := newTestService(mockBookings, mockFlights, mockMembers, mockDrafts, mockHolds, nil)

	ctx := context.Background()
	memberID := int64(5)
	draft := completeDraft()
	draft.MemberID = &memberID

	mockBookings.On("GetByDraftID", ctx, "draft-9").Return(nil, nil).Once()
	mockDrafts.On("GetDraft", ctx, "draft-9").Return(draft, nil).Once()
	mockHolds.On("SeatHoldOwner", ctx, int64(7), int64(3)).Return("draft-9", nil).Once()
	mockBookings.On("CreateConfirmed", ctx, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()
	mockHolds.On("ReleaseSeatHold", ctx, int64(7), int64(3), "draft-9").Return(nil).Once()
	mockDrafts.On("DeleteDraft", ctx, "draft-9").Return(nil).Once()
	mockFlights.On("GetByID", ctx, int64(7)).Return(&domain.Flight{ID: 7, DistanceMiles: 1050}, nil).Once()
	mockMembers.On("AccrueMiles", ctx, memberID, 1050).Return(&domain.Member{ID: memberID, Miles: 1050}, nil).Once()

	_, err := service.Commit(ctx, CommitInput{DraftID: "draft-9", PaymentMethod: "card"})

	assert.NoError(t, err)
	mockMembers.AssertExpectations(t)
}

func TestBookingService_Cancel_ReleasesBooking(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	mockProducer := &MockProducer{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, &MockDraftStore{}, &MockHoldCache{}, mockProducer)

	ctx := context.Background()
	confirmed := &domain.Booking{ID: 42, Reference: "AB12CD34", Status: domain.BookingStatusConfirmed, Contact: domain.Contact{Email: "an@example.com"}}
	cancelled := &domain.Booking{ID: 42, Reference: "AB12CD34", Status: domain.BookingStatusCancelled, Contact: domain.Contact{Email: "an@example.com"}}

	mockBookings.On("GetByReference", ctx, "AB12CD34").Return(confirmed, nil).Once()
	mockBookings.On("Tickets", ctx, int64(42)).Return([]domain.Ticket{
		{PassengerName: "An Nguyen", SeatNumber: "12C"},
	}, nil).Once()
	mockBookings.On("Cancel", ctx, "AB12CD34").Return(cancelled, nil).Once()
	mockProducer.On("Publish", ctx, "bookings", "AB12CD34", mock.Anything).Return(nil).Once()
	mockProducer.On("PublishWithRetry", ctx, "notifications", "AB12CD34", mock.Anything, 3).Return(nil).Once()

	result, err := service.Cancel(ctx, "AB12CD34", "nguyen")

	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
	mockBookings.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_Cancel_WrongLastNameRejected(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, &MockDraftStore{}, &MockHoldCache{}, nil)

	ctx := context.Background()
	confirmed := &domain.Booking{ID: 42, Reference: "AB12CD34", Status: domain.BookingStatusConfirmed}

	mockBookings.On("GetByReference", ctx, "AB12CD34").Return(confirmed, nil).Once()
	mockBookings.On("Tickets", ctx, int64(42)).Return([]domain.Ticket{
		{PassengerName: "An Nguyen"},
	}, nil).Once()

	_, err := service.Cancel(ctx, "AB12CD34", "Pham")

	assert.Error(t, err)
	mockBookings.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}

func TestBookingService_Cancel_AlreadyCancelledIsNoop(t *testing.T) {
	mockBookings := &MockBookingRepository{}
	service := newTestService(mockBookings, &MockFlightRepository{}, &MockMemberRepository{}, &MockDraftStore{}, &MockHoldCache{}, nil)

	ctx := context.Background()
	cancelled := &domain.Booking{ID: 42, Reference: "AB12CD34", Status: domain.BookingStatusCancelled}
	mockBookings.On("GetByReference", ctx, "AB12CD34").Return(cancelled, nil).Once()

	result, err := service.Cancel(ctx, "AB12CD34", "nguyen")

	assert.NoError(t, err)
	assert.Equal(t, cancelled, result)
	mockBookings.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything)
}
