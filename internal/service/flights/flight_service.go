package flights

import (
	"context"
	"fmt"
	"log"

	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/repository"
)

type FlightUseCase interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.FlightQuote, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	FareBreakdown(ctx context.Context, flightID int64, bucket domain.CabinBucket) ([]domain.ClassAvailability, error)
	SeatMap(ctx context.Context, flightID int64) ([]domain.SeatStatus, error)
}

type Cache interface {
	GetSearch(ctx context.Context, key string) ([]domain.FlightQuote, error)
	SetSearch(ctx context.Context, key string, quotes []domain.FlightQuote) error
	HeldSeats(ctx context.Context, flightID int64) (map[int64]bool, error)
}

type FlightService struct {
	repo  repository.FlightRepository
	cache Cache
}

func NewFlightService(repo repository.FlightRepository, cache Cache) *FlightService {
	return &FlightService{repo: repo, cache: cache}
}

// Search lists candidate flights with one aggregated quote per cabin
// bucket. A failed fare lookup degrades that flight's bucket to
// unavailable; the listing itself never fails because of pricing.
func (s *FlightService) Search(ctx context.Context, query domain.SearchQuery) ([]domain.FlightQuote, error) {
	key := searchKey(query)
	if s.cache != nil {
		if cached, err := s.cache.GetSearch(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	flights, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	buckets := []domain.CabinBucket{domain.BucketEconomy, domain.BucketFirstClass}
	if query.Bucket.Valid() {
		buckets = []domain.CabinBucket{query.Bucket}
	}

	quotes := make([]domain.FlightQuote, 0, len(flights))
	for _, f := range flights {
		fq := domain.FlightQuote{Flight: f}
		for _, b := range buckets {
			fq.Quotes = append(fq.Quotes, s.bucketQuote(ctx, f.ID, b))
		}
		quotes = append(quotes, fq)
	}

	if s.cache != nil {
		_ = s.cache.SetSearch(ctx, key, quotes)
	}
	return quotes, nil
}

// bucketQuote aggregates the bucket's constituent classes: price is
// the minimum of the priced classes, availability the sum of the
// listed counts. No priced class means unavailable, never a zero
// price.
func (s *FlightService) bucketQuote(ctx context.Context, flightID int64, bucket domain.CabinBucket) domain.FareBucketQuote {
	quote := domain.FareBucketQuote{Bucket: bucket}

	fares, err := s.repo.Fares(ctx, flightID, bucket.Classes())
	if err != nil {
		log.Printf("fares for flight %d bucket %s: %v", flightID, bucket, err)
		return quote
	}

	for _, fare := range fares {
		if !quote.Available || fare.Amount < quote.Amount {
			quote.Amount = fare.Amount
			quote.Currency = fare.Currency
		}
		quote.SeatCount += fare.SeatCount
		quote.Available = true
	}
	return quote
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return s.repo.GetByID(ctx, id)
}

// FareBreakdown expands a bucket into per-class price and the
// recomputed availability: physical seats of the flight's airplane
// type in the class, minus seats occupied on this flight. The listed
// availability column is not trusted here.
func (s *FlightService) FareBreakdown(ctx context.Context, flightID int64, bucket domain.CabinBucket) ([]domain.ClassAvailability, error) {
	if !bucket.Valid() {
		return nil, domain.NewError(domain.KindValidation, "unknown cabin bucket %q", bucket)
	}

	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seats, err := s.repo.Seats(ctx, flight.AirplaneType)
	if err != nil {
		return nil, err
	}
	occupied, err := s.repo.OccupiedSeats(ctx, flightID)
	if err != nil {
		return nil, err
	}
	fares, err := s.repo.Fares(ctx, flightID, bucket.Classes())
	if err != nil {
		return nil, err
	}

	priced := make(map[domain.CabinClass]domain.FarePrice, len(fares))
	for _, fare := range fares {
		priced[fare.Class] = fare
	}

	breakdown := make([]domain.ClassAvailability, 0, len(bucket.Classes()))
	for _, class := range bucket.Classes() {
		ca := domain.ClassAvailability{Class: class}
		for _, seat := range seats {
			if seat.Class != class || seat.Blocked {
				continue
			}
			if _, taken := occupied[seat.ID]; !taken {
				ca.Available++
			}
		}
		if fare, ok := priced[class]; ok {
			ca.Amount = fare.Amount
			ca.Currency = fare.Currency
			ca.Priced = true
		}
		breakdown = append(breakdown, ca)
	}
	return breakdown, nil
}

// SeatMap returns the flight's physical layout annotated with durable
// occupancy and active holds.
func (s *FlightService) SeatMap(ctx context.Context, flightID int64) ([]domain.SeatStatus, error) {
	flight, err := s.repo.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	seats, err := s.repo.Seats(ctx, flight.AirplaneType)
	if err != nil {
		return nil, err
	}
	occupied, err := s.repo.OccupiedSeats(ctx, flightID)
	if err != nil {
		return nil, err
	}

	held := map[int64]bool{}
	if s.cache != nil {
		if h, err := s.cache.HeldSeats(ctx, flightID); err == nil {
			held = h
		} else {
			log.Printf("held seats for flight %d: %v", flightID, err)
		}
	}

	statuses := make([]domain.SeatStatus, 0, len(seats))
	for _, seat := range seats {
		_, taken := occupied[seat.ID]
		statuses = append(statuses, domain.SeatStatus{
			Seat:     seat,
			Occupied: taken,
			Held:     held[seat.ID],
		})
	}
	return statuses, nil
}

func searchKey(q domain.SearchQuery) string {
	date := ""
	if !q.Date.IsZero() {
		date = q.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("%s:%s:%s:%s", q.Origin, q.Destination, date, q.Bucket)
}

var _ FlightUseCase = (*FlightService)(nil)
