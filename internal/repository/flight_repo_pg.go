package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotusair/booking/internal/domain"
)

type FlightRepository interface {
	Search(ctx context.Context, query domain.SearchQuery) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Fares(ctx context.Context, flightID int64, classes []domain.CabinClass) ([]domain.FarePrice, error)
	Seats(ctx context.Context, airplaneType string) ([]domain.Seat, error)
	SeatByNumber(ctx context.Context, airplaneType, number string) (*domain.Seat, error)
	OccupiedSeats(ctx context.Context, flightID int64) (map[int64]int64, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

const flightColumns = "id, number, origin, destination, departure_time, arrival_time, status, distance_miles, airplane_type, created_at, updated_at"

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.Number, &f.Origin, &f.Destination, &f.DepartureTime, &f.ArrivalTime, &f.Status, &f.DistanceMiles, &f.AirplaneType, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) Search(ctx context.Context, query domain.SearchQuery) ([]domain.Flight, error) {
	q := r.sb.
		Select(flightColumns).
		From("flights").
		Where(sq.NotEq{"status": "CANCELLED"}).
		OrderBy("departure_time")

	if query.Origin != "" {
		q = q.Where(sq.Eq{"origin": query.Origin})
	}
	if query.Destination != "" {
		q = q.Where(sq.Eq{"destination": query.Destination})
	}
	if !query.Date.IsZero() {
		q = q.Where(sq.Expr("departure_time::date = ?::date", query.Date))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build flight search sql: %w", err)
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	f, err := scanFlight(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "flight %d not found", id)
	}
	return f, err
}

func (r *PGFlightRepository) Fares(ctx context.Context, flightID int64, classes []domain.CabinClass) ([]domain.FarePrice, error) {
	ids := make([]int, 0, len(classes))
	for _, c := range classes {
		ids = append(ids, int(c))
	}

	rows, err := r.db.Query(ctx, `SELECT flight_id, class_id, amount, currency, seat_count FROM flight_prices WHERE flight_id=$1 AND class_id = ANY($2) ORDER BY class_id`, flightID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fares := make([]domain.FarePrice, 0, len(classes))
	for rows.Next() {
		var p domain.FarePrice
		var classID int
		if err := rows.Scan(&p.FlightID, &classID, &p.Amount, &p.Currency, &p.SeatCount); err != nil {
			return nil, err
		}
		p.Class = domain.CabinClass(classID)
		fares = append(fares, p)
	}
	return fares, rows.Err()
}

func (r *PGFlightRepository) Seats(ctx context.Context, airplaneType string) ([]domain.Seat, error) {
	rows, err := r.db.Query(ctx, `SELECT id, airplane_type, seat_number, row_num, col_letter, class_id, blocked FROM seats WHERE airplane_type=$1 ORDER BY row_num, col_letter`, airplaneType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		seats = append(seats, *s)
	}
	return seats, rows.Err()
}

func (r *PGFlightRepository) SeatByNumber(ctx context.Context, airplaneType, number string) (*domain.Seat, error) {
	row := r.db.QueryRow(ctx, `SELECT id, airplane_type, seat_number, row_num, col_letter, class_id, blocked FROM seats WHERE airplane_type=$1 AND seat_number=$2`, airplaneType, number)
	s, err := scanSeat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "seat %s not found", number)
	}
	return s, err
}

func scanSeat(row pgx.Row) (*domain.Seat, error) {
	var s domain.Seat
	var classID int
	if err := row.Scan(&s.ID, &s.AirplaneType, &s.Number, &s.Row, &s.Column, &classID, &s.Blocked); err != nil {
		return nil, err
	}
	s.Class = domain.CabinClass(classID)
	return &s, nil
}

// OccupiedSeats returns seat id -> booking id for every seat taken on
// the flight's manifest.
func (r *PGFlightRepository) OccupiedSeats(ctx context.Context, flightID int64) (map[int64]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT seat_id, booking_id FROM flight_seat_occupancy WHERE flight_id=$1`, flightID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	occupied := make(map[int64]int64)
	for rows.Next() {
		var seatID, bookingID int64
		if err := rows.Scan(&seatID, &bookingID); err != nil {
			return nil, err
		}
		occupied[seatID] = bookingID
	}
	return occupied, rows.Err()
}

var _ FlightRepository = (*PGFlightRepository)(nil)
