package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotusair/booking/internal/domain"
)

type BookingRepository interface {
	CreateConfirmed(ctx context.Context, booking *domain.Booking, tickets []domain.Ticket, payment *domain.Payment) error
	GetByReference(ctx context.Context, reference string) (*domain.Booking, error)
	GetByDraftID(ctx context.Context, draftID string) (*domain.Booking, error)
	ListForMember(ctx context.Context, memberID int64) ([]domain.Booking, error)
	Tickets(ctx context.Context, bookingID int64) ([]domain.Ticket, error)
	Cancel(ctx context.Context, reference string) (*domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = "id, reference, draft_id, member_id, total_price, currency, status, contact_email, contact_phone, created_at, updated_at"

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Reference, &b.DraftID, &b.MemberID, &b.TotalPrice, &b.Currency, &b.Status, &b.Contact.Email, &b.Contact.Phone, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateConfirmed writes the booking, its seat occupancy rows, its
// tickets and its payment in one transaction. A unique violation on
// (flight_id, seat_id) means another booking won the seat; the caller
// gets a conflict, nothing is written.
func (r *PGBookingRepository) CreateConfirmed(ctx context.Context, booking *domain.Booking, tickets []domain.Ticket, payment *domain.Payment) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	booking.Status = domain.BookingStatusConfirmed
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (reference, draft_id, member_id, total_price, currency, status, contact_email, contact_phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		booking.Reference, booking.DraftID, booking.MemberID, booking.TotalPrice, booking.Currency, booking.Status, booking.Contact.Email, booking.Contact.Phone).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return err
	}

	for i := range tickets {
		t := &tickets[i]
		t.BookingID = booking.ID
		if _, err := tx.Exec(ctx, `INSERT INTO flight_seat_occupancy (flight_id, seat_id, booking_id) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, t.FlightID, t.SeatID, booking.ID); err != nil {
			return err
		}
		// The insert above is idempotent per ticket loop; verify the
		// occupancy row is ours, otherwise another booking holds it.
		var owner int64
		if err := tx.QueryRow(ctx, `SELECT booking_id FROM flight_seat_occupancy WHERE flight_id=$1 AND seat_id=$2`, t.FlightID, t.SeatID).Scan(&owner); err != nil {
			return err
		}
		if owner != booking.ID {
			return domain.NewError(domain.KindConflict, "seat %s was just taken on this flight", t.SeatNumber)
		}

		if err := tx.QueryRow(ctx, `INSERT INTO tickets (booking_id, flight_id, seat_id, seat_number, class_id, passenger_name, document_number, leg)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`,
			booking.ID, t.FlightID, t.SeatID, t.SeatNumber, int(t.Class), t.PassengerName, t.DocumentNumber, string(t.Leg)).
			Scan(&t.ID, &t.CreatedAt); err != nil {
			return err
		}
	}

	payment.BookingID = booking.ID
	payment.Status = domain.PaymentStatusPaid
	if err := tx.QueryRow(ctx, `INSERT INTO payments (booking_id, method, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		payment.BookingID, payment.Method, payment.Amount, payment.Currency, payment.Status).
		Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.WrapError(domain.KindConflict, err, "a selected seat was just taken")
		}
		return err
	}
	return nil
}

func (r *PGBookingRepository) GetByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE reference=$1`, reference)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "booking %s not found", reference)
	}
	return b, err
}

func (r *PGBookingRepository) GetByDraftID(ctx context.Context, draftID string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE draft_id=$1`, draftID)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (r *PGBookingRepository) ListForMember(ctx context.Context, memberID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE member_id=$1 ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Tickets(ctx context.Context, bookingID int64) ([]domain.Ticket, error) {
	rows, err := r.db.Query(ctx, `SELECT id, booking_id, flight_id, seat_id, seat_number, class_id, passenger_name, document_number, leg, created_at FROM tickets WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)
	for rows.Next() {
		var t domain.Ticket
		var classID int
		var leg string
		if err := rows.Scan(&t.ID, &t.BookingID, &t.FlightID, &t.SeatID, &t.SeatNumber, &classID, &t.PassengerName, &t.DocumentNumber, &leg, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Class = domain.CabinClass(classID)
		t.Leg = domain.Leg(leg)
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// Cancel flips the booking to Cancelled, releases its seat occupancy
// rows and marks the payment refunded, all in one transaction.
func (r *PGBookingRepository) Cancel(ctx context.Context, reference string) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE reference=$2 RETURNING `+bookingColumns, domain.BookingStatusCancelled, reference)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "booking %s not found", reference)
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM flight_seat_occupancy WHERE booking_id=$1`, b.ID); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE payments SET status=$1 WHERE booking_id=$2`, domain.PaymentStatusRefunded, b.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
