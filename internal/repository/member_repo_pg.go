package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotusair/booking/internal/domain"
)

type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByEmail(ctx context.Context, email string) (*domain.Member, error)
	GetByID(ctx context.Context, id int64) (*domain.Member, error)
	UpdateProfile(ctx context.Context, member *domain.Member) error
	SetVerified(ctx context.Context, id int64) error
	SetPassword(ctx context.Context, id int64, hash string) error
	AccrueMiles(ctx context.Context, id int64, miles int) (*domain.Member, error)
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, deadline time.Time) (int64, error)
}

type PGMemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) MemberRepository {
	return &PGMemberRepository{db: db}
}

const memberColumns = "id, email, password_hash, first_name, last_name, phone, verified, miles, tier, created_at, updated_at"

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	if err := row.Scan(&m.ID, &m.Email, &m.PasswordHash, &m.FirstName, &m.LastName, &m.Phone, &m.Verified, &m.Miles, &m.Tier, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PGMemberRepository) Create(ctx context.Context, member *domain.Member) error {
	member.Tier = domain.TierStandard
	err := r.db.QueryRow(ctx, `INSERT INTO members (email, password_hash, first_name, last_name, phone, verified, miles, tier)
		VALUES ($1, $2, $3, $4, $5, false, 0, $6)
		RETURNING id, created_at, updated_at`,
		member.Email, member.PasswordHash, member.FirstName, member.LastName, member.Phone, member.Tier).
		Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.NewError(domain.KindConflict, "an account with this email already exists")
	}
	return err
}

func (r *PGMemberRepository) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email=$1`, email)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "member not found")
	}
	return m, err
}

func (r *PGMemberRepository) GetByID(ctx context.Context, id int64) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id=$1`, id)
	m, err := scanMember(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NewError(domain.KindNotFound, "member not found")
	}
	return m, err
}

func (r *PGMemberRepository) UpdateProfile(ctx context.Context, member *domain.Member) error {
	_, err := r.db.Exec(ctx, `UPDATE members SET first_name=$1, last_name=$2, phone=$3, updated_at=now() WHERE id=$4`,
		member.FirstName, member.LastName, member.Phone, member.ID)
	return err
}

func (r *PGMemberRepository) SetVerified(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `UPDATE members SET verified=true, updated_at=now() WHERE id=$1`, id)
	return err
}

func (r *PGMemberRepository) SetPassword(ctx context.Context, id int64, hash string) error {
	_, err := r.db.Exec(ctx, `UPDATE members SET password_hash=$1, updated_at=now() WHERE id=$2`, hash, id)
	return err
}

// AccrueMiles adds flight miles and recomputes the tier in one
// statement so concurrent accruals never lose an update.
func (r *PGMemberRepository) AccrueMiles(ctx context.Context, id int64, miles int) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `UPDATE members SET miles = miles + $1, updated_at=now() WHERE id=$2 RETURNING `+memberColumns, miles, id)
	m, err := scanMember(row)
	if err != nil {
		return nil, err
	}
	if tier := domain.TierForMiles(m.Miles); tier != m.Tier {
		if _, err := r.db.Exec(ctx, `UPDATE members SET tier=$1 WHERE id=$2`, tier, id); err != nil {
			return nil, err
		}
		m.Tier = tier
	}
	return m, nil
}

func (r *PGMemberRepository) CreateSession(ctx context.Context, session *domain.Session) error {
	return r.db.QueryRow(ctx, `INSERT INTO sessions (token, member_id, expires_at) VALUES ($1, $2, $3) RETURNING created_at`,
		session.Token, session.MemberID, session.ExpiresAt).Scan(&session.CreatedAt)
}

func (r *PGMemberRepository) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	row := r.db.QueryRow(ctx, `SELECT token, member_id, expires_at, created_at FROM sessions WHERE token=$1`, token)
	var s domain.Session
	if err := row.Scan(&s.Token, &s.MemberID, &s.ExpiresAt, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.KindNotFound, "session not found")
		}
		return nil, err
	}
	return &s, nil
}

func (r *PGMemberRepository) DeleteSession(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token=$1`, token)
	return err
}

func (r *PGMemberRepository) DeleteExpiredSessions(ctx context.Context, deadline time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, deadline)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

var _ MemberRepository = (*PGMemberRepository)(nil)
