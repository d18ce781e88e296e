package members

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotusair/booking/internal/domain"
	"github.com/lotusair/booking/internal/kafka"
	"github.com/lotusair/booking/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

type MemberUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.Member, error)
	Verify(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (*domain.Session, *domain.Member, error)
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*domain.Member, error)
	Profile(ctx context.Context, memberID int64) (*domain.Member, error)
	UpdateProfile(ctx context.Context, memberID int64, input ProfileInput) (*domain.Member, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ExpireSessions(ctx context.Context) (int64, error)
}

// TokenStore keeps one-shot verification and password-reset tokens
// with their own expiry.
type TokenStore interface {
	SetActionToken(ctx context.Context, kind, token string, memberID int64, ttl time.Duration) error
	GetActionToken(ctx context.Context, kind, token string) (int64, error)
	DeleteActionToken(ctx context.Context, kind, token string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

const (
	tokenKindVerify = "verify"
	tokenKindReset  = "reset"
)

type MemberService struct {
	repo               repository.MemberRepository
	tokens             TokenStore
	producer           Producer
	notificationsTopic string
	sessionTTL         time.Duration
	tokenTTL           time.Duration
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type ProfileInput struct {
	FirstName string
	LastName  string
	Phone     string
}

func NewMemberService(repo repository.MemberRepository, tokens TokenStore, producer Producer, notificationsTopic string, sessionTTL, tokenTTL time.Duration) *MemberService {
	return &MemberService{
		repo:               repo,
		tokens:             tokens,
		producer:           producer,
		notificationsTopic: notificationsTopic,
		sessionTTL:         sessionTTL,
		tokenTTL:           tokenTTL,
	}
}

func (s *MemberService) Register(ctx context.Context, input RegisterInput) (*domain.Member, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.NewError(domain.KindValidation, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, domain.NewError(domain.KindValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, domain.NewError(domain.KindValidation, "first and last name are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	member := &domain.Member{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
	}
	if err := s.repo.Create(ctx, member); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	if err := s.tokens.SetActionToken(ctx, tokenKindVerify, token, member.ID, s.tokenTTL); err != nil {
		return nil, err
	}
	s.notify(ctx, kafka.NotificationEvent{
		Type:  kafka.EventMemberRegistered,
		Email: member.Email,
		Name:  member.FirstName,
		Token: token,
	})
	return member, nil
}

func (s *MemberService) Verify(ctx context.Context, token string) error {
	memberID, err := s.tokens.GetActionToken(ctx, tokenKindVerify, token)
	if err != nil {
		return err
	}
	if err := s.repo.SetVerified(ctx, memberID); err != nil {
		return err
	}
	return s.tokens.DeleteActionToken(ctx, tokenKindVerify, token)
}

func (s *MemberService) Login(ctx context.Context, email, password string) (*domain.Session, *domain.Member, error) {
	member, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, nil, domain.NewError(domain.KindValidation, "invalid email or password")
		}
		return nil, nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)) != nil {
		return nil, nil, domain.NewError(domain.KindValidation, "invalid email or password")
	}

	session := &domain.Session{
		Token:     uuid.NewString(),
		MemberID:  member.ID,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, err
	}
	return session, member, nil
}

func (s *MemberService) Logout(ctx context.Context, token string) error {
	return s.repo.DeleteSession(ctx, token)
}

// Authenticate resolves a bearer token to its member, rejecting
// expired sessions even before the sweep removes them.
func (s *MemberService) Authenticate(ctx context.Context, token string) (*domain.Member, error) {
	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NewError(domain.KindValidation, "not signed in")
		}
		return nil, err
	}
	if session.Expired(time.Now()) {
		return nil, domain.NewError(domain.KindGone, "session has expired")
	}
	return s.repo.GetByID(ctx, session.MemberID)
}

func (s *MemberService) Profile(ctx context.Context, memberID int64) (*domain.Member, error) {
	return s.repo.GetByID(ctx, memberID)
}

func (s *MemberService) UpdateProfile(ctx context.Context, memberID int64, input ProfileInput) (*domain.Member, error) {
	member, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FirstName) != "" {
		member.FirstName = input.FirstName
	}
	if strings.TrimSpace(input.LastName) != "" {
		member.LastName = input.LastName
	}
	if input.Phone != "" {
		member.Phone = input.Phone
	}
	if err := s.repo.UpdateProfile(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// RequestPasswordReset never reveals whether the email exists; an
// unknown address is logged and swallowed.
func (s *MemberService) RequestPasswordReset(ctx context.Context, email string) error {
	member, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			log.Printf("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token := uuid.NewString()
	if err := s.tokens.SetActionToken(ctx, tokenKindReset, token, member.ID, s.tokenTTL); err != nil {
		return err
	}
	s.notify(ctx, kafka.NotificationEvent{
		Type:  kafka.EventPasswordReset,
		Email: member.Email,
		Name:  member.FirstName,
		Token: token,
	})
	return nil
}

func (s *MemberService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return domain.NewError(domain.KindValidation, "password must be at least 8 characters")
	}
	memberID, err := s.tokens.GetActionToken(ctx, tokenKindReset, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, memberID, string(hash)); err != nil {
		return err
	}
	return s.tokens.DeleteActionToken(ctx, tokenKindReset, token)
}

func (s *MemberService) ExpireSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, time.Now())
}

func (s *MemberService) notify(ctx context.Context, event kafka.NotificationEvent) {
	if s.producer == nil || s.notificationsTopic == "" {
		return
	}
	if err := s.producer.Publish(ctx, s.notificationsTopic, event.Email, event); err != nil {
		log.Printf("publish %s for %s: %v", event.Type, event.Email, err)
	}
}

var _ MemberUseCase = (*MemberService)(nil)
