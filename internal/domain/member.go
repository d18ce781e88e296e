package domain

import "time"

type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierSilver   Tier = "SILVER"
	TierGold     Tier = "GOLD"
	TierPlatinum Tier = "PLATINUM"
)

// TierForMiles maps accrued miles to a loyalty tier.
func TierForMiles(miles int) Tier {
	switch {
	case miles >= 100000:
		return TierPlatinum
	case miles >= 50000:
		return TierGold
	case miles >= 25000:
		return TierSilver
	default:
		return TierStandard
	}
}

type Member struct {
	ID           int64
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        string
	Verified     bool
	Miles        int
	Tier         Tier
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is an explicit bearer-token record; the token travels in a
// cookie and is checked against this row on every request.
type Session struct {
	Token     string
	MemberID  int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
