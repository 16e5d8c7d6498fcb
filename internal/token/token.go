// Package token issues and verifies the signed action tokens embedded in
// admin approval and rejection links.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Actions a token can authorize.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// ErrInvalidToken covers every verification failure: bad signature,
// expiry, malformed payload, or action mismatch. Callers get no detail
// beyond this so link-guessing reveals nothing.
var ErrInvalidToken = errors.New("invalid or expired token")

const minSecretLength = 32

type claims struct {
	BookingID int64  `json:"bid"`
	Action    string `json:"act"`
	jwt.RegisteredClaims
}

// Service signs and verifies action tokens with a single HMAC secret.
type Service struct {
	secret []byte
	maxAge time.Duration
}

// New builds a Service. The secret must carry real entropy; anything
// shorter than 32 bytes is refused outright.
func New(secret string, maxAge time.Duration) (*Service, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d characters", minSecretLength)
	}
	if maxAge <= 0 {
		maxAge = 48 * time.Hour
	}
	return &Service{secret: []byte(secret), maxAge: maxAge}, nil
}

// Generate signs a token authorizing action on the given booking.
func (s *Service) Generate(bookingID int64, action string) (string, error) {
	if action != ActionApprove && action != ActionReject {
		return "", fmt.Errorf("unknown token action %q", action)
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		BookingID: bookingID,
		Action:    action,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
		},
	})
	return t.SignedString(s.secret)
}

// Verify checks the token and returns the booking it authorizes action
// on. The token's embedded action must match the requested one.
func (s *Service) Verify(tokenString, action string) (int64, error) {
	var c claims
	t, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !t.Valid {
		return 0, ErrInvalidToken
	}
	if c.Action != action || c.BookingID <= 0 {
		return 0, ErrInvalidToken
	}
	return c.BookingID, nil
}
