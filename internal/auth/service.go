// Package auth issues and verifies the access tokens handed out when a
// flow reaches success.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/facepass/facepass/internal/clock"
)

// DefaultTTL is the access token lifetime when none is configured.
const DefaultTTL = 15 * time.Minute

// ErrInvalidToken covers malformed, forged and expired tokens.
var ErrInvalidToken = errors.New("invalid access token")

// Token is a signed access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"`
}

// Claims are the verified contents of a token.
type Claims struct {
	Subject  string
	ID       string
	IssuedAt time.Time
	Expiry   time.Time
}

type Service struct {
	secret []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
}

// NewService signs with secret. A nil clock means the real clock.
func NewService(secret, issuer string, ttl time.Duration, c clock.Clock) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = clock.Real()
	}
	return &Service{secret: []byte(secret), ttl: ttl, issuer: issuer, clock: c}
}

// Issue returns a token whose subject is the flow id.
func (s *Service) Issue(subject string) (Token, error) {
	if subject == "" {
		return Token{}, errors.New("token subject is empty")
	}
	now := s.clock.Now()
	exp := now.Add(s.ttl)
	claims := map[string]any{
		"sub": subject,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": exp.Unix(),
	}
	if s.issuer != "" {
		claims["iss"] = s.issuer
	}
	signed, err := SignHS256(claims, s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}
	return Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   time.Unix(exp.Unix(), 0).UTC(),
		ExpiresIn:   int64(s.ttl.Seconds()),
	}, nil
}

// Verify checks signature, issuer and expiry.
func (s *Service) Verify(token string) (Claims, error) {
	raw, err := ParseAndVerifyHS256(token, s.secret)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, _ := raw["sub"].(string)
	if sub == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if s.issuer != "" {
		if iss, _ := raw["iss"].(string); iss != s.issuer {
			return Claims{}, fmt.Errorf("%w: unexpected issuer", ErrInvalidToken)
		}
	}
	expFloat, ok := raw["exp"].(float64)
	if !ok {
		return Claims{}, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	exp := time.Unix(int64(expFloat), 0)
	if !s.clock.Now().Before(exp) {
		return Claims{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	iat, _ := raw["iat"].(float64)
	jti, _ := raw["jti"].(string)
	return Claims{
		Subject:  sub,
		ID:       jti,
		IssuedAt: time.Unix(int64(iat), 0).UTC(),
		Expiry:   exp.UTC(),
	}, nil
}
