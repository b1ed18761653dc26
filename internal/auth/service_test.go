package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/facepass/facepass/internal/clock"
)

func TestIssueAndVerify(t *testing.T) {
	fc := clock.Fake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService("secret", "FacePass", time.Minute, fc)

	tok, err := svc.Issue("flow-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tok.TokenType != "Bearer" || tok.ExpiresIn != 60 {
		t.Fatalf("unexpected token metadata: %+v", tok)
	}

	claims, err := svc.Verify(tok.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != "flow-1" {
		t.Fatalf("expected subject flow-1 got %q", claims.Subject)
	}
	if claims.ID == "" {
		t.Fatalf("expected token id")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	fc := clock.Fake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	svc := NewService("secret", "", time.Minute, fc)

	tok, err := svc.Issue("flow-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	fc.Advance(time.Minute)
	if _, err := svc.Verify(tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	issuer := NewService("one", "", time.Minute, nil)
	verifier := NewService("two", "", time.Minute, nil)

	tok, err := issuer.Issue("flow-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Verify(tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestVerifyRejectsTamperedClaims(t *testing.T) {
	svc := NewService("secret", "", time.Minute, nil)
	tok, err := svc.Issue("flow-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	forged, err := SignHS256(map[string]any{"sub": "flow-2", "exp": time.Now().Add(time.Hour).Unix()}, []byte("other"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	parts := strings.Split(tok.AccessToken, ".")
	forgedParts := strings.Split(forged, ".")
	mixed := parts[0] + "." + forgedParts[1] + "." + parts[2]

	if _, err := svc.Verify(mixed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestVerifyRejectsUnexpectedIssuer(t *testing.T) {
	a := NewService("secret", "a", time.Minute, nil)
	b := NewService("secret", "b", time.Minute, nil)

	tok, err := a.Issue("flow-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := b.Verify(tok.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken got %v", err)
	}
}

func TestIssueRequiresSubject(t *testing.T) {
	svc := NewService("secret", "", time.Minute, nil)
	if _, err := svc.Issue(""); err == nil {
		t.Fatalf("expected error for empty subject")
	}
}
