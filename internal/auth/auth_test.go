package auth

import (
	"errors"
	"testing"
	"time"

	"torcida-quiz-service/internal/domain"
)

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3nha-forte")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3nha-forte" {
		t.Fatalf("hash must not equal plaintext")
	}
	ok, err := CheckPassword(hash, "s3nha-forte")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}
	ok, err = CheckPassword(hash, "wrong")
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}
}

func TestTokenIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("0123456789abcdef0123", time.Hour)
	token, err := issuer.Issue(domain.User{ID: "u1", Email: "ana@example.com", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := issuer.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "ana@example.com" || claims.Role != domain.RoleUser {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestTokenRejectsForgedAndExpired(t *testing.T) {
	issuer := NewTokenIssuer("0123456789abcdef0123", time.Hour)
	other := NewTokenIssuer("another-secret-value-1", time.Hour)

	forged, _ := other.Issue(domain.User{ID: "u1"})
	if _, err := issuer.Parse(forged); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign signature, got %v", err)
	}

	token, _ := issuer.Issue(domain.User{ID: "u1"})
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := issuer.Parse(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}

	if _, err := issuer.Parse("not-a-token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}
