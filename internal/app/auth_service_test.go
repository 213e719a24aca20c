package app

import (
	"context"
	"errors"
	"testing"

	"torcida-quiz-service/internal/domain"
)

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	reg, err := f.auth.Register(ctx, RegisterInput{Email: " Ana@Example.com ", Password: "segredo123", Name: "Ana"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" || reg.User.Email != "ana@example.com" || reg.User.Role != domain.RoleUser {
		t.Fatalf("unexpected register result %+v", reg)
	}
	if reg.User.PasswordHash == "segredo123" {
		t.Fatalf("password stored in plaintext")
	}

	login, err := f.auth.Login(ctx, "ana@example.com", "segredo123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Fatalf("expected same user, got %s vs %s", login.User.ID, reg.User.ID)
	}
}

func TestRegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.organizer(t, "ana@example.com")

	if _, err := f.auth.Register(ctx, RegisterInput{Email: "ana@example.com", Password: "segredo123", Name: "Ana"}); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := f.auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "segredo123", Name: "Ana"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for email, got %v", err)
	}
	if _, err := f.auth.Register(ctx, RegisterInput{Email: "b@example.com", Password: "123", Name: "B"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for password, got %v", err)
	}
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.organizer(t, "ana@example.com")

	if _, err := f.auth.Login(ctx, "ana@example.com", "wrong-password"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := f.auth.Login(ctx, "ghost@example.com", "segredo123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}
