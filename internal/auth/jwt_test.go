package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/gatherdesk/internal/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := auth.NewManager("test-secret", time.Minute)

	token, err := m.GenerateAccessToken("u1", "alice@example.com", true)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID != "u1" || claims.Email != "alice@example.com" || !claims.IsAdmin {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := auth.NewManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken("u1", "alice@example.com", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := m.VerifyAccessToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestWrongSecretRejected(t *testing.T) {
	token, err := auth.NewManager("secret-a", time.Minute).GenerateAccessToken("u1", "a@example.com", false)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := auth.NewManager("secret-b", time.Minute).VerifyAccessToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}
