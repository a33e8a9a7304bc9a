package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenRoundTrip(t *testing.T) {
	manager := NewTokenManager([]byte("test-secret"), time.Hour)
	userID := uuid.New().String()
	tenantID := uuid.New().String()

	token, err := manager.Generate(userID, &tenantID, false)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if claims.UserID != userID {
		t.Fatalf("expected user %s, got %s", userID, claims.UserID)
	}
	if claims.TenantID == nil || *claims.TenantID != tenantID {
		t.Fatalf("expected tenant %s, got %v", tenantID, claims.TenantID)
	}
	if claims.Superuser {
		t.Fatalf("expected superuser false")
	}
}

func TestTokenNilTenantIsSuperuser(t *testing.T) {
	manager := NewTokenManager([]byte("test-secret"), time.Hour)

	token, err := manager.Generate(uuid.New().String(), nil, true)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	if claims.TenantID != nil {
		t.Fatalf("expected a nil tenant claim to survive the round trip, got %v", *claims.TenantID)
	}
	if !claims.Superuser {
		t.Fatalf("expected the superuser claim set")
	}
}

func TestTokenWrongKeyRejected(t *testing.T) {
	manager := NewTokenManager([]byte("test-secret"), time.Hour)
	other := NewTokenManager([]byte("other-secret"), time.Hour)

	token, err := manager.Generate(uuid.New().String(), nil, false)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := other.Validate(token); err == nil {
		t.Fatalf("expected validation with the wrong key to fail")
	}
}

func TestTokenExpiryRejected(t *testing.T) {
	manager := NewTokenManager([]byte("test-secret"), -time.Minute)

	token, err := manager.Generate(uuid.New().String(), nil, false)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}

	if _, err := manager.Validate(token); err == nil {
		t.Fatalf("expected an expired token rejected")
	}
}
