package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueValidate_RoundTrip(t *testing.T) {
	c := NewCodec("test-secret")

	tok, err := c.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if parts := strings.Split(tok, "."); len(parts) != 3 {
		t.Fatalf("Expected 3 token segments, got %d", len(parts))
	}

	claims, err := c.Validate(tok)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("Expected user-123, got %s", claims.UserID)
	}

	wantExp := time.Now().Add(Lifetime)
	gotExp := claims.ExpiresAt.Time
	if gotExp.Before(wantExp.Add(-time.Minute)) || gotExp.After(wantExp.Add(time.Minute)) {
		t.Errorf("Expected expiry ~%v, got %v", wantExp, gotExp)
	}
}

func TestValidate_WrongSegmentCount(t *testing.T) {
	c := NewCodec("test-secret")

	for _, tok := range []string{"", "abc", "abc.def", "a.b.c.d"} {
		if _, err := c.Validate(tok); err == nil {
			t.Errorf("Expected error for token %q", tok)
		}
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	issuer := NewCodec("secret-a")
	verifier := NewCodec("secret-b")

	tok, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := verifier.Validate(tok); err == nil {
		t.Error("Expected signature mismatch error")
	}
}

func TestValidate_Expired(t *testing.T) {
	secret := "test-secret"
	claims := Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := NewCodec(secret).Validate(tok); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestValidate_MissingExpiry(t *testing.T) {
	secret := "test-secret"
	claims := Claims{UserID: "user-123"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := NewCodec(secret).Validate(tok); err == nil {
		t.Error("Expected token without exp to be rejected")
	}
}

func TestValidate_MissingUserID(t *testing.T) {
	secret := "test-secret"
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}

	if _, err := NewCodec(secret).Validate(tok); err == nil {
		t.Error("Expected token without user_id to be rejected")
	}
}
