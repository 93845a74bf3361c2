package auth

import (
	"strings"
	"testing"
	"time"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	maker := NewJWTMaker(strings.Repeat("k", 32))

	token, claims, err := maker.GenerateToken("user-1", "a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "a@b.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	parsed, err := maker.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken failed: %v", err)
	}
	if parsed.UserID != "user-1" || parsed.Email != "a@b.com" {
		t.Fatalf("unexpected parsed claims: %+v", parsed)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	maker := NewJWTMaker(strings.Repeat("k", 32))

	token, _, err := maker.GenerateToken("user-1", "a@b.com", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := maker.VerifyToken(token); err == nil {
		t.Fatal("expected expired token to fail verification")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	maker := NewJWTMaker(strings.Repeat("k", 32))
	other := NewJWTMaker(strings.Repeat("x", 32))

	token, _, err := maker.GenerateToken("user-1", "a@b.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := other.VerifyToken(token); err == nil {
		t.Fatal("expected token signed with another secret to fail")
	}
}
