package auth

import (
	"net/http/httptest"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret")
	token, err := m.GenerateToken(42)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d, want 42", claims.UserID)
	}
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a").GenerateToken(1)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewManager("secret-b").ParseToken(token); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestPasswordHashing(t *testing.T) {
	m := NewManager("s")
	hash, err := m.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := m.ComparePassword(hash, "hunter22"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := m.ComparePassword(hash, "wrong"); err == nil {
		t.Fatal("expected mismatch")
	}
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/me", nil)
	if _, ok := TokenFromRequest(r); ok {
		t.Fatal("expected no token")
	}

	r.Header.Set("Authorization", "Bearer abc123")
	token, ok := TokenFromRequest(r)
	if !ok || token != "abc123" {
		t.Fatalf("header token = %q ok=%v", token, ok)
	}

	// Websocket clients pass the token as a query parameter instead.
	r2 := httptest.NewRequest("GET", "/ws?token=xyz", nil)
	token, ok = TokenFromRequest(r2)
	if !ok || token != "xyz" {
		t.Fatalf("query token = %q ok=%v", token, ok)
	}
}
