package services

import "testing"

func TestTokenRoundTrip(t *testing.T) {
	svc := NewTokenService("test-secret")

	token, err := svc.GenerateToken(42, "alice", "faculty")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Role != "faculty" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Subject != "alice" {
		t.Errorf("subject = %q, want username", claims.Subject)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewTokenService("secret-a").GenerateToken(1, "bob", "student")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTokenService("secret-b").ValidateToken(token); err == nil {
		t.Fatal("expected validation failure for wrong secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := NewTokenService("s").ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected validation failure for malformed token")
	}
}
