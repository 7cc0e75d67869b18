package token

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	tok, err := m.Issue("user123", "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	userID, email, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("unexpected error verifying token: %v", err)
	}
	if userID != "user123" {
		t.Errorf("expected user id 'user123', got %q", userID)
	}
	if email != "user@example.com" {
		t.Errorf("expected email 'user@example.com', got %q", email)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	tok, err := m.Issue("user123", "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	if _, _, err := m.Verify(tok); err == nil {
		t.Error("expected expired token to fail verification")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Minute)
	verifier := NewManager("secret-b", time.Minute)

	tok, err := issuer.Issue("user123", "user@example.com")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	if _, _, err := verifier.Verify(tok); err == nil {
		t.Error("expected token signed with a different secret to fail verification")
	}
}

func TestVerifyGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Minute)

	if _, _, err := m.Verify("not-a-token"); err == nil {
		t.Error("expected malformed token to fail verification")
	}
}
