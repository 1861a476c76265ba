package auth

import (
	"testing"
	"time"
)

func testUser() *User {
	return &User{
		ID:       "user-1",
		Username: "admin",
		Role:     RoleAdmin,
	}
}

func TestIssueAndValidateAccessToken(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), 15*time.Minute, 24*time.Hour)

	token, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Username != "admin" {
		t.Errorf("Username = %q, want %q", claims.Username, "admin")
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want %q", claims.Role, "admin")
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	issuer := NewTokenService([]byte("secret-a"), 15*time.Minute, 24*time.Hour)
	validator := NewTokenService([]byte("secret-b"), 15*time.Minute, 24*time.Hour)

	token, err := issuer.IssueAccessToken(testUser())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := validator.ValidateAccessToken(token); err == nil {
		t.Fatal("expected validation failure with wrong secret")
	}
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), -1*time.Minute, 24*time.Hour)

	token, err := svc.IssueAccessToken(testUser())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.ValidateAccessToken(token); err == nil {
		t.Fatal("expected validation failure for expired token")
	}
}

func TestValidateAccessToken_Garbage(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), 15*time.Minute, 24*time.Hour)
	if _, err := svc.ValidateAccessToken("not-a-jwt"); err == nil {
		t.Fatal("expected validation failure for malformed token")
	}
}

func TestGenerateRefreshToken(t *testing.T) {
	svc := NewTokenService([]byte("test-secret"), 15*time.Minute, 24*time.Hour)

	raw1, hash1, expires, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatal(err)
	}
	raw2, hash2, _, err := svc.GenerateRefreshToken()
	if err != nil {
		t.Fatal(err)
	}

	if raw1 == raw2 {
		t.Error("two refresh tokens should not be equal")
	}
	if hash1 == hash2 {
		t.Error("two refresh token hashes should not be equal")
	}
	if hash1 != HashToken(raw1) {
		t.Error("hash should match HashToken(raw)")
	}
	if !expires.After(time.Now()) {
		t.Error("expiry should be in the future")
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("Secret123!", 4)
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "Secret123!") {
		t.Error("correct password should verify")
	}
	if CheckPassword(hash, "wrong-password") {
		t.Error("wrong password should not verify")
	}
}
