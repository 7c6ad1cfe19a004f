package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/riptide-app/riptide/internal/testutil"
)

func newTestAuth(t *testing.T, secret string) *Service {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)

	svc, err := NewService(tdb.Conn, secret)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestPasswordLifecycle(t *testing.T) {
	svc := newTestAuth(t, "test-secret")

	if svc.IsPasswordSet() {
		t.Fatal("fresh database must have no password")
	}
	if err := svc.ValidatePassword("anything"); !errors.Is(err, ErrNoPasswordSet) {
		t.Fatalf("ValidatePassword before setup = %v, want ErrNoPasswordSet", err)
	}

	if err := svc.SetPassword(""); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("SetPassword(\"\") = %v, want ErrPasswordRequired", err)
	}

	if err := svc.SetPassword("hunter2"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if !svc.IsPasswordSet() {
		t.Error("IsPasswordSet = false after setup")
	}
	if err := svc.ValidatePassword("hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := svc.ValidatePassword("wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password = %v, want ErrInvalidCredentials", err)
	}

	// Changing the password invalidates the old one.
	if err := svc.SetPassword("correct horse"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if err := svc.ValidatePassword("hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("old password still accepted: %v", err)
	}
	if err := svc.ValidatePassword("correct horse"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestAuth(t, "test-secret")

	token, err := svc.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Issuer != "riptide" {
		t.Errorf("issuer = %q", claims.Issuer)
	}

	if _, err := svc.ValidateToken("not.a.token"); err == nil {
		t.Error("garbage token must be rejected")
	}
}

func TestTokenIssuerEnforced(t *testing.T) {
	svc := newTestAuth(t, "test-secret")

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := foreign.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.ValidateToken(signed); err == nil {
		t.Error("token with a foreign issuer must be rejected")
	}
}

func TestTokenRejectedAcrossSecrets(t *testing.T) {
	a := newTestAuth(t, "secret-a")
	b := newTestAuth(t, "secret-b")

	token, err := a.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := b.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret must be rejected")
	}
}

func TestGeneratedSecretWhenUnset(t *testing.T) {
	svc := newTestAuth(t, "")

	token, err := svc.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken with generated secret: %v", err)
	}
	if _, err := svc.ValidateToken(token); err != nil {
		t.Errorf("self-issued token rejected: %v", err)
	}
}
