package service

import (
	"context"
	"errors"
	"testing"

	"github.com/mercato-next/internal/config"
	"github.com/mercato-next/internal/repository"

	"github.com/golang-jwt/jwt/v5"
)

func setupAuthServiceTest(t *testing.T) *AuthService {
	t.Helper()
	f := setupServiceTest(t)
	return NewAuthService(config.JWTConfig{SecretKey: "test-secret", ExpireHours: 1}, repository.NewAdminRepository(f.db), nil)
}

func TestAuthServiceLoginAndAuthenticate(t *testing.T) {
	svc := setupAuthServiceTest(t)
	ctx := context.Background()
	if _, err := svc.CreateAdmin(ctx, "root", "short", true); !errors.Is(err, ErrAdminInvalid) {
		t.Fatalf("expected ErrAdminInvalid, got %v", err)
	}
	admin, err := svc.CreateAdmin(ctx, " root ", "s3cret-pass", true)
	if err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	if _, err := svc.CreateAdmin(ctx, "root", "s3cret-pass", false); !errors.Is(err, ErrAdminExists) {
		t.Fatalf("expected ErrAdminExists, got %v", err)
	}

	if _, _, _, err := svc.Login(ctx, "root", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login(ctx, "ghost", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown admin, got %v", err)
	}
	logged, token, _, err := svc.Login(ctx, "root", "s3cret-pass")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != admin.ID || logged.LastLoginAt == nil || token == "" {
		t.Fatalf("unexpected login result: %+v", logged)
	}

	state, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if state.AdminID != admin.ID || !state.IsSuper || state.Username != "root" {
		t.Fatalf("unexpected state: %+v", state)
	}

	if err := svc.RevokeTokens(ctx, admin.ID); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := svc.Authenticate(ctx, token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked, got %v", err)
	}
}

func TestAuthServiceRejectsForeignTokens(t *testing.T) {
	svc := setupAuthServiceTest(t)
	if _, err := svc.ParseJWT("not-a-token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}

	other := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{AdminID: 1})
	signed, err := other.SignedString([]byte("another-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := svc.ParseJWT(signed); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for wrong secret, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{AdminID: 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none failed: %v", err)
	}
	if _, err := svc.ParseJWT(unsigned); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for alg none, got %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), mustToken(t, svc, 99)); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for unknown admin, got %v", err)
	}
}

func mustToken(t *testing.T, svc *AuthService, adminID uint) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{AdminID: adminID})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	return signed
}
