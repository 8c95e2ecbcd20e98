package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/pkg/jwt"
)

type mockBlacklist struct {
	revoked map[string]time.Duration
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = make(map[string]time.Duration)
	}
	m.revoked[jti] = ttl
	return nil
}

// ── helpers ──

func setupTestAuthService() (AuthService, *fixture, *jwt.Manager, *mockBlacklist) {
	f := newFixture(time.Now())
	jwtMgr := jwt.NewManager(&f.cfg.Auth)
	bl := &mockBlacklist{}
	return NewAuthService(f.cfg, f.repo, jwtMgr, bl, f.logger), f, jwtMgr, bl
}

func createTestUser(f *fixture, username, password, role string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	est := "est-1"
	user := &model.User{
		UserID:          "user-" + username,
		Username:        username,
		Email:           username + "@univ.example",
		PasswordHash:    string(hash),
		Role:            role,
		EstablishmentID: &est,
		Establishment:   &model.Establishment{EstablishmentID: est, Name: "Campus Nord"},
	}
	f.users.users[user.UserID] = user
	return user
}

// ── login ──

func TestLogin_Success(t *testing.T) {
	svc, f, jwtMgr, _ := setupTestAuthService()
	createTestUser(f, "12345", "Ct012345", model.RoleStudent)

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "12345", Password: "Ct012345"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}
	if resp.ExpiresIn != 900 {
		t.Errorf("ExpiresIn = %d, want 900", resp.ExpiresIn)
	}
	if resp.User.Establishment == nil || resp.User.Establishment.Name != "Campus Nord" {
		t.Errorf("establishment not returned: %+v", resp.User.Establishment)
	}

	claims, err := jwtMgr.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if claims.Username != "12345" || claims.Role != model.RoleStudent || claims.EstablishmentID != "est-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.TokenType != "access" {
		t.Errorf("TokenType = %q, want access", claims.TokenType)
	}
}

func TestLogin_ByEmail(t *testing.T) {
	svc, f, _, _ := setupTestAuthService()
	createTestUser(f, "12345", "Ct012345", model.RoleStudent)

	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "12345@univ.example", Password: "Ct012345"}); err != nil {
		t.Fatalf("Login by email failed: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, f, _, _ := setupTestAuthService()
	createTestUser(f, "12345", "Ct012345", model.RoleStudent)

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "12345", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{Username: "nobody", Password: "whatever"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

// ── refresh ──

func TestRefreshToken(t *testing.T) {
	svc, f, _, _ := setupTestAuthService()
	createTestUser(f, "12345", "Ct012345", model.RoleStudent)
	ctx := context.Background()

	login, err := svc.Login(ctx, &dto.LoginRequest{Username: "12345", Password: "Ct012345"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	refreshed, err := svc.RefreshToken(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("expected a new access token")
	}

	// an access token cannot be used to refresh
	if _, err := svc.RefreshToken(ctx, login.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid for access token, got %v", err)
	}
}

func TestRefreshToken_DeletedUser(t *testing.T) {
	svc, f, _, _ := setupTestAuthService()
	u := createTestUser(f, "12345", "Ct012345", model.RoleStudent)
	ctx := context.Background()

	login, _ := svc.Login(ctx, &dto.LoginRequest{Username: "12345", Password: "Ct012345"})
	delete(f.users.users, u.UserID)

	if _, err := svc.RefreshToken(ctx, login.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

// ── logout / me / password ──

func TestLogout_Blacklists(t *testing.T) {
	svc, _, _, bl := setupTestAuthService()

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(10*time.Minute)); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	ttl, ok := bl.revoked["jti-1"]
	if !ok {
		t.Fatal("token was not blacklisted")
	}
	if ttl <= 9*time.Minute || ttl > 10*time.Minute {
		t.Errorf("ttl = %v, want about 10m", ttl)
	}
}

func TestLogout_WithoutBlacklist(t *testing.T) {
	f := newFixture(time.Now())
	svc := NewAuthService(f.cfg, f.repo, jwt.NewManager(&f.cfg.Auth), nil, f.logger)

	if err := svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Errorf("Logout without blacklist should succeed, got %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, f, _, _ := setupTestAuthService()
	createTestUser(f, "12345", "Ct012345", model.RoleStudent)

	me, err := svc.Me(context.Background(), "user-12345")
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if me.Username != "12345" {
		t.Errorf("Username = %q", me.Username)
	}
	if _, err := svc.Me(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, f, _, _ := setupTestAuthService()
	u := createTestUser(f, "12345", "Ct012345", model.RoleStudent)
	u.MustChangePassword = true
	ctx := context.Background()

	err := svc.ChangePassword(ctx, u.UserID, &dto.ChangePasswordRequest{OldPassword: "bad", NewPassword: "NewPass123"})
	if !errors.Is(err, ErrWrongOldPassword) {
		t.Errorf("expected ErrWrongOldPassword, got %v", err)
	}
	err = svc.ChangePassword(ctx, u.UserID, &dto.ChangePasswordRequest{OldPassword: "Ct012345", NewPassword: "Ct012345"})
	if !errors.Is(err, ErrSamePassword) {
		t.Errorf("expected ErrSamePassword, got %v", err)
	}

	if err := svc.ChangePassword(ctx, u.UserID, &dto.ChangePasswordRequest{OldPassword: "Ct012345", NewPassword: "NewPass123"}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}
	if u.MustChangePassword {
		t.Error("MustChangePassword should be cleared")
	}
	if _, err := svc.Login(ctx, &dto.LoginRequest{Username: "12345", Password: "NewPass123"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
}
