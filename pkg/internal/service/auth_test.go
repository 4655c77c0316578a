package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/yeisme/mediavault/pkg/configs"
	"github.com/yeisme/mediavault/pkg/internal/service"
	"github.com/yeisme/mediavault/pkg/internal/storage/kv"
)

func authConfig() configs.AuthConfig {
	return configs.AuthConfig{
		AdminUsername: "admin",
		AdminPassword: "s3cret",
		Secret:        "test-secret",
		CookieName:    "mv_session",
	}
}

// TestLoginVerify 测试登录签发与校验.
func TestLoginVerify(t *testing.T) {
	svc, err := service.NewAuthService(authConfig(), nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	token, err := svc.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	sess, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if !sess.Admin || sess.Subject != "admin" || sess.TokenID == "" {
		t.Errorf("session = %+v", sess)
	}

	if _, err := svc.Login("admin", "wrong"); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("wrong password: %v", err)
	}

	if _, err := svc.Login("root", "s3cret"); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("wrong user: %v", err)
	}

	if _, err := svc.Verify(context.Background(), token+"x"); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("tampered token accepted: %v", err)
	}
}

// TestLoginBcrypt 测试 bcrypt 哈希密码.
func TestLoginBcrypt(t *testing.T) {
	hash, err := service.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	cfg := authConfig()
	cfg.AdminPassword = ""
	cfg.AdminPasswordHash = hash

	svc, err := service.NewAuthService(cfg, nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	if _, err := svc.Login("admin", "hunter2"); err != nil {
		t.Errorf("Login with hash: %v", err)
	}

	if _, err := svc.Login("admin", "s3cret"); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("plain password should be ignored when hash set: %v", err)
	}

	cfg.AdminPasswordHash = "not-a-hash"
	if _, err := service.NewAuthService(cfg, nil); err == nil {
		t.Error("invalid hash accepted")
	}
}

// TestLoginDisabled 测试未配置密码时禁止登录.
func TestLoginDisabled(t *testing.T) {
	cfg := authConfig()
	cfg.AdminPassword = ""

	svc, err := service.NewAuthService(cfg, nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	if _, err := svc.Login("admin", ""); !errors.Is(err, service.ErrLoginDisabled) {
		t.Errorf("expected ErrLoginDisabled, got %v", err)
	}
}

// TestSessionExpiryAndRevoke 测试会话过期与注销.
func TestSessionExpiryAndRevoke(t *testing.T) {
	ctx := context.Background()

	cfg := authConfig()
	cfg.SessionTTL = time.Millisecond

	short, err := service.NewAuthService(cfg, nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	token, err := short.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, err := short.Verify(ctx, token); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expired token accepted: %v", err)
	}

	svc, err := service.NewAuthService(authConfig(), kv.NewMemoryClient())
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	token, _ = svc.Login("admin", "s3cret")

	sess, err := svc.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := svc.Revoke(ctx, sess); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := svc.Verify(ctx, token); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("revoked token accepted: %v", err)
	}
}

// TestDefaultSessionTTL 测试未配置 session_ttl 时令牌仍有有限有效期.
func TestDefaultSessionTTL(t *testing.T) {
	cfg := authConfig()
	cfg.SessionTTL = 0

	svc, err := service.NewAuthService(cfg, nil)
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}

	if svc.SessionTTL() != configs.DefaultSessionTTL {
		t.Errorf("SessionTTL = %v, want %v", svc.SessionTTL(), configs.DefaultSessionTTL)
	}

	token, err := svc.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	claims := &service.Claims{}
	if _, _, err := gojwt.NewParser().ParseUnverified(token, claims); err != nil {
		t.Fatalf("ParseUnverified: %v", err)
	}

	if claims.ExpiresAt == nil {
		t.Fatal("token issued without exp")
	}

	want := time.Now().Add(configs.DefaultSessionTTL)
	if d := claims.ExpiresAt.Sub(want); d < -time.Minute || d > time.Minute {
		t.Errorf("exp = %v, want about %v", claims.ExpiresAt.Time, want)
	}

	// 没有 exp 的旧令牌不再被接受
	legacy, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, service.Claims{
		Role:             service.RoleAdmin,
		RegisteredClaims: gojwt.RegisteredClaims{Subject: "admin", ID: "legacy"},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Verify(context.Background(), legacy); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("token without exp accepted: %v", err)
	}
}

// TestRandomSecret 测试未配置密钥时两个实例互不信任.
func TestRandomSecret(t *testing.T) {
	cfg := authConfig()
	cfg.Secret = ""

	a, _ := service.NewAuthService(cfg, nil)
	b, _ := service.NewAuthService(cfg, nil)

	token, err := a.Login("admin", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := b.Verify(context.Background(), token); err == nil {
		t.Error("token verified with a different random secret")
	}
}
