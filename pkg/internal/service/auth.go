package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeisme/mediavault/pkg/configs"
	ctxPkg "github.com/yeisme/mediavault/pkg/context"
	"github.com/yeisme/mediavault/pkg/internal/storage/kv"
	nlog "github.com/yeisme/mediavault/pkg/log"
)

const (
	// RoleAdmin 管理员角色.
	RoleAdmin = "admin"
	// MsgInvalidCredentials 登录失败提示.
	MsgInvalidCredentials = "Invalid username or password"

	revokedPrefix = "auth:revoked:"
)

// Claims 会话令牌.
type Claims struct {
	Role string `json:"role"`
	gojwt.RegisteredClaims
}

// AuthService 单一管理员的登录与会话校验.
type AuthService struct {
	cfg    configs.AuthConfig
	secret []byte
	store  kv.KVStore
	now    func() time.Time
}

// NewAuthService 创建 AuthService.
// cfg.Secret 为空时生成随机密钥，进程重启后已签发的会话失效；store 用于记录注销的令牌，可为 nil.
func NewAuthService(cfg configs.AuthConfig, store kv.KVStore) (*AuthService, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}

		secret = []byte(hex.EncodeToString(buf))

		nlog.Logger().Warn().Msg("auth.secret is empty, using a random secret; sessions will not survive restarts")
	}

	if cfg.AdminPasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid auth.admin_password_hash: %w", err)
		}
	}

	return &AuthService{cfg: cfg, secret: secret, store: store, now: time.Now}, nil
}

// CookieName 会话 cookie 名.
func (s *AuthService) CookieName() string {
	if s.cfg.CookieName == "" {
		return configs.DefaultCookieName
	}

	return s.cfg.CookieName
}

// CookieSecure 是否只通过 HTTPS 发送 cookie.
func (s *AuthService) CookieSecure() bool { return s.cfg.CookieSecure }

// SessionTTL 会话有效期，未配置时为 configs.DefaultSessionTTL.
func (s *AuthService) SessionTTL() time.Duration { return s.cfg.GetSessionTTL() }

// Login 校验凭据并签发令牌.
func (s *AuthService) Login(username, password string) (string, error) {
	if !s.cfg.LoginEnabled() {
		return "", ErrLoginDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.AdminUsername)) == 1
	passOK := s.checkPassword(password)

	if !userOK || !passOK {
		return "", ErrUnauthorized
	}

	return s.issue(username)
}

func (s *AuthService) checkPassword(password string) bool {
	if s.cfg.AdminPasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(s.cfg.AdminPasswordHash), []byte(password)) == nil
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.AdminPassword)) == 1
}

func (s *AuthService) issue(subject string) (string, error) {
	now := s.now()
	claims := Claims{
		Role: RoleAdmin,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:  subject,
			ID:       uuid.NewString(),
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(s.SessionTTL())),
		},
	}

	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}

	return token, nil
}

// Verify 校验令牌，返回会话信息.
func (s *AuthService) Verify(ctx context.Context, token string) (ctxPkg.Session, error) {
	if token == "" {
		return ctxPkg.Session{}, ErrUnauthorized
	}

	claims := &Claims{}

	_, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return s.secret, nil
	},
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithTimeFunc(s.now),
		gojwt.WithExpirationRequired(),
	)
	if err != nil {
		return ctxPkg.Session{}, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if claims.Role != RoleAdmin {
		return ctxPkg.Session{}, ErrUnauthorized
	}

	if s.revoked(ctx, claims.ID) {
		return ctxPkg.Session{}, fmt.Errorf("%w: session revoked", ErrUnauthorized)
	}

	return ctxPkg.Session{Admin: true, Subject: claims.Subject, TokenID: claims.ID}, nil
}

// Revoke 注销会话令牌，令牌过期前都不再被接受.
func (s *AuthService) Revoke(ctx context.Context, sess ctxPkg.Session) error {
	if s.store == nil || sess.TokenID == "" {
		return nil
	}

	if err := s.store.Set(ctx, revokedPrefix+sess.TokenID, []byte("1"), s.SessionTTL()); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}

	return nil
}

func (s *AuthService) revoked(ctx context.Context, id string) bool {
	if s.store == nil || id == "" {
		return false
	}

	_, err := s.store.Get(ctx, revokedPrefix+id)
	if err == nil {
		return true
	}

	if !errors.Is(err, kv.ErrNotFound) {
		nlog.Logger().Warn().Err(err).Msg("revocation lookup failed")
	}

	return false
}

// HashPassword 生成 bcrypt 哈希，供 config 子命令使用.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(h), nil
}
