package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAdminUsername = "admin"
	DefaultCookieName    = "mv_session"
	// DefaultSessionTTL 未配置 session_ttl 时的会话有效期.
	DefaultSessionTTL = 7 * 24 * time.Hour
)

// AuthConfig 单一管理员认证配置.
//
// AdminPasswordHash（bcrypt）优先于明文 AdminPassword；两者都为空时登录被禁用.
// Secret 为空时进程启动会生成随机密钥，重启后已签发的会话全部失效.
type AuthConfig struct {
	AdminUsername     string        `mapstructure:"admin_username"      rule:"required"`
	AdminPassword     string        `mapstructure:"admin_password"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	Secret            string        `mapstructure:"secret"`
	CookieName        string        `mapstructure:"cookie_name"         rule:"required"`
	CookieSecure      bool          `mapstructure:"cookie_secure"`
	SessionTTL        time.Duration `mapstructure:"session_ttl"` // <=0 时使用 DefaultSessionTTL
}

// LoginEnabled 是否配置了管理员凭据.
func (c *AuthConfig) LoginEnabled() bool {
	return c.AdminPassword != "" || c.AdminPasswordHash != ""
}

// GetSessionTTL 会话有效期，始终为正.
func (c *AuthConfig) GetSessionTTL() time.Duration {
	if c.SessionTTL <= 0 {
		return DefaultSessionTTL
	}

	return c.SessionTTL
}

func (c *AuthConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("auth.admin_username", DefaultAdminUsername)
	v.SetDefault("auth.admin_password", "")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.cookie_name", DefaultCookieName)
	v.SetDefault("auth.cookie_secure", false)
	v.SetDefault("auth.session_ttl", DefaultSessionTTL)
}
