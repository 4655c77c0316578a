package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

type (
	DBType string
)

const (
	// PostgreSQL 协议.
	PostgreSQL DBType = "postgresql"
	Postgres   DBType = "postgres"
	Pg         DBType = "pg"

	// MySQL 协议.
	MySQL   DBType = "mysql"
	MariaDB DBType = "mariadb"
	// SQLite 协议.
	SQLite DBType = "sqlite"
)

const (
	DefaultDatabaseHost     = "localhost"  // 默认数据库主机
	DefaultDatabasePort     = 5432         // 默认数据库端口
	DefaultDatabaseUser     = "postgres"   // 默认数据库用户
	DefaultDatabasePassword = ""           // 默认数据库密码
	DefaultDatabaseName     = "mediavault" // 默认数据库名称
	DefaultDatabaseSSLMode  = "disable"    // 默认数据库SSL模式
	DefaultMaxOpenConns     = 10           // 默认最大打开连接数
	DefaultMaxIdleConns     = 5            // 默认最大空闲连接数
	DefaultActivityDays     = 90           // 操作日志保留天数
)

// DBConfig 数据库配置，数据库仅用于记录上传/删除操作日志.
type DBConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Type                  DBType `mapstructure:"type"                    rule:"oneof=postgresql postgres pg mysql mariadb sqlite"`
	Host                  string `mapstructure:"host"                    rule:"omitempty,hostname"`
	Port                  int    `mapstructure:"port"                    rule:"min=1,max=65535"`
	User                  string `mapstructure:"user"`
	Password              string `mapstructure:"password"`
	Database              string `mapstructure:"database"                rule:"required"`
	SSLMode               string `mapstructure:"sslmode"`
	MaxOpenConns          int    `mapstructure:"max_open_conns"          rule:"min=0"`
	MaxIdleConns          int    `mapstructure:"max_idle_conns"          rule:"min=0"`
	ActivityRetentionDays int    `mapstructure:"activity_retention_days" rule:"min=0"`
}

// GetDBType 返回数据库类型的字符串表示.
func (c *DBConfig) GetDBType() string {
	switch c.Type {
	case PostgreSQL, Postgres, Pg:
		return "PostgreSQL"
	case MySQL, MariaDB:
		return "MySQL"
	case SQLite:
		return "SQLite"
	default:
		return "Unknown"
	}
}

// GetDSN 获取数据库的连接字符串，根据不同的数据库类型返回不同格式的DSN.
func (c *DBConfig) GetDSN() string {
	dsnMap := map[DBType]func() string{
		PostgreSQL: c.getPgSQLDSN,
		Postgres:   c.getPgSQLDSN,
		Pg:         c.getPgSQLDSN,
		MySQL:      c.getMySQLDSN,
		MariaDB:    c.getMySQLDSN,
		SQLite:     c.getSQLiteDSN,
	}

	if fn, ok := dsnMap[c.Type]; ok {
		return fn()
	}

	return ""
}

// getPgSQLDSN 获取PostgreSQL的DSN.
func (c *DBConfig) getPgSQLDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// getMySQLDSN 获取MySQL的DSN.
func (c *DBConfig) getMySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// getSQLiteDSN 获取SQLite的DSN，database 为 :memory: 时使用内存库.
func (c *DBConfig) getSQLiteDSN() string {
	if c.Database == ":memory:" {
		return "file::memory:?cache=shared"
	}

	return fmt.Sprintf("file:%s.db", c.Database)
}

// GetActivityRetentionDays 操作日志保留天数.
func (c *DBConfig) GetActivityRetentionDays() int {
	if c.ActivityRetentionDays <= 0 {
		return DefaultActivityDays
	}

	return c.ActivityRetentionDays
}

// setDefaults 设置数据库配置的默认值.
func (c *DBConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("db.enabled", true)
	v.SetDefault("db.type", SQLite)
	v.SetDefault("db.host", DefaultDatabaseHost)
	v.SetDefault("db.port", DefaultDatabasePort)
	v.SetDefault("db.user", DefaultDatabaseUser)
	v.SetDefault("db.password", DefaultDatabasePassword)
	v.SetDefault("db.database", DefaultDatabaseName)
	v.SetDefault("db.sslmode", DefaultDatabaseSSLMode)
	v.SetDefault("db.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("db.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("db.activity_retention_days", DefaultActivityDays)
}
