package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name        string
	Env         string
	HTTP        HTTP
	Admin       AdminHTTP
	CORSOrigins []string `mapstructure:"cors_origins"`
	// TrustedProxies 反代地址/网段；为空时忽略 X-Forwarded-For
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int `mapstructure:"access_token_ttl_min"`
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
	SlowThresholdMs    int    `mapstructure:"slow_threshold_ms"`
}

// Account 账号策略
type Account struct {
	DefaultPassword string `mapstructure:"default_password"`
	BcryptCost      int    `mapstructure:"bcrypt_cost"`
}

// Seed 启动时确保存在的管理员
type Seed struct {
	AdminName     string `mapstructure:"admin_name"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

// Limits 全局限流 + 登录/改密节流
type Limits struct {
	RPS           float64
	Burst         int
	MaxInFlight   int64 `mapstructure:"max_in_flight"`
	MaxBodyMB     int64 `mapstructure:"max_body_mb"`
	TimeoutSec    int   `mapstructure:"timeout_sec"`
	AuthPerMinute int   `mapstructure:"auth_per_minute"`
	// 每 IP 令牌桶；per_ip_rps <= 0 关闭
	PerIPRPS   float64 `mapstructure:"per_ip_rps"`
	PerIPBurst int     `mapstructure:"per_ip_burst"`
}

type Tracing struct {
	Enable   bool
	Endpoint string
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Account Account
	Seed    Seed
	Limits  Limits
	Tracing Tracing
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "useradmin")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("app.trusted_proxies", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file.filename", "logs/useradmin.log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 30)

	// 无默认值的键也要注册，AutomaticEnv 才能在 Unmarshal 时生效
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "useradmin")
	v.SetDefault("jwt.access_token_ttl_min", 120)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:useradmin.db")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("account.default_password", "asdasd")
	v.SetDefault("account.bcrypt_cost", 10)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.max_in_flight", 300)
	v.SetDefault("limits.max_body_mb", 16)
	v.SetDefault("limits.timeout_sec", 10)
	v.SetDefault("limits.auth_per_minute", 10)
	v.SetDefault("limits.per_ip_rps", 20)
	v.SetDefault("limits.per_ip_burst", 40)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("seed.admin_name", "Administrator")
	v.SetDefault("seed.admin_email", "")
	v.SetDefault("seed.admin_password", "")

	v.SetDefault("tracing.enable", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
}

// Read 读取配置文件并叠加 APP_ 前缀的环境变量（APP_DB_DSN → db.dsn）
func Read(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load 启动期使用，失败直接退出
func Load(path string) *Config {
	c, err := Read(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return fmt.Errorf("config: jwt.secret is required")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("config: unsupported db.driver %q", c.DB.Driver)
	}
	return nil
}
