package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMSSQL    = "mssql"
)

// Session record codecs.
const (
	CodecJSON = "json"
	CodecJWT  = "jwt"
)

type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	Database  DatabaseConfig
	MSSQL     MSSQLConfig
	KurrentDB KurrentDBConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

// SessionConfig controls where and how the current session is persisted.
type SessionConfig struct {
	// Store: "memory", "file", "postgres" or "mssql"
	Store string
	// Dir holds the session file for the file store
	Dir string
	// Key names the single persisted record
	Key string
	// Codec: "json" or "jwt"
	Codec string
	// Secret signs the record when Codec is "jwt"
	Secret string
	// InitTimeout bounds the startup restore
	InitTimeout time.Duration
	// LoginTimeout bounds a single login
	LoginTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// MaxConns caps the pool; the session store needs only a few
	MaxConns int32
	// MinConns keeps idle connections warm
	MinConns int32
	// ConnectTimeout bounds dialing and the startup ping
	ConnectTimeout time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// MSSQLConfig holds the SQL Server connection used by the mssql session store.
type MSSQLConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

func (m MSSQLConfig) DSN() string {
	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?database=%s",
		m.User, m.Password, m.Host, m.Port, m.Database)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	// Enabled turns on session event publishing
	Enabled bool
	// Host is the KurrentDB server hostname
	Host string
	// Port is the gRPC/HTTP port (default 2113)
	Port int
	// Insecure disables TLS (for development)
	Insecure bool
	// Username for authentication (optional)
	Username string
	// Password for authentication (optional)
	Password string
}

// RateLimitConfig limits login submissions per client IP.
type RateLimitConfig struct {
	LoginRPS   int
	LoginBurst int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Pretty bool
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	// A missing .env is fine; environment variables still apply.
	_ = v.ReadInConfig()

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")

	v.SetDefault("SESSION_STORE", StoreFile)
	v.SetDefault("SESSION_DIR", ".office")
	v.SetDefault("SESSION_KEY", "currentUser")
	v.SetDefault("SESSION_CODEC", CodecJSON)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_INIT_TIMEOUT", "10s")
	v.SetDefault("SESSION_LOGIN_TIMEOUT", "5s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "office")
	v.SetDefault("DB_PASSWORD", "office")
	v.SetDefault("DB_NAME", "office")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 0)
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")

	v.SetDefault("MSSQL_HOST", "localhost")
	v.SetDefault("MSSQL_PORT", 1433)
	v.SetDefault("MSSQL_USER", "sa")
	v.SetDefault("MSSQL_PASSWORD", "")
	v.SetDefault("MSSQL_DATABASE", "office")

	v.SetDefault("KURRENTDB_ENABLED", false)
	v.SetDefault("KURRENTDB_HOST", "localhost")
	v.SetDefault("KURRENTDB_PORT", 2113)
	v.SetDefault("KURRENTDB_INSECURE", true)
	v.SetDefault("KURRENTDB_USERNAME", "")
	v.SetDefault("KURRENTDB_PASSWORD", "")

	v.SetDefault("RATE_LIMIT_LOGIN_RPS", 5)
	v.SetDefault("RATE_LIMIT_LOGIN_BURST", 10)

	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port: v.GetInt("SERVER_PORT"),
			Env:  v.GetString("ENV"),
		},
		Session: SessionConfig{
			Store:        strings.ToLower(v.GetString("SESSION_STORE")),
			Dir:          v.GetString("SESSION_DIR"),
			Key:          v.GetString("SESSION_KEY"),
			Codec:        strings.ToLower(v.GetString("SESSION_CODEC")),
			Secret:       v.GetString("SESSION_SECRET"),
			InitTimeout:  v.GetDuration("SESSION_INIT_TIMEOUT"),
			LoginTimeout: v.GetDuration("SESSION_LOGIN_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),

			MaxConns:       v.GetInt32("DB_MAX_CONNS"),
			MinConns:       v.GetInt32("DB_MIN_CONNS"),
			ConnectTimeout: v.GetDuration("DB_CONNECT_TIMEOUT"),
		},
		MSSQL: MSSQLConfig{
			Host:     v.GetString("MSSQL_HOST"),
			Port:     v.GetInt("MSSQL_PORT"),
			User:     v.GetString("MSSQL_USER"),
			Password: v.GetString("MSSQL_PASSWORD"),
			Database: v.GetString("MSSQL_DATABASE"),
		},
		KurrentDB: KurrentDBConfig{
			Enabled:  v.GetBool("KURRENTDB_ENABLED"),
			Host:     v.GetString("KURRENTDB_HOST"),
			Port:     v.GetInt("KURRENTDB_PORT"),
			Insecure: v.GetBool("KURRENTDB_INSECURE"),
			Username: v.GetString("KURRENTDB_USERNAME"),
			Password: v.GetString("KURRENTDB_PASSWORD"),
		},
		RateLimit: RateLimitConfig{
			LoginRPS:   v.GetInt("RATE_LIMIT_LOGIN_RPS"),
			LoginBurst: v.GetInt("RATE_LIMIT_LOGIN_BURST"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ORIGINS")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Pretty: v.GetBool("LOG_PRETTY"),
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Session.Store {
	case StoreMemory, StoreFile, StorePostgres, StoreMSSQL:
	default:
		return fmt.Errorf("SESSION_STORE must be one of memory, file, postgres, mssql, got %q", c.Session.Store)
	}

	switch c.Session.Codec {
	case CodecJSON:
	case CodecJWT:
		if c.Session.Secret == "" {
			if c.IsProduction() {
				return fmt.Errorf("SESSION_SECRET is required for the jwt codec in production")
			}
			c.Session.Secret = "dev-session-secret-change-in-prod"
		}
	default:
		return fmt.Errorf("SESSION_CODEC must be json or jwt, got %q", c.Session.Codec)
	}

	if c.Session.Key == "" {
		return fmt.Errorf("SESSION_KEY must not be empty")
	}
	if c.Session.Store == StoreFile && c.Session.Dir == "" {
		return fmt.Errorf("SESSION_DIR is required for the file store")
	}
	if c.Session.InitTimeout <= 0 || c.Session.LoginTimeout <= 0 {
		return fmt.Errorf("session timeouts must be positive")
	}
	if c.Session.Store == StorePostgres {
		if c.Database.MaxConns <= 0 || c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
			return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, and DB_MAX_CONNS positive")
		}
	}
	if c.RateLimit.LoginRPS <= 0 || c.RateLimit.LoginBurst <= 0 {
		return fmt.Errorf("login rate limit must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
