package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	StoreDatabase = "postgres"
	StoreRedis    = "redis"

	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

type Config struct {
	DatabaseDriver string
	DatabaseURL    string

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	Issuer             string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	RefreshTokenSecret string
	TokenLeeway        time.Duration

	PasswordHasher  string
	BcryptCost      int
	HashConcurrency int

	RefreshStore  string
	RedisAddress  string
	RedisPassword string
	RedisDB       int

	HTTPAddress string
	GRPCAddress string

	CookieDomain     string
	CookieSecure     bool
	AllowedOrigins   []string
	AllowCredentials bool

	PruneInterval time.Duration
	LogLevel      string
}

var keys = []string{
	"DATABASE_DRIVER", "DATABASE_URL",
	"JWT_PRIVATE_KEY_PATH", "JWT_PUBLIC_KEY_PATH", "JWT_ISSUER",
	"ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "REFRESH_TOKEN_SECRET", "TOKEN_LEEWAY",
	"PASSWORD_HASHER", "BCRYPT_COST", "HASH_CONCURRENCY",
	"REFRESH_STORE", "REDIS_ADDRESS", "REDIS_PASSWORD", "REDIS_DB",
	"HTTP_ADDRESS", "GRPC_ADDRESS",
	"COOKIE_DOMAIN", "COOKIE_SECURE", "ALLOWED_ORIGINS", "ALLOW_CREDENTIALS",
	"PRUNE_INTERVAL", "LOG_LEVEL",
}

// Load reads config.json from the working directory when present and lets
// environment variables override every key.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")

	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("JWT_ISSUER", "auth-service")
	v.SetDefault("ACCESS_TOKEN_TTL", "1h")
	v.SetDefault("REFRESH_TOKEN_TTL", "8760h")
	v.SetDefault("TOKEN_LEEWAY", "0s")
	v.SetDefault("PASSWORD_HASHER", HasherBcrypt)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("HASH_CONCURRENCY", 4)
	v.SetDefault("REFRESH_STORE", StoreDatabase)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("HTTP_ADDRESS", ":5501")
	v.SetDefault("GRPC_ADDRESS", ":50051")
	v.SetDefault("COOKIE_DOMAIN", "localhost")
	v.SetDefault("COOKIE_SECURE", false)
	v.SetDefault("ALLOW_CREDENTIALS", true)
	v.SetDefault("PRUNE_INTERVAL", "1h")
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	origins, err := parseList(v.GetString("ALLOWED_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("ALLOWED_ORIGINS: %w", err)
	}

	cfg := &Config{
		DatabaseDriver:     strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:        v.GetString("DATABASE_URL"),
		JWTPrivateKeyPath:  v.GetString("JWT_PRIVATE_KEY_PATH"),
		JWTPublicKeyPath:   v.GetString("JWT_PUBLIC_KEY_PATH"),
		Issuer:             v.GetString("JWT_ISSUER"),
		AccessTokenTTL:     v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:    v.GetDuration("REFRESH_TOKEN_TTL"),
		RefreshTokenSecret: v.GetString("REFRESH_TOKEN_SECRET"),
		TokenLeeway:        v.GetDuration("TOKEN_LEEWAY"),
		PasswordHasher:     strings.ToLower(v.GetString("PASSWORD_HASHER")),
		BcryptCost:         v.GetInt("BCRYPT_COST"),
		HashConcurrency:    v.GetInt("HASH_CONCURRENCY"),
		RefreshStore:       strings.ToLower(v.GetString("REFRESH_STORE")),
		RedisAddress:       v.GetString("REDIS_ADDRESS"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisDB:            v.GetInt("REDIS_DB"),
		HTTPAddress:        v.GetString("HTTP_ADDRESS"),
		GRPCAddress:        v.GetString("GRPC_ADDRESS"),
		CookieDomain:       v.GetString("COOKIE_DOMAIN"),
		CookieSecure:       v.GetBool("COOKIE_SECURE"),
		AllowedOrigins:     origins,
		AllowCredentials:   v.GetBool("ALLOW_CREDENTIALS"),
		PruneInterval:      v.GetDuration("PRUNE_INTERVAL"),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTPrivateKeyPath == "" {
		missing = append(missing, "JWT_PRIVATE_KEY_PATH")
	}
	if c.RefreshTokenSecret == "" {
		missing = append(missing, "REFRESH_TOKEN_SECRET")
	}
	if c.Issuer == "" {
		missing = append(missing, "JWT_ISSUER")
	}
	if c.RefreshStore == StoreRedis && c.RedisAddress == "" {
		missing = append(missing, "REDIS_ADDRESS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.RefreshStore {
	case StoreDatabase, StoreRedis:
	default:
		return fmt.Errorf("unsupported REFRESH_STORE %q", c.RefreshStore)
	}
	switch c.PasswordHasher {
	case HasherBcrypt, HasherArgon2id:
	default:
		return fmt.Errorf("unsupported PASSWORD_HASHER %q", c.PasswordHasher)
	}

	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.HashConcurrency < 1 {
		c.HashConcurrency = 1
	}
	return nil
}

// parseList accepts either a JSON array or a comma separated list.
func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if strings.HasPrefix(raw, "[") {
		var out []string
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			return nil, err
		}
		return out, nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
