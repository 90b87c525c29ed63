package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sbilibin2017/linkbio-auth/internal/identity"
	"github.com/sbilibin2017/linkbio-auth/internal/oauth"
)

const (
	storagePostgres = "postgres"
	storageMemory   = "memory"
)

// config holds application, storage, session, hashing, events and identity
// provider settings.
type config struct {
	AppHost   string
	AppPort   string
	LogLevel  string
	LogFormat string

	Storage string

	PGHost         string
	PGPort         int
	PGUser         string
	PGPassword     string
	PGDB           string
	PGMaxOpenConns int
	PGMaxIdleConns int

	RedisHost         string
	RedisPort         int
	RedisDB           int
	RedisPassword     string
	RedisPoolSize     int
	RedisMinIdleConns int

	JWTSecretKey        string
	SessionTTL          time.Duration
	SessionCookieName   string
	SessionCookieSecure bool

	BcryptCost  int
	HashWorkers int

	KafkaBrokers []string
	KafkaTopic   string

	OAuth []oauth.Config
}

func (c config) addr() string {
	return fmt.Sprintf("%s:%s", c.AppHost, c.AppPort)
}

func (c config) postgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDB)
}

// parseConfig loads environment variables from a file and returns the
// application configuration. Variables already set in the environment win.
func parseConfig(path string) (cfg config, err error) {
	_ = godotenv.Load(path)

	getEnv := func(key, defaultValue string) string {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			return val
		}
		return defaultValue
	}
	getInt := func(key, defaultValue string) (int, error) {
		v, err := strconv.Atoi(getEnv(key, defaultValue))
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return v, nil
	}

	// Application config
	cfg.AppHost = getEnv("APP_HOST", "localhost")
	cfg.AppPort = getEnv("APP_PORT", "8080")
	cfg.LogLevel = getEnv("APP_LOG_LEVEL", "info")
	cfg.LogFormat = getEnv("APP_LOG_FORMAT", "json")

	cfg.Storage = getEnv("STORAGE", storagePostgres)
	if cfg.Storage != storagePostgres && cfg.Storage != storageMemory {
		return cfg, fmt.Errorf("invalid STORAGE %q: want %s or %s", cfg.Storage, storagePostgres, storageMemory)
	}

	// PostgreSQL config
	cfg.PGHost = getEnv("POSTGRES_HOST", "localhost")
	cfg.PGUser = getEnv("POSTGRES_USER", "user")
	cfg.PGPassword = getEnv("POSTGRES_PASSWORD", "password")
	cfg.PGDB = getEnv("POSTGRES_DB", "database")
	if cfg.PGPort, err = getInt("POSTGRES_PORT", "5432"); err != nil {
		return
	}
	if cfg.PGMaxOpenConns, err = getInt("POSTGRES_MAX_OPEN_CONNS", "16"); err != nil {
		return
	}
	if cfg.PGMaxIdleConns, err = getInt("POSTGRES_MAX_IDLE_CONNS", "8"); err != nil {
		return
	}

	// Redis config
	cfg.RedisHost = getEnv("REDIS_HOST", "localhost")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	if cfg.RedisPort, err = getInt("REDIS_PORT", "6379"); err != nil {
		return
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", "0"); err != nil {
		return
	}
	if cfg.RedisPoolSize, err = getInt("REDIS_POOL_SIZE", "10"); err != nil {
		return
	}
	if cfg.RedisMinIdleConns, err = getInt("REDIS_MIN_IDLE_CONNS", "2"); err != nil {
		return
	}

	// Session config
	cfg.JWTSecretKey = getEnv("JWT_SECRET_KEY", "my_super_secret_key")
	ttl, err := getInt("SESSION_TTL_SECOND", "86400")
	if err != nil {
		return
	}
	cfg.SessionTTL = time.Duration(ttl) * time.Second
	cfg.SessionCookieName = getEnv("SESSION_COOKIE_NAME", "session")
	if cfg.SessionCookieSecure, err = strconv.ParseBool(getEnv("SESSION_COOKIE_SECURE", "false")); err != nil {
		return cfg, fmt.Errorf("invalid SESSION_COOKIE_SECURE: %w", err)
	}

	// Password hashing config
	if cfg.BcryptCost, err = getInt("BCRYPT_COST", "10"); err != nil {
		return
	}
	if cfg.HashWorkers, err = getInt("HASH_WORKERS", "0"); err != nil {
		return
	}

	// Kafka config
	cfg.KafkaBrokers = splitList(getEnv("KAFKA_BROKERS", ""))
	cfg.KafkaTopic = getEnv("KAFKA_TOPIC", "linkbio.accounts")

	// Identity providers, enabled by their client id
	for _, p := range identity.Providers() {
		prefix := "OAUTH_" + strings.ToUpper(string(p)) + "_"
		clientID := getEnv(prefix+"CLIENT_ID", "")
		if clientID == "" {
			continue
		}
		cfg.OAuth = append(cfg.OAuth, oauth.Config{
			Provider:     p,
			ClientID:     clientID,
			ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
			AuthURL:      getEnv(prefix+"AUTH_URL", ""),
			TokenURL:     getEnv(prefix+"TOKEN_URL", ""),
			UserInfoURL:  getEnv(prefix+"USERINFO_URL", ""),
			IssuerURL:    getEnv(prefix+"ISSUER_URL", ""),
			RedirectURL:  getEnv(prefix+"REDIRECT_URL", ""),
			Scopes:       splitList(getEnv(prefix+"SCOPES", "")),
		})
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
