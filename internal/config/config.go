package config

import (
	"fmt"
	"log"
	"strings"
	"time"
)

type Config struct {
	ListenAddr      string        // ex: "127.0.0.1:8787"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Remote story API
	APIBaseURL string        // ex: https://story-api.dicoding.dev/v1
	APITimeout time.Duration // per-request timeout of the gateway http client
	AuthToken  string        // optional bearer token
	TokenFile  string        // optional file holding the bearer token (read on each request)
	AllowGuest bool          // permit unauthenticated online submissions

	// Local store
	StoreEngine string // "sqlite" | "redis" | "memory"
	SQLitePath  string // sqlite database file

	// Redis (StoreEngine == "redis")
	RedisAddr           string
	RedisUser           string
	RedisPassword       string
	RedisDB             int
	RedisDT             time.Duration // dial timeout
	RedisRT             time.Duration // read timeout
	RedisWT             time.Duration // write timeout
	RedisPoolSize       int
	RedisConnectTimeout time.Duration // total time to retry connecting
	RedisRetryInterval  time.Duration // initial wait between retries, doubles
	RedisMaxWait        time.Duration // cap of the wait between retries
	RedisPingTimeout    time.Duration // timeout for each ping attempt

	// Sync engine and schedulers
	SyncInterval    time.Duration // periodic drain, 0 = only on connectivity transitions
	ProbeURL        string        // connectivity probe target, defaults to APIBaseURL
	ProbeInterval   time.Duration // 0 = no active probing
	ProbeTimeout    time.Duration
	JanitorInterval time.Duration // interval of the synced-record cleanup
	SyncedRetention time.Duration // synced records older than this are removed, 0 = keep

	// Local API access
	AllowedCIDRS    []string // clients allowed to call the API (loopback by default)
	TrustProxy      bool     // true => resolve client IP from proxy headers
	RateLimitBurst  int      // submissions burst per client
	RateLimitPerMin int      // submissions refill per client per minute
}

// Load reads the configuration from STORYSYNC_* environment variables.
// When STORYSYNC_CONFIG_FILE names a YAML file, its keys provide the
// defaults and the environment still wins.
func Load() *Config {
	src := newSource()
	if path := src.getenv("STORYSYNC_CONFIG_FILE", ""); path != "" {
		values, err := loadFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		src.file = values
	}
	return src.build()
}

// TryLoad is Load for callers that report a bad configuration as an error
// instead of crashing, like the CLI.
func TryLoad() (cfg *Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid configuration: %v", r)
		}
	}()
	return Load(), nil
}

func (s *source) build() *Config {
	cfg := &Config{
		ListenAddr:      s.getenv("STORYSYNC_LISTEN_ADDR", "127.0.0.1:8787"),
		ShutdownTimeout: s.mustDuration("STORYSYNC_SHUTDOWN_TIMEOUT", 5*time.Second),

		LogLevel:  s.getenv("STORYSYNC_LOG_LEVEL", "info"),
		PrettyLog: s.mustBool("STORYSYNC_PRETTY_LOG", true),

		APIBaseURL: strings.TrimRight(s.requireEnv("STORYSYNC_API_BASE_URL"), "/"),
		APITimeout: s.mustDuration("STORYSYNC_API_TIMEOUT", 30*time.Second),
		AuthToken:  s.getenv("STORYSYNC_AUTH_TOKEN", ""),
		TokenFile:  s.getenv("STORYSYNC_TOKEN_FILE", ""),
		AllowGuest: s.mustBool("STORYSYNC_ALLOW_GUEST", true),

		StoreEngine: strings.ToLower(s.getenv("STORYSYNC_STORE_ENGINE", "sqlite")),
		SQLitePath:  s.getenv("STORYSYNC_SQLITE_PATH", "./data/storysync.db"),

		RedisAddr:           s.getenv("STORYSYNC_REDIS_ADDR", ""),
		RedisUser:           s.getenv("STORYSYNC_REDIS_USERNAME", ""),
		RedisPassword:       s.getenv("STORYSYNC_REDIS_PASSWORD", ""),
		RedisDB:             s.getenvInt("STORYSYNC_REDIS_DB", 0),
		RedisDT:             s.mustDuration("STORYSYNC_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             s.mustDuration("STORYSYNC_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             s.mustDuration("STORYSYNC_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisPoolSize:       s.getenvInt("STORYSYNC_REDIS_POOL_SIZE", 4),
		RedisConnectTimeout: s.mustDuration("STORYSYNC_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  s.mustDuration("STORYSYNC_REDIS_RETRY_INTERVAL", 1*time.Second),
		RedisMaxWait:        s.mustDuration("STORYSYNC_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    s.mustDuration("STORYSYNC_REDIS_PING_TIMEOUT", 3*time.Second),

		SyncInterval:    s.mustDuration("STORYSYNC_SYNC_INTERVAL", 0),
		ProbeURL:        s.getenv("STORYSYNC_PROBE_URL", ""),
		ProbeInterval:   s.mustDuration("STORYSYNC_PROBE_INTERVAL", 15*time.Second),
		ProbeTimeout:    s.mustDuration("STORYSYNC_PROBE_TIMEOUT", 3*time.Second),
		JanitorInterval: s.mustDuration("STORYSYNC_JANITOR_INTERVAL", time.Hour),
		SyncedRetention: s.mustDuration("STORYSYNC_SYNCED_RETENTION", 0),

		AllowedCIDRS:    splitAndTrim(s.getenv("STORYSYNC_ALLOWED_CIDRS", "127.0.0.1/32,::1/128")),
		TrustProxy:      s.mustBool("STORYSYNC_TRUST_PROXY", false),
		RateLimitBurst:  s.getenvInt("STORYSYNC_RATE_LIMIT_BURST", 20),
		RateLimitPerMin: s.getenvInt("STORYSYNC_RATE_LIMIT_PER_MIN", 60),
	}

	if cfg.ProbeURL == "" {
		cfg.ProbeURL = cfg.APIBaseURL
	}

	switch cfg.StoreEngine {
	case "sqlite", "memory":
	case "redis":
		if cfg.RedisAddr == "" {
			panic("❌ FATAL: STORYSYNC_REDIS_ADDR is required when STORYSYNC_STORE_ENGINE=redis")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: unsupported STORYSYNC_STORE_ENGINE %q", cfg.StoreEngine))
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.AuthToken != "" {
		cp.AuthToken = "***REDACTED***"
	}
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}
