package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DeviceStoreFile  = "file"
	DeviceStoreRedis = "redis"
)

type Config struct {
	ListenPort      string        // ex: ":3000"
	ShutdownTimeout time.Duration // ex: 5s
	ReadTimeout     time.Duration // server read timeout, POST /item extends it
	WriteTimeout    time.Duration // server write timeout, streams and downloads extend it
	RequestTimeout  time.Duration // per-request timeout on short-lived routes

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Content
	StaticDir      string // directory holding index.html, admin.html, css/, js/, img/
	UploadDir      string // where uploaded files are stored (empty = uploads disabled)
	MaxUploadBytes int64  // ceiling for one POST /item body
	LogDir         string // interaction log directory (empty = interaction log disabled)
	SweepInterval  time.Duration
	SweepGrace     time.Duration

	// Devices
	DeviceStore string // "file" | "redis"
	DeviceFile  string // yaml file used by the file store

	// Live updates
	PushTimeout       time.Duration // per-subscriber budget for one push
	NotifyWait        time.Duration // how long a mutation may wait for dispatch queue room
	NotifyQueueSize   int
	SubscriberBuffer  int           // notices buffered per live connection
	KeepAliveInterval time.Duration // SSE comment / websocket ping period

	// Redis (only with DeviceStore=redis)
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	// Access restrictions
	AdminCIDRS   []string // admin role (delete items, manage devices)
	AllowedCIDRS []string // optional, restrict healthz/readyz/metrics (e.g. "10.0.0.0/8")
	AllowedHosts []string // optional, restrict access to specific Host headers
	TrustProxy   bool     // true => trust X-Forwarded-For headers
	PostBurst    int      // POST /item burst per client IP
	PostPerMin   int      // POST /item refill per client IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("LOCALDROP_LISTEN_PORT", ":3000"),
		ShutdownTimeout: mustDuration("LOCALDROP_SHUTDOWN_TIMEOUT", 5*time.Second),
		ReadTimeout:     mustDuration("LOCALDROP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    mustDuration("LOCALDROP_WRITE_TIMEOUT", 30*time.Second),
		RequestTimeout:  mustDuration("LOCALDROP_REQUEST_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("LOCALDROP_LOG_LEVEL", "info"),
		PrettyLog: mustBool("LOCALDROP_PRETTY_LOG", true),

		// Content
		StaticDir:      getenv("LOCALDROP_STATIC_DIR", "."),
		UploadDir:      getenvAllowEmpty("LOCALDROP_UPLOAD_DIR", "uploads"),
		MaxUploadBytes: getenvInt64("LOCALDROP_MAX_UPLOAD_BYTES", 50<<20),
		LogDir:         getenvAllowEmpty("LOCALDROP_LOG_DIR", "logs"),
		SweepInterval:  mustDuration("LOCALDROP_SWEEP_INTERVAL", time.Hour),
		SweepGrace:     mustDuration("LOCALDROP_SWEEP_GRACE", 10*time.Minute),

		// Devices
		DeviceStore: strings.ToLower(getenv("LOCALDROP_DEVICE_STORE", DeviceStoreFile)),
		DeviceFile:  getenv("LOCALDROP_DEVICE_FILE", "devices.yaml"),

		// Live updates
		PushTimeout:       mustDuration("LOCALDROP_PUSH_TIMEOUT", 3*time.Second),
		NotifyWait:        mustDuration("LOCALDROP_NOTIFY_WAIT", time.Second),
		NotifyQueueSize:   getenvInt("LOCALDROP_NOTIFY_QUEUE", 64),
		SubscriberBuffer:  getenvInt("LOCALDROP_SUBSCRIBER_BUFFER", 16),
		KeepAliveInterval: mustDuration("LOCALDROP_KEEPALIVE_INTERVAL", 25*time.Second),

		// Redis settings
		RedisUser:             getenv("LOCALDROP_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("LOCALDROP_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("LOCALDROP_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("LOCALDROP_REDIS_DB", 0),
		RedisDT:               mustDuration("LOCALDROP_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("LOCALDROP_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("LOCALDROP_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("LOCALDROP_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("LOCALDROP_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("LOCALDROP_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("LOCALDROP_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("LOCALDROP_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("LOCALDROP_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AdminCIDRS:   parseAllowedIPs(getenv("LOCALDROP_ADMIN_CIDRS", "127.0.0.1/32,::1/128")),
		AllowedCIDRS: parseAllowedIPs(getenv("LOCALDROP_ALLOWED_CIDRS", "")),
		AllowedHosts: splitAndTrim(getenv("LOCALDROP_ALLOWED_HOSTS", "")),
		TrustProxy:   mustBool("LOCALDROP_TRUST_PROXY", false),
		PostBurst:    getenvInt("LOCALDROP_POST_BURST", 20),
		PostPerMin:   getenvInt("LOCALDROP_POST_PER_MIN", 60),
	}

	switch cfg.DeviceStore {
	case DeviceStoreFile:
	case DeviceStoreRedis:
		cfg.RedisAddr = requireEnv("LOCALDROP_REDIS_ADDR")
		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: LOCALDROP_REDIS_PASSWORD is required when LOCALDROP_REDIS_PASSWORD_REQUIRED=true")
		}
	default:
		panic(fmt.Sprintf("❌ FATAL: LOCALDROP_DEVICE_STORE must be %q or %q, got %q",
			DeviceStoreFile, DeviceStoreRedis, cfg.DeviceStore))
	}

	if cfg.MaxUploadBytes <= 0 {
		panic(fmt.Sprintf("❌ FATAL: LOCALDROP_MAX_UPLOAD_BYTES must be > 0, got %d", cfg.MaxUploadBytes))
	}
	if cfg.KeepAliveInterval <= 0 {
		panic("❌ FATAL: LOCALDROP_KEEPALIVE_INTERVAL must be > 0")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getenvAllowEmpty returns def only when key is unset, so an explicit empty
// value can switch a feature off.
func getenvAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
