package config

import (
	"os"
	"strconv"
	"time"

	"safewatch/services"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	RedisURL    string
	JWTSecret   string
	LogLevel    string

	// Firebase Config
	FirebaseCredentials string

	// Twilio Config
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	// Panic
	PanicCountdownSeconds  int
	PanicActivationTimeout time.Duration

	// Dispatch queue
	DispatchMaxAttempts  int
	DispatchBackoffBase  time.Duration
	DispatchBackoffCap   time.Duration
	DispatchSendTimeout  time.Duration
	DispatchPollInterval time.Duration

	// Zones
	ZoneRefreshInterval time.Duration
	ZoneCacheTTL        time.Duration

	// User sessions
	SessionIdleTimeout   time.Duration
	SessionSweepInterval time.Duration

	// Scoring
	AccurateLocationMeters float64
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "mongodb://localhost:27017/safewatch"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		JWTSecret:   getEnv("JWT_SECRET", "your-super-secret-jwt-key"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		PanicCountdownSeconds:  getEnvAsInt("PANIC_COUNTDOWN_SECONDS", 3),
		PanicActivationTimeout: getEnvAsDuration("PANIC_ACTIVATION_TIMEOUT", 10*time.Second),

		DispatchMaxAttempts:  getEnvAsInt("DISPATCH_MAX_ATTEMPTS", 5),
		DispatchBackoffBase:  getEnvAsDuration("DISPATCH_BACKOFF_BASE", time.Second),
		DispatchBackoffCap:   getEnvAsDuration("DISPATCH_BACKOFF_CAP", time.Minute),
		DispatchSendTimeout:  getEnvAsDuration("DISPATCH_SEND_TIMEOUT", 30*time.Second),
		DispatchPollInterval: getEnvAsDuration("DISPATCH_POLL_INTERVAL", 5*time.Second),

		ZoneRefreshInterval: getEnvAsDuration("ZONE_REFRESH_INTERVAL", 15*time.Minute),
		ZoneCacheTTL:        getEnvAsDuration("ZONE_CACHE_TTL", 24*time.Hour),

		SessionIdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		SessionSweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),

		AccurateLocationMeters: getEnvAsFloat("ACCURATE_LOCATION_METERS", 15),
	}
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) RetryPolicy() services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: c.DispatchMaxAttempts,
		BaseDelay:   c.DispatchBackoffBase,
		MaxDelay:    c.DispatchBackoffCap,
		SendTimeout: c.DispatchSendTimeout,
	}
}

func (c *Config) PanicConfig() services.PanicConfig {
	return services.PanicConfig{
		CountdownSeconds:  c.PanicCountdownSeconds,
		ActivationTimeout: c.PanicActivationTimeout,
	}
}

func (c *Config) ScoringPolicy() services.ScoringPolicy {
	policy := services.DefaultScoringPolicy()
	policy.AccurateLocationMeters = c.AccurateLocationMeters
	return policy
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Warnf("Invalid REDIS_URL, using localhost: %v", err)
		opt = &redis.Options{
			Addr: "localhost:6379",
			DB:   0,
		}
	}

	return redis.NewClient(opt)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("90s", "5m").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		logrus.Warnf("Invalid duration for %s: %q", key, value)
	}
	return defaultValue
}
