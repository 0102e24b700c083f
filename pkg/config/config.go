package config

import (
	"log"
	"os"
	"time"

	"SafeTrail/pkg/cache"
	"SafeTrail/pkg/logger"
	"SafeTrail/pkg/util"
)

// Config is the process configuration, loaded from the environment.
type Config struct {
	Addr     string `env:"ADDR"`
	Mode     string `env:"MODE"`
	DBDriver string `env:"DB_DRIVER"`
	DSN      string `env:"DSN"`

	Log   logger.LogConfig
	Cache cache.Config

	APISecretKey string `env:"API_SECRET_KEY"`
	RateLimit    string `env:"RATE_LIMIT"` // e.g. "100-M"

	DefaultLanguage string `env:"DEFAULT_LANGUAGE"`
	LocalesPath     string `env:"LOCALES_PATH"`

	// Liveness sweep: sessions silent past SessionTimeout are removed
	// every SweepInterval.
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL"`
	SessionTimeout time.Duration `env:"SESSION_TIMEOUT"`

	// SOS ETA decay: tick cadence and the wall duration of one ETA
	// "minute" (shortened in tests).
	EtaTickInterval time.Duration `env:"ETA_TICK_INTERVAL"`
	EtaMinute       time.Duration `env:"ETA_MINUTE"`

	// Responder travel model.
	MinutesPerKm float64 `env:"MINUTES_PER_KM"`

	// Cron expression for the nightly evidence verification job.
	AuditSchedule string `env:"AUDIT_SCHEDULE"`
}

var GlobalConfig *Config

// Load populates GlobalConfig from .env files and the environment.
func Load() error {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	GlobalConfig = &Config{
		Addr:     util.GetEnvDefault("ADDR", ":3000"),
		Mode:     util.GetEnvDefault("MODE", "debug"),
		DBDriver: util.GetEnv("DB_DRIVER"),
		DSN:      util.GetEnv("DSN"),
		Log: logger.LogConfig{
			Level:      util.GetEnv("LOG_LEVEL"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Cache: cache.Config{
			Type: util.GetEnvDefault("CACHE_TYPE", "local"),
			Redis: cache.RedisConfig{
				Addr:     util.GetEnvDefault("REDIS_ADDR", "localhost:6379"),
				Password: util.GetEnv("REDIS_PASSWORD"),
				DB:       int(util.GetIntEnv("REDIS_DB")),
				PoolSize: int(util.GetIntEnv("REDIS_POOL_SIZE")),
			},
			Local: cache.LocalConfig{
				DefaultExpiration: util.GetDurationEnv("LOCAL_CACHE_DEFAULT_EXPIRATION", 5*time.Minute),
				CleanupInterval:   util.GetDurationEnv("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
		APISecretKey:    util.GetEnv("API_SECRET_KEY"),
		RateLimit:       util.GetEnvDefault("RATE_LIMIT", "100-M"),
		DefaultLanguage: util.GetEnvDefault("DEFAULT_LANGUAGE", "en"),
		LocalesPath:     util.GetEnvDefault("LOCALES_PATH", "locales"),
		SweepInterval:   util.GetDurationEnv("SWEEP_INTERVAL", 10*time.Second),
		SessionTimeout:  util.GetDurationEnv("SESSION_TIMEOUT", 30*time.Second),
		EtaTickInterval: util.GetDurationEnv("ETA_TICK_INTERVAL", 30*time.Second),
		EtaMinute:       util.GetDurationEnv("ETA_MINUTE", time.Minute),
		MinutesPerKm:    2.0,
		AuditSchedule:   util.GetEnvDefault("AUDIT_SCHEDULE", "0 3 * * *"),
	}
	return nil
}
