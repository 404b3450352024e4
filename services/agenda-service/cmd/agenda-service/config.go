package main

import (
	"time"

	"github.com/agendaclinica/agenda/libs/config"
	"github.com/agendaclinica/agenda/libs/timewindow"
	"github.com/agendaclinica/agenda/services/agenda-service/internal/availability"
)

type Config struct {
	Service       string
	Port          string
	DatabaseURL   string
	Zone          *time.Location
	ConflictMode  availability.ConflictMode
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitPerMinute int
	RateLimitFailOpen  bool
	RateLimitPrefix    string
	CORSOrigins        []string
	RequestTimeout     time.Duration
	BodyLimitBytes     int64
}

func ConfigFromEnv() (Config, error) {
	port, err := config.Port("PORT", "8090")
	if err != nil {
		return Config{}, err
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	mode, err := availability.ParseConflictMode(config.String("AVAILABILITY_CONFLICT_MODE", string(availability.ConflictExact)))
	if err != nil {
		return Config{}, err
	}
	return Config{
		Service:            config.String("SERVICE_NAME", "agenda-service"),
		Port:               port,
		DatabaseURL:        dbURL,
		Zone:               timewindow.FixedZone(config.Int("CIVIL_UTC_OFFSET_HOURS", timewindow.DefaultUTCOffsetHours)),
		ConflictMode:       mode,
		RedisAddr:          config.String("REDIS_ADDR", ""),
		RedisPassword:      config.String("REDIS_PASSWORD", ""),
		RedisDB:            max(config.Int("REDIS_DB", 0), 0),
		RateLimitPerMinute: config.Int("RATE_LIMIT_PER_MINUTE", 60),
		RateLimitFailOpen:  config.Bool("RATE_LIMIT_FAIL_OPEN", true),
		RateLimitPrefix:    config.String("RATE_LIMIT_PREFIX", "agenda:rl"),
		CORSOrigins:        config.List("CORS_ALLOWED_ORIGINS", ""),
		RequestTimeout:     config.Seconds("REQUEST_TIMEOUT_SECONDS", 10*time.Second),
		BodyLimitBytes:     int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)),
	}, nil
}
