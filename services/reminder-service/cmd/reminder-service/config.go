package main

import (
	"time"

	"github.com/agendaclinica/agenda/libs/config"
	"github.com/agendaclinica/agenda/libs/timewindow"
)

type Config struct {
	Service     string
	Port        string
	GRPCPort    string
	DatabaseURL string
	Zone        *time.Location

	RelayURL     string
	RelayToken   string
	RelayTimeout time.Duration

	Interval     time.Duration
	CycleTimeout time.Duration
	APIKey       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration

	KafkaBrokers string
}

func ConfigFromEnv() (Config, error) {
	port, err := config.Port("PORT", "8091")
	if err != nil {
		return Config{}, err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9091")
	if err != nil {
		return Config{}, err
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return Config{}, err
	}
	return Config{
		Service:       config.String("SERVICE_NAME", "reminder-service"),
		Port:          port,
		GRPCPort:      grpcPort,
		DatabaseURL:   dbURL,
		Zone:          timewindow.FixedZone(config.Int("CIVIL_UTC_OFFSET_HOURS", timewindow.DefaultUTCOffsetHours)),
		RelayURL:      config.String("REMINDER_WEBHOOK_URL", ""),
		RelayToken:    config.String("REMINDER_WEBHOOK_TOKEN", ""),
		RelayTimeout:  config.Seconds("RELAY_TIMEOUT_SECONDS", 15*time.Second),
		Interval:      config.Seconds("REMINDER_INTERVAL_SECONDS", 0),
		CycleTimeout:  config.Seconds("REMINDER_CYCLE_TIMEOUT_SECONDS", 60*time.Second),
		APIKey:        config.String("REMINDER_API_KEY", ""),
		RedisAddr:     config.String("REDIS_ADDR", ""),
		RedisPassword: config.String("REDIS_PASSWORD", ""),
		RedisDB:       max(config.Int("REDIS_DB", 0), 0),
		LockTTL:       config.Seconds("REMINDER_LOCK_TTL_SECONDS", 60*time.Second),
		KafkaBrokers:  config.String("KAFKA_BROKERS", ""),
	}, nil
}
