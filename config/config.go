// Package config loads process settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config holds the API server settings.
type Config struct {
	Port               string        `validate:"required,numeric"`
	StoreDriver        string        `validate:"oneof=bolt postgres"`
	DBPath             string        `validate:"required_if=StoreDriver bolt"`
	DBConnectionString string        `validate:"required"`
	RedisURL           string        `validate:"omitempty,hostname_port"` // host:port
	ItemCacheTTL       time.Duration `validate:"gt=0"`
	AMQPURL            string        `validate:"omitempty,url"`
	MailQueue          string        `validate:"required"`
	NotifyTimeout      time.Duration `validate:"gt=0"`
	MaxUnitsPerRequest int           `validate:"min=1"`
}

// Mailer holds the notification worker settings.
type Mailer struct {
	AMQPURL      string `validate:"required,url"`
	MailQueue    string `validate:"required"`
	SMTPAddr     string `validate:"required,hostname_port"`
	SMTPUser     string
	SMTPPassword string `validate:"required_with=SMTPUser"`
	MailFrom     string `validate:"required,email"`
}

var validate = validator.New()

func loadEnvFile() {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file loaded, using process environment")
	}
}

// Load reads the API server settings.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:               getenv("PORT", "8080"),
		StoreDriver:        getenv("STORE_DRIVER", DriverBolt),
		DBPath:             getenv("DB_PATH", "reservations.db"),
		DBConnectionString: os.Getenv("DB_CONNECTION_STRING"),
		RedisURL:           os.Getenv("REDIS_URL"),
		AMQPURL:            os.Getenv("AMQP_URL"),
		MailQueue:          getenv("MAIL_QUEUE", "reservations.mail"),
	}

	var err error
	if cfg.ItemCacheTTL, err = durationEnv("ITEM_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = durationEnv("NOTIFY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxUnitsPerRequest, err = intEnv("MAX_UNITS_PER_REQUEST", 24*31); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadMailer reads the notification worker settings.
func LoadMailer() (*Mailer, error) {
	loadEnvFile()

	cfg := &Mailer{
		AMQPURL:      os.Getenv("AMQP_URL"),
		MailQueue:    getenv("MAIL_QUEUE", "reservations.mail"),
		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     os.Getenv("MAIL_FROM"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid mailer config: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
