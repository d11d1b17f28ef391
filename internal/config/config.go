package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type DB struct {
	Database string
	Password string
	Username string
	Port     string
	Host     string
	Schema   string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		d.Username, d.Password, d.Host, d.Port, d.Database, d.Schema,
	)
}

type Gateway struct {
	URL       string
	StoreID   string
	StorePass string
	Currency  string
	Timeout   time.Duration
	Mock      bool
}

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Config struct {
	Port     int
	LogLevel string
	DB       DB

	JWTSecret   string
	BackendURL  string
	FrontendURL string
	CORSOrigins []string

	Gateway      Gateway
	InitiateRate float64

	PendingStore  string
	RedisAddr     string
	PendingTTL    time.Duration
	SweepInterval time.Duration

	Notifier     string
	SMTP         SMTP
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadDB reads only the database settings.
func LoadDB() DB {
	return DB{
		Database: os.Getenv("BLUEPRINT_DB_DATABASE"),
		Password: os.Getenv("BLUEPRINT_DB_PASSWORD"),
		Username: os.Getenv("BLUEPRINT_DB_USERNAME"),
		Port:     getEnv("BLUEPRINT_DB_PORT", "5432"),
		Host:     getEnv("BLUEPRINT_DB_HOST", "localhost"),
		Schema:   getEnv("BLUEPRINT_DB_SCHEMA", "public"),
	}
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DB:       LoadDB(),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		BackendURL:  strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		Gateway: Gateway{
			URL:       getEnv("GATEWAY_URL", "https://sandbox.sslcommerz.com/gwprocess/v4/api.php"),
			StoreID:   os.Getenv("GATEWAY_STORE_ID"),
			StorePass: os.Getenv("GATEWAY_STORE_PASS"),
			Currency:  getEnv("GATEWAY_CURRENCY", "BDT"),
			Timeout:   getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second),
			Mock:      getEnvBool("GATEWAY_MOCK", false),
		},
		InitiateRate:  getEnvFloat("INITIATE_RATE", 1),
		PendingStore:  getEnv("PENDING_STORE", "postgres"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		PendingTTL:    getEnvDuration("PENDING_TTL", 24*time.Hour),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", 10*time.Minute),
		Notifier:      getEnv("NOTIFIER", "log"),
		SMTP: SMTP{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("SMTP_FROM", "no-reply@localhost"),
		},
		KafkaBrokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-confirmations"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch c.PendingStore {
	case "postgres", "redis":
	default:
		return fmt.Errorf("PENDING_STORE must be postgres or redis, got %q", c.PendingStore)
	}
	switch c.Notifier {
	case "log", "smtp", "kafka":
	default:
		return fmt.Errorf("NOTIFIER must be log, smtp or kafka, got %q", c.Notifier)
	}
	if c.Notifier == "smtp" && c.SMTP.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when NOTIFIER=smtp")
	}
	if !c.Gateway.Mock && (c.Gateway.StoreID == "" || c.Gateway.StorePass == "") {
		return fmt.Errorf("GATEWAY_STORE_ID and GATEWAY_STORE_PASS are required unless GATEWAY_MOCK is set")
	}
	if c.InitiateRate <= 0 {
		return fmt.Errorf("INITIATE_RATE must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	b, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return def
	}
	return d
}

func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
