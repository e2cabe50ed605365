package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DB struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

type Gateway struct {
	BaseURL       string        // e.g. https://api.postmarkapp.com
	SenderEmail   string        // From address for every issue
	ServerToken   string        // X-Postmark-Server-Token value
	SendTimeout   time.Duration // per-send HTTP timeout; each call fails fast
}

type Worker struct {
	Concurrency   int           // Number of polling loops per process
	PollInterval  time.Duration // Sleep after an empty queue
	RetryInterval time.Duration // Sleep after a store/infrastructure error
	HTTPPort      string        // Worker health/metrics port
}

type Auth struct {
	PublicKeyPEM string // RSA public key for JWT verification
	Issuer       string
	Audience     string
}

type Config struct {
	AppName  string
	HTTPPort string // :8080
	DB       DB
	Gateway  Gateway
	Worker   Worker
	Auth     Auth
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func FromEnv() Config {
	return Config{
		AppName:  getenv("APP_NAME", "parchmail"),
		HTTPPort: getenv("HTTP_PORT", ":8080"),
		DB: DB{
			User: getenv("DB_USER", "postgres"),
			Pass: getenv("DB_PASS", "postgres"),
			Host: getenv("DB_HOST", "postgres"),
			Port: getenv("DB_PORT", "5432"),
			Name: getenv("DB_NAME", "parchmail"),
		},
		Gateway: Gateway{
			BaseURL:     getenv("GATEWAY_BASE_URL", "http://fake-gateway:8081"),
			SenderEmail: getenv("GATEWAY_SENDER_EMAIL", "newsletter@parchmail.dev"),
			ServerToken: getenv("GATEWAY_SERVER_TOKEN", ""),
			SendTimeout: getenvDuration("GATEWAY_SEND_TIMEOUT", 10*time.Second),
		},
		Worker: Worker{
			Concurrency:   getenvInt("WORKER_CONCURRENCY", 1),
			PollInterval:  getenvDuration("WORKER_POLL_INTERVAL", 10*time.Second),
			RetryInterval: getenvDuration("WORKER_RETRY_INTERVAL", 1*time.Second),
			HTTPPort:      ":" + getenv("WORKER_HTTP_PORT", "8083"),
		},
		Auth: Auth{
			PublicKeyPEM: getenv("JWT_PUBLIC_KEY", ""),
			Issuer:       getenv("JWT_ISSUER", "parchmail"),
			Audience:     getenv("JWT_AUDIENCE", "parchmail-admin"),
		},
	}
}

func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.DB.User, c.DB.Pass, c.DB.Host, c.DB.Port, c.DB.Name)
}
