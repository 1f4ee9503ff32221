package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. Infrastructure backends are
// optional: an empty DatabaseURL selects the in-memory stores, an empty
// RedisURL selects the in-process number allocator, and empty KafkaBrokers
// disables event publishing.
type Server struct {
	Addr         string
	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string
	KafkaTopic   string
	Series       string
}

// ShutdownTimeout bounds graceful shutdown of the HTTP server and workers.
var ShutdownTimeout = 10 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("FAKTURO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "fakturo.invoicing"
	}

	series := os.Getenv("FAKTURO_SERIES")
	if series == "" {
		series = "INV"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Server{
		Addr:         addr,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisURL:     os.Getenv("REDIS_URL"),
		KafkaBrokers: brokers,
		KafkaTopic:   topic,
		Series:       series,
	}
}
