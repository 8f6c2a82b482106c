package main

import (
	"log"
	"time"

	"rentflow-backend/pkg/container"
)

// Config holds the worker-only settings derived from the application config
type Config struct {
	Concurrency     int
	HealthAddr      string
	ShutdownTimeout time.Duration
}

// loadConfig derives worker settings from the container config
func loadConfig(c *container.Container) *Config {
	cfg := &Config{
		Concurrency:     20,
		HealthAddr:      ":9999",
		ShutdownTimeout: 30 * time.Second,
	}

	log.Printf("[Config] Redis: %s, stale sweep cron: %q, payment timeout: %d min",
		c.Config.Redis.Host, c.Config.Jobs.StalePaymentCron, c.Config.Jobs.PaymentTimeoutMinutes)

	return cfg
}
