package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress  string
	DatabaseURI string
	RedisAddr   string

	GatewaySecret string

	KafkaBrokers []string
	KafkaTopic   string

	PaymentWindow    time.Duration
	ReservationLease time.Duration

	SweepInterval   time.Duration
	CompletionGrace time.Duration
	RefundGrace     time.Duration
	SweepBatchSize  int

	PointsPerUnit float64

	ShutdownTimeout time.Duration
}

const (
	defaultRunAddress       = ":8080"
	defaultRedisAddr        = "localhost:6379"
	defaultGatewaySecret    = "change-me-in-production"
	defaultKafkaTopic       = "order-events"
	defaultPaymentWindow    = 15 * time.Minute
	defaultReservationLease = 15 * time.Minute
	defaultSweepInterval    = time.Minute
	defaultCompletionGrace  = 7 * 24 * time.Hour
	defaultRefundGrace      = 3 * 24 * time.Hour
	defaultSweepBatchSize   = 100
	defaultPointsPerUnit    = 1000
	defaultShutdownTimeout  = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:       getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:      getString(lookup, "DATABASE_URI", ""),
		RedisAddr:        getString(lookup, "REDIS_ADDR", defaultRedisAddr),
		GatewaySecret:    getString(lookup, "GATEWAY_SECRET", defaultGatewaySecret),
		KafkaTopic:       getString(lookup, "KAFKA_TOPIC", defaultKafkaTopic),
		PaymentWindow:    getDuration(lookup, "PAYMENT_WINDOW", defaultPaymentWindow),
		ReservationLease: getDuration(lookup, "RESERVATION_LEASE", defaultReservationLease),
		SweepInterval:    getDuration(lookup, "SWEEP_INTERVAL", defaultSweepInterval),
		CompletionGrace:  getDuration(lookup, "COMPLETION_GRACE", defaultCompletionGrace),
		RefundGrace:      getDuration(lookup, "REFUND_GRACE", defaultRefundGrace),
		SweepBatchSize:   getInt(lookup, "SWEEP_BATCH_SIZE", defaultSweepBatchSize),
		PointsPerUnit:    getFloat(lookup, "POINTS_PER_UNIT", defaultPointsPerUnit),
		ShutdownTimeout:  getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	if brokers := getString(lookup, "KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitBrokers(brokers)
	}

	fs := flag.NewFlagSet("ordercore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		paymentWindowStr   = cfg.PaymentWindow.String()
		sweepIntervalStr   = cfg.SweepInterval.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		brokersStr         = strings.Join(cfg.KafkaBrokers, ",")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "Redis address for the lock store")
	fs.StringVar(&cfg.GatewaySecret, "gateway-secret", cfg.GatewaySecret, "Shared secret for payment gateway signatures")
	fs.StringVar(&brokersStr, "kafka-brokers", brokersStr, "Comma separated kafka broker addresses")
	fs.StringVar(&cfg.KafkaTopic, "kafka-topic", cfg.KafkaTopic, "Kafka topic for order events")
	fs.StringVar(&paymentWindowStr, "payment-window", paymentWindowStr, "How long an order may await payment")
	fs.StringVar(&sweepIntervalStr, "sweep-interval", sweepIntervalStr, "Interval between timeout sweeps")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.IntVar(&cfg.SweepBatchSize, "sweep-batch", cfg.SweepBatchSize, "Maximum orders per sweep batch")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.PaymentWindow, err = time.ParseDuration(paymentWindowStr); err != nil {
		return nil, fmt.Errorf("invalid payment window: %w", err)
	}

	if cfg.SweepInterval, err = time.ParseDuration(sweepIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid sweep interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if brokersStr != "" {
		cfg.KafkaBrokers = splitBrokers(brokersStr)
	}

	if secretFile, ok := lookup("GATEWAY_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read gateway secret file: %w", err)
		}
		cfg.GatewaySecret = strings.TrimSpace(string(content))
	}

	if cfg.PaymentWindow <= 0 {
		cfg.PaymentWindow = defaultPaymentWindow
	}

	if cfg.ReservationLease <= 0 {
		cfg.ReservationLease = defaultReservationLease
	}

	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepInterval
	}

	if cfg.CompletionGrace <= 0 {
		cfg.CompletionGrace = defaultCompletionGrace
	}

	if cfg.RefundGrace <= 0 {
		cfg.RefundGrace = defaultRefundGrace
	}

	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = defaultSweepBatchSize
	}

	if cfg.PointsPerUnit <= 0 {
		cfg.PointsPerUnit = defaultPointsPerUnit
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	return cfg, nil
}

func splitBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
