package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

// Config holds the configuration for the swapper service
type Config struct {
	SolverRelayURL       string
	NearRPCURL           string
	ProtocolID           string
	RequestTimeout       time.Duration
	QuotePollInterval    time.Duration
	QuoteRefreshInterval time.Duration
	SettlePollInterval   time.Duration
	SettleTimeout        time.Duration
	MetricsPort          string
	APIKey               string
	CircuitBreaker       CircuitBreakerConfig
	Redis                RedisConfig
	LoggerConfig         LoggerConfig
	Intent               models.Intent
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// RedisConfig locates the intent id store
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	relayURL, err := GetEnvSolverRelayURL()
	if err != nil {
		return nil, err
	}

	nearURL, err := GetEnvNearRPCURL()
	if err != nil {
		return nil, err
	}

	requestTimeout, err := GetEnvRequestTimeout()
	if err != nil {
		return nil, err
	}

	pollInterval, err := GetEnvQuotePollInterval()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := GetEnvQuoteRefreshInterval()
	if err != nil {
		return nil, err
	}

	settlePoll, err := GetEnvSettlePollInterval()
	if err != nil {
		return nil, err
	}

	settleTimeout, err := GetEnvSettleTimeout()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	redisConfig, err := GetEnvRedis()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SolverRelayURL:       relayURL,
		NearRPCURL:           nearURL,
		ProtocolID:           GetEnvProtocolID(),
		RequestTimeout:       requestTimeout,
		QuotePollInterval:    pollInterval,
		QuoteRefreshInterval: refreshInterval,
		SettlePollInterval:   settlePoll,
		SettleTimeout:        settleTimeout,
		MetricsPort:          metricsPort,
		APIKey:               GetEnvAPIKey(),
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		Redis: redisConfig,
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
		Intent: GetEnvIntent(),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if cfg.ProtocolID == "" {
		return fmt.Errorf("PROTOCOL_ID is required")
	}
	if cfg.Redis.DB < 0 {
		return fmt.Errorf("REDIS_DB must be greater than or equal to 0")
	}
	if cfg.SettleTimeout < cfg.SettlePollInterval {
		return fmt.Errorf("SETTLE_TIMEOUT must not be shorter than SETTLE_POLL_INTERVAL")
	}
	return nil
}
