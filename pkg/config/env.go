package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/speedrun-hq/speedrun-swapper/pkg/logger"
	"github.com/speedrun-hq/speedrun-swapper/pkg/models"
)

const (
	// DefaultSolverRelayURL is the JSON-RPC endpoint serving quotes
	DefaultSolverRelayURL = "https://solver-relay.chaindefuser.com/rpc"

	// DefaultNearRPCURL is the NEAR node used to read intents
	DefaultNearRPCURL = "https://rpc.mainnet.near.org"

	// DefaultProtocolID is the intents contract account
	DefaultProtocolID = "swap-defuse.near"

	DefaultRequestTimeout       = 5 * time.Second
	DefaultQuotePollInterval    = 500 * time.Millisecond
	DefaultQuoteRefreshInterval = 5 * time.Second
	DefaultSettlePollInterval   = 500 * time.Millisecond
	DefaultSettleTimeout        = 5 * time.Minute

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 5 * time.Second

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 15 * time.Second

	// DefaultRedisKey is where the active intent id is kept
	DefaultRedisKey = "swapper:intent_id"

	DefaultLogLevel    = "info"
	DefaultLogColoring = true
)

func getEnvURL(name, fallback string) (string, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	if _, err := url.ParseRequestURI(value); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid URL", name, value)
	}
	return value, nil
}

func getEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", name, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", name)
	}
	return parsed, nil
}

func getEnvBool(name string, fallback bool) (bool, error) {
	value := os.Getenv(name)
	switch value {
	case "":
		return fallback, nil
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", name, value)
}

// GetEnvSolverRelayURL returns the solver relay endpoint from environment variables
func GetEnvSolverRelayURL() (string, error) {
	return getEnvURL("SOLVER_RELAY_URL", DefaultSolverRelayURL)
}

// GetEnvNearRPCURL returns the NEAR RPC endpoint from environment variables
func GetEnvNearRPCURL() (string, error) {
	return getEnvURL("NEAR_RPC_URL", DefaultNearRPCURL)
}

// GetEnvProtocolID returns the intents contract account from environment variables
func GetEnvProtocolID() string {
	protocolID := os.Getenv("PROTOCOL_ID")
	if protocolID == "" {
		return DefaultProtocolID
	}
	return protocolID
}

// GetEnvRequestTimeout returns the upstream HTTP timeout
func GetEnvRequestTimeout() (time.Duration, error) {
	return getEnvDuration("REQUEST_TIMEOUT", DefaultRequestTimeout)
}

// GetEnvQuotePollInterval returns the delay between two quote polls
func GetEnvQuotePollInterval() (time.Duration, error) {
	return getEnvDuration("QUOTE_POLL_INTERVAL", DefaultQuotePollInterval)
}

// GetEnvQuoteRefreshInterval returns how long a quoted swap waits before requoting
func GetEnvQuoteRefreshInterval() (time.Duration, error) {
	return getEnvDuration("QUOTE_REFRESH_INTERVAL", DefaultQuoteRefreshInterval)
}

// GetEnvSettlePollInterval returns the delay between two settlement checks
func GetEnvSettlePollInterval() (time.Duration, error) {
	return getEnvDuration("SETTLE_POLL_INTERVAL", DefaultSettlePollInterval)
}

// GetEnvSettleTimeout returns how long settlement is awaited
func GetEnvSettleTimeout() (time.Duration, error) {
	return getEnvDuration("SETTLE_TIMEOUT", DefaultSettleTimeout)
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	metricsPort := os.Getenv("METRICS_PORT")
	if metricsPort == "" {
		return DefaultMetricsPort, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(metricsPort); err != nil {
		return "", fmt.Errorf("invalid METRICS_PORT value: %s, must be a valid integer", metricsPort)
	}
	return metricsPort, nil
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	return getEnvBool("CIRCUIT_BREAKER_ENABLED", DefaultCircuitBreakerEnabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	return getEnvDuration("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow)
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	return getEnvDuration("CIRCUIT_BREAKER_RESET", DefaultCircuitBreakerReset)
}

// GetEnvRedis returns the intent store settings. An empty address selects the in-memory store.
func GetEnvRedis() (RedisConfig, error) {
	cfg := RedisConfig{
		Address:  os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		Key:      os.Getenv("REDIS_KEY"),
	}
	if cfg.Key == "" {
		cfg.Key = DefaultRedisKey
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		parsed, err := strconv.Atoi(db)
		if err != nil {
			return RedisConfig{}, fmt.Errorf("invalid REDIS_DB value: %s, must be an integer", db)
		}
		cfg.DB = parsed
	}
	return cfg, nil
}

// GetEnvLogLevel returns the minimum log level
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = DefaultLogLevel
	}
	parsed, err := logger.ParseLevel(level)
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL value: %s", level)
	}
	return parsed, nil
}

// GetEnvLogColoring returns whether log prefixes are colored
func GetEnvLogColoring() (bool, error) {
	return getEnvBool("LOG_COLORING", DefaultLogColoring)
}

// GetEnvIntent returns the swap the machine is initialized with
func GetEnvIntent() models.Intent {
	return models.Intent{
		IntentID:  os.Getenv("INTENT_ID"),
		AssetIn:   os.Getenv("ASSET_IN"),
		AssetOut:  os.Getenv("ASSET_OUT"),
		AmountIn:  os.Getenv("AMOUNT_IN"),
		AmountOut: os.Getenv("AMOUNT_OUT"),
		AccountID: os.Getenv("ACCOUNT_ID"),
		AccountTo: os.Getenv("ACCOUNT_TO"),
		Referral:  os.Getenv("REFERRAL"),
	}
}

// GetEnvAPIKey returns the bearer key protecting /metrics, /events and /circuit/reset.
// METRICS_API_KEY is still read when API_KEY is unset. Empty disables the check.
func GetEnvAPIKey() string {
	if key := os.Getenv("API_KEY"); key != "" {
		return key
	}
	return os.Getenv("METRICS_API_KEY")
}
