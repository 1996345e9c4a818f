package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the market maker.
type Config struct {
	Port            int
	LogLevel        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	QuoteInterval time.Duration
	QuoteSpread   decimal.Decimal
	QuoteSizeMin  int64
	QuoteSizeMax  int64
	QuoteSymbols  []string
	QuoteAlways   bool

	FeedEnabled  bool
	FeedInterval time.Duration
	UniverseFile string

	MaxSessions int

	KafkaBrokers     []string
	KafkaFillsTopic  string
	KafkaQuotesTopic string
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	quoteInterval, err := getDuration("QUOTE_INTERVAL", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_INTERVAL: %w", err)
	}
	if quoteInterval <= 0 {
		return nil, fmt.Errorf("invalid QUOTE_INTERVAL: must be positive, got %s", quoteInterval)
	}

	quoteSpread, err := getDecimal("QUOTE_SPREAD", decimal.RequireFromString("0.04"))
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_SPREAD: %w", err)
	}
	if !quoteSpread.IsPositive() {
		return nil, fmt.Errorf("invalid QUOTE_SPREAD: must be positive, got %s", quoteSpread)
	}

	sizeMin, err := getInt("QUOTE_SIZE_MIN", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_SIZE_MIN: %w", err)
	}
	sizeMax, err := getInt("QUOTE_SIZE_MAX", 500)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_SIZE_MAX: %w", err)
	}
	if sizeMin <= 0 || sizeMax < sizeMin {
		return nil, fmt.Errorf("invalid quote size range: need 0 < QUOTE_SIZE_MIN <= QUOTE_SIZE_MAX, got %d..%d", sizeMin, sizeMax)
	}

	quoteSymbols := getList("QUOTE_SYMBOLS", []string{"AAPL"})
	if len(quoteSymbols) == 0 {
		return nil, fmt.Errorf("invalid QUOTE_SYMBOLS: at least one symbol is required")
	}

	quoteAlways, err := getBool("QUOTE_ALWAYS", false)
	if err != nil {
		return nil, fmt.Errorf("invalid QUOTE_ALWAYS: %w", err)
	}

	feedEnabled, err := getBool("FEED_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_ENABLED: %w", err)
	}

	feedInterval, err := getDuration("FEED_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid FEED_INTERVAL: %w", err)
	}
	if feedInterval <= 0 {
		return nil, fmt.Errorf("invalid FEED_INTERVAL: must be positive, got %s", feedInterval)
	}

	maxSessions, err := getInt("MAX_SESSIONS", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
	}
	if maxSessions < 0 {
		return nil, fmt.Errorf("invalid MAX_SESSIONS: must be >= 0, got %d", maxSessions)
	}

	return &Config{
		Port:             port,
		LogLevel:         logLevel,
		ReadTimeout:      readTimeout,
		WriteTimeout:     writeTimeout,
		IdleTimeout:      idleTimeout,
		ShutdownTimeout:  shutdownTimeout,
		QuoteInterval:    quoteInterval,
		QuoteSpread:      quoteSpread,
		QuoteSizeMin:     int64(sizeMin),
		QuoteSizeMax:     int64(sizeMax),
		QuoteSymbols:     quoteSymbols,
		QuoteAlways:      quoteAlways,
		FeedEnabled:      feedEnabled,
		FeedInterval:     feedInterval,
		UniverseFile:     getStr("UNIVERSE_FILE", ""),
		MaxSessions:      maxSessions,
		KafkaBrokers:     getList("KAFKA_BROKERS", nil),
		KafkaFillsTopic:  getStr("KAFKA_FILLS_TOPIC", "mockmaker.fills"),
		KafkaQuotesTopic: getStr("KAFKA_QUOTES_TOPIC", "mockmaker.quotes"),
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getBool(key string, defaultVal bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

// getList splits a comma-separated value, dropping blanks.
func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
