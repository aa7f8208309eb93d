package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Chain      ChainConfig
	Price      PriceConfig
	Scanner    ScannerConfig
	Withdrawal WithdrawalConfig
	Logging    LoggingConfig
	GamesFile  string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	CreateDummyUsers bool
}

// ServerConfig holds HTTP surface settings
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig selects the round store backend. An empty Addr keeps rounds in process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RabbitMQConfig configures the event publisher. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL      string
	Exchange string
}

// ChainConfig holds Solana RPC and key material settings
type ChainConfig struct {
	RpcUrl          string
	Network         string
	Asset           string
	TreasuryAddress string
	TreasuryKey     string
	Mnemonic        string
	RetryAttempts   uint
	RetryDelay      time.Duration
	InitQueueSize   int
}

// PriceConfig holds price oracle settings
type PriceConfig struct {
	BaseUrl        string
	ApiKey         string
	FiatCurrency   string
	CacheTTL       time.Duration
	RequestsPerMin int
	RequestTimeout time.Duration
}

// ScannerConfig holds deposit scanner settings
type ScannerConfig struct {
	Enabled             bool
	Interval            time.Duration
	InitialDelay        time.Duration
	MinTriggerLamports  uint64
	FeeReserveLamports  uint64
	MaxConcurrency      int
	SignatureLimit      int
	FinalizationTimeout time.Duration
	FinalizationPoll    time.Duration
}

// WithdrawalConfig holds withdrawal processor settings
type WithdrawalConfig struct {
	FeeReserveLamports  uint64
	FinalizationTimeout time.Duration
	FinalizationPoll    time.Duration
}

// LoggingConfig holds optional file logging settings
type LoggingConfig struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// GamesConfig holds table limits, usually loaded from games.yaml
type GamesConfig struct {
	Blackjack BlackjackConfig
	Roulette  RouletteConfig
}

// BlackjackConfig holds table limits for blackjack
type BlackjackConfig struct {
	Enabled     bool
	MinBet      decimal.Decimal
	MaxBet      decimal.Decimal
	AllowedBets []decimal.Decimal
	DeckCount   int
	RoundTTL    time.Duration
}

// RouletteConfig holds table limits for roulette
type RouletteConfig struct {
	Enabled bool
	MinBet  decimal.Decimal
	MaxBet  decimal.Decimal
}
