/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"casino-settlement-go/internal/models"
)

func Load() (*models.Config, error) {
	// The first invalid duration is kept and reported after parsing.
	var err error
	duration := func(key string, defaultValue time.Duration) time.Duration {
		if err != nil {
			return 0
		}
		var d time.Duration
		d, err = getEnvDuration(key, defaultValue)
		return d
	}

	cfg := &models.Config{
		Database: models.DatabaseConfig{
			Path:             getEnvString("DATABASE_PATH", "casino.db"),
			MaxOpenConns:     getEnvInt("DB_MAX_OPEN_CONNS", 1),
			MaxIdleConns:     getEnvInt("DB_MAX_IDLE_CONNS", 1),
			ConnMaxLifetime:  duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:  duration("DB_CONN_MAX_IDLE_TIME", 30*time.Second),
			PingTimeout:      duration("DB_PING_TIMEOUT", 5*time.Second),
			CreateDummyUsers: getEnvBool("CREATE_DUMMY_USERS", false),
		},
		Server: models.ServerConfig{
			Address:         getEnvString("SERVER_ADDRESS", ":8080"),
			ReadTimeout:     duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    duration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Redis: models.RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", ""),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RabbitMQ: models.RabbitMQConfig{
			URL:      getEnvString("RABBITMQ_URL", ""),
			Exchange: getEnvString("RABBITMQ_EXCHANGE", "casino.events"),
		},
		Chain: models.ChainConfig{
			RpcUrl:          getEnvString("SOLANA_RPC_URL", "https://api.devnet.solana.com"),
			Network:         getEnvString("CHAIN_NETWORK", "solana"),
			Asset:           getEnvString("CHAIN_ASSET", "SOL"),
			TreasuryAddress: getEnvString("TREASURY_ADDRESS", ""),
			TreasuryKey:     getEnvString("TREASURY_PRIVATE_KEY", ""),
			Mnemonic:        getEnvString("DEPOSIT_MNEMONIC", ""),
			RetryAttempts:   uint(getEnvInt("RPC_RETRY_ATTEMPTS", 3)),
			RetryDelay:      duration("RPC_RETRY_DELAY", 500*time.Millisecond),
			InitQueueSize:   getEnvInt("ADDRESS_INIT_QUEUE_SIZE", 100),
		},
		Price: models.PriceConfig{
			BaseUrl:        getEnvString("PRICE_API_URL", "https://api.coingecko.com/api/v3"),
			ApiKey:         getEnvString("PRICE_API_KEY", ""),
			FiatCurrency:   getEnvString("FIAT_CURRENCY", "EUR"),
			CacheTTL:       duration("PRICE_CACHE_TTL", 30*time.Second),
			RequestsPerMin: getEnvInt("PRICE_REQUESTS_PER_MINUTE", 30),
			RequestTimeout: duration("PRICE_REQUEST_TIMEOUT", 10*time.Second),
		},
		Scanner: models.ScannerConfig{
			Enabled:             getEnvBool("SCANNER_ENABLED", true),
			Interval:            duration("SCANNER_INTERVAL", 15*time.Second),
			InitialDelay:        duration("SCANNER_INITIAL_DELAY", 5*time.Second),
			MinTriggerLamports:  getEnvUint64("SCANNER_MIN_TRIGGER_LAMPORTS", 1_000_000),
			FeeReserveLamports:  getEnvUint64("SCANNER_FEE_RESERVE_LAMPORTS", 10_000),
			MaxConcurrency:      getEnvInt("SCANNER_MAX_CONCURRENCY", 10),
			SignatureLimit:      getEnvInt("SCANNER_SIGNATURE_LIMIT", 20),
			FinalizationTimeout: duration("SCANNER_FINALIZATION_TIMEOUT", 60*time.Second),
			FinalizationPoll:    duration("SCANNER_FINALIZATION_POLL", 2*time.Second),
		},
		Withdrawal: models.WithdrawalConfig{
			FeeReserveLamports:  getEnvUint64("WITHDRAWAL_FEE_RESERVE_LAMPORTS", 10_000),
			FinalizationTimeout: duration("WITHDRAWAL_FINALIZATION_TIMEOUT", 60*time.Second),
			FinalizationPoll:    duration("WITHDRAWAL_FINALIZATION_POLL", 2*time.Second),
		},
		Logging: models.LoggingConfig{
			File:       getEnvString("LOG_FILE", ""),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 30),
		},
		GamesFile: getEnvString("GAMES_FILE", "games.yaml"),
	}
	if err != nil {
		return nil, err
	}

	if cfg.Scanner.MaxConcurrency < 1 {
		return nil, fmt.Errorf("SCANNER_MAX_CONCURRENCY must be at least 1, got %d", cfg.Scanner.MaxConcurrency)
	}
	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uintValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uintValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
