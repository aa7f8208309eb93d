package common

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"casino-settlement-go/internal/api"
	"casino-settlement-go/internal/blackjack"
	"casino-settlement-go/internal/chain"
	solanago "casino-settlement-go/internal/chain/solana"
	"casino-settlement-go/internal/database"
	"casino-settlement-go/internal/events"
	"casino-settlement-go/internal/ledger"
	"casino-settlement-go/internal/models"
	"casino-settlement-go/internal/price"
	"casino-settlement-go/internal/roulette"
	"casino-settlement-go/internal/roundstore"
	"casino-settlement-go/internal/userlock"
	"casino-settlement-go/internal/wallet"
	"casino-settlement-go/internal/withdrawal"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

// Services is everything a process needs to move money and settle games.
// Engines share one user lock so a user's game and withdrawal never interleave.
type Services struct {
	DbService   *database.Service
	ApiService  *api.LedgerService
	Chain       chain.Client
	Oracle      *price.CachedOracle
	Deriver     *wallet.Deriver
	Initializer *wallet.Initializer
	Treasury    chain.Keypair
	Publisher   events.Publisher
	Locks       *userlock.Locker
	Sessions    *ledger.Service
	Rounds      blackjack.RoundStore
	Blackjack   *blackjack.Engine
	Roulette    *roulette.Engine
	Withdrawals *withdrawal.Processor
	Games       models.GamesConfig
}

// InitializeLogger installs the global zap logger. JSON goes to stdout and,
// when cfg.File is set, to a size-rotated file as well.
func InitializeLogger(cfg models.LoggingConfig) (*zap.Logger, func()) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.Lock(os.Stdout), level),
	}

	var rotator *lumberjack.Logger
	if cfg.File != "" {
		rotator = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
		if rotator != nil {
			_ = rotator.Close()
		}
	}

	return logger, cleanup
}

// InstallFallbackLogger makes zap.L() write to stderr before the configured
// logger exists, so startup failures are not swallowed by the no-op default.
func InstallFallbackLogger() *zap.Logger {
	logger := zap.Must(zap.NewProduction())
	zap.ReplaceGlobals(logger)
	return logger
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	games, err := LoadGamesConfig(cfg.GamesFile)
	if err != nil {
		return nil, err
	}

	treasury, err := loadTreasury(cfg.Chain)
	if err != nil {
		return nil, err
	}

	if cfg.Chain.Mnemonic == "" {
		return nil, fmt.Errorf("missing required deposit mnemonic: DEPOSIT_MNEMONIC")
	}
	deriver, err := wallet.NewDeriver(cfg.Chain.Mnemonic)
	if err != nil {
		return nil, err
	}

	httpClient, err := NewHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	services := &Services{
		DbService: dbService,
		Treasury:  treasury,
		Deriver:   deriver,
		Locks:     userlock.New(),
		Games:     games,
	}

	zap.L().Info("Connecting to Solana RPC",
		zap.String("url", cfg.Chain.RpcUrl),
		zap.String("treasury", treasury.Address()))
	services.Chain = solanago.NewClient(httpClient, cfg.Chain)
	services.Oracle = price.NewCachedOracle(price.NewCoinGecko(httpClient, cfg.Price), cfg.Price.CacheTTL)

	services.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Publisher = publisher
	}

	if cfg.Redis.Addr != "" {
		redisStore, err := roundstore.NewRedis(ctx, cfg.Redis)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Rounds = redisStore
	} else {
		zap.L().Info("No REDIS_ADDR configured, keeping blackjack rounds in process")
		services.Rounds = roundstore.NewMemory(0)
	}

	services.Initializer = wallet.NewInitializer(services.Chain, treasury, cfg.Chain.InitQueueSize)
	services.Initializer.Start(ctx)

	services.ApiService = api.NewLedgerService(api.LedgerServiceConfig{
		Store:       dbService,
		Oracle:      services.Oracle,
		Deriver:     deriver,
		Initializer: services.Initializer,
		Publisher:   services.Publisher,
		Network:     cfg.Chain.Network,
		Asset:       cfg.Chain.Asset,
		Fiat:        cfg.Price.FiatCurrency,
	})

	services.Sessions = ledger.NewService(dbService, services.Publisher)
	services.Blackjack = blackjack.NewEngine(dbService, services.Sessions, services.Rounds, services.Locks, games.Blackjack)
	services.Roulette = roulette.NewEngine(dbService, services.Sessions, services.Locks, games.Roulette)
	services.Withdrawals = withdrawal.NewProcessor(withdrawal.Config{
		Chain:    services.Chain,
		Store:    dbService,
		Oracle:   services.Oracle,
		Treasury: treasury,
		Locks:    services.Locks,
		Settings: cfg.Withdrawal,
		Asset:    cfg.Chain.Asset,
		Fiat:     cfg.Price.FiatCurrency,
	})

	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without chain access
// Useful for read-only operations like querying balances
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (cs *Services) Close() {
	if cs.Initializer != nil {
		cs.Initializer.Stop()
	}
	if cs.Oracle != nil {
		cs.Oracle.Stop()
	}
	switch rounds := cs.Rounds.(type) {
	case *roundstore.Memory:
		rounds.Stop()
	case *roundstore.Redis:
		if err := rounds.Close(); err != nil {
			zap.L().Warn("Failed to close redis round store", zap.Error(err))
		}
	}
	if cs.Publisher != nil {
		if err := cs.Publisher.Close(); err != nil {
			zap.L().Warn("Failed to close event publisher", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func loadTreasury(cfg models.ChainConfig) (chain.Keypair, error) {
	if cfg.TreasuryKey == "" {
		return chain.Keypair{}, fmt.Errorf("missing required treasury key: TREASURY_PRIVATE_KEY")
	}

	treasury, err := chain.KeypairFromBase58(cfg.TreasuryKey)
	if err != nil {
		return chain.Keypair{}, fmt.Errorf("invalid treasury key: %w", err)
	}
	if cfg.TreasuryAddress != "" && treasury.Address() != cfg.TreasuryAddress {
		return chain.Keypair{}, fmt.Errorf("treasury key does not match TREASURY_ADDRESS: key is %s, configured %s",
			treasury.Address(), cfg.TreasuryAddress)
	}
	return treasury, nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
