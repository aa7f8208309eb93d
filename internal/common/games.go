package common

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

type blackjackFile struct {
	Enabled     *bool    `yaml:"enabled"`
	MinBet      string   `yaml:"min_bet"`
	MaxBet      string   `yaml:"max_bet"`
	AllowedBets []string `yaml:"allowed_bets"`
	DeckCount   int      `yaml:"deck_count"`
	RoundTTL    string   `yaml:"round_ttl"`
}

type rouletteFile struct {
	Enabled *bool  `yaml:"enabled"`
	MinBet  string `yaml:"min_bet"`
	MaxBet  string `yaml:"max_bet"`
}

type gamesFile struct {
	Blackjack blackjackFile `yaml:"blackjack"`
	Roulette  rouletteFile  `yaml:"roulette"`
}

// DefaultGamesConfig is used when no games file exists, and fills any
// field a games file leaves out
func DefaultGamesConfig() models.GamesConfig {
	return models.GamesConfig{
		Blackjack: models.BlackjackConfig{
			Enabled: true,
			MinBet:  decimal.NewFromInt(1),
			MaxBet:  decimal.NewFromInt(500),
			AllowedBets: []decimal.Decimal{
				decimal.NewFromInt(1), decimal.NewFromInt(5), decimal.NewFromInt(10),
				decimal.NewFromInt(25), decimal.NewFromInt(50), decimal.NewFromInt(100),
				decimal.NewFromInt(250), decimal.NewFromInt(500),
			},
			DeckCount: 6,
			RoundTTL:  30 * time.Minute,
		},
		Roulette: models.RouletteConfig{
			Enabled: true,
			MinBet:  decimal.NewFromInt(1),
			MaxBet:  decimal.NewFromInt(1000),
		},
	}
}

// LoadGamesConfig reads table limits from gamesFile. A missing file yields
// the defaults.
func LoadGamesConfig(gamesFilePath string) (models.GamesConfig, error) {
	cfg := DefaultGamesConfig()
	if gamesFilePath == "" {
		return cfg, nil
	}

	path := gamesFilePath
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return cfg, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, gamesFilePath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			zap.L().Info("No games file found, using default table limits", zap.String("file", gamesFilePath))
			return cfg, nil
		}
		return cfg, fmt.Errorf("unable to read %s: %w", gamesFilePath, err)
	}

	return ParseGamesConfig(data)
}

// ParseGamesConfig applies a games.yaml document over the defaults
func ParseGamesConfig(data []byte) (models.GamesConfig, error) {
	cfg := DefaultGamesConfig()

	var file gamesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("unable to parse games file: %w", err)
	}

	bj := &cfg.Blackjack
	if file.Blackjack.Enabled != nil {
		bj.Enabled = *file.Blackjack.Enabled
	}
	if err := parseAmount("blackjack.min_bet", file.Blackjack.MinBet, &bj.MinBet); err != nil {
		return cfg, err
	}
	if err := parseAmount("blackjack.max_bet", file.Blackjack.MaxBet, &bj.MaxBet); err != nil {
		return cfg, err
	}
	if file.Blackjack.AllowedBets != nil {
		bj.AllowedBets = make([]decimal.Decimal, len(file.Blackjack.AllowedBets))
		for i, raw := range file.Blackjack.AllowedBets {
			if err := parseAmount(fmt.Sprintf("blackjack.allowed_bets[%d]", i), raw, &bj.AllowedBets[i]); err != nil {
				return cfg, err
			}
		}
	}
	if file.Blackjack.DeckCount != 0 {
		if file.Blackjack.DeckCount < 1 || file.Blackjack.DeckCount > 8 {
			return cfg, fmt.Errorf("blackjack.deck_count must be between 1 and 8, got %d", file.Blackjack.DeckCount)
		}
		bj.DeckCount = file.Blackjack.DeckCount
	}
	if file.Blackjack.RoundTTL != "" {
		ttl, err := time.ParseDuration(file.Blackjack.RoundTTL)
		if err != nil || ttl <= 0 {
			return cfg, fmt.Errorf("invalid blackjack.round_ttl %q", file.Blackjack.RoundTTL)
		}
		bj.RoundTTL = ttl
	}

	rl := &cfg.Roulette
	if file.Roulette.Enabled != nil {
		rl.Enabled = *file.Roulette.Enabled
	}
	if err := parseAmount("roulette.min_bet", file.Roulette.MinBet, &rl.MinBet); err != nil {
		return cfg, err
	}
	if err := parseAmount("roulette.max_bet", file.Roulette.MaxBet, &rl.MaxBet); err != nil {
		return cfg, err
	}

	if bj.MaxBet.LessThan(bj.MinBet) {
		return cfg, fmt.Errorf("blackjack.max_bet %s is below min_bet %s", bj.MaxBet, bj.MinBet)
	}
	if rl.MaxBet.LessThan(rl.MinBet) {
		return cfg, fmt.Errorf("roulette.max_bet %s is below min_bet %s", rl.MaxBet, rl.MinBet)
	}
	return cfg, nil
}

func parseAmount(field, raw string, out *decimal.Decimal) error {
	if raw == "" {
		return nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%s must be positive, got %s", field, raw)
	}
	*out = amount
	return nil
}
