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

package main

import (
	"context"
	"flag"
	"fmt"

	"casino-settlement-go/internal/chain"
	"casino-settlement-go/internal/common"
	"casino-settlement-go/internal/config"

	"go.uber.org/zap"
)

// checkTreasury reports the treasury balance and whether it can fund the
// rent-exempt minimum of new deposit addresses
func checkTreasury(ctx context.Context, services *common.Services) error {
	address := services.Treasury.Address()

	balance, err := services.Chain.GetBalance(ctx, address)
	if err != nil {
		return fmt.Errorf("failed to read treasury balance: %w", err)
	}
	rent, err := services.Chain.GetMinimumBalanceForRentExemption(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read rent-exempt minimum: %w", err)
	}

	zap.L().Info("Treasury checked",
		zap.String("address", address),
		zap.Uint64("lamports", balance),
		zap.Uint64("rent_exempt_minimum", rent))

	fmt.Printf("Treasury:         %s\n", address)
	fmt.Printf("Balance:          %s SOL\n", chain.LamportsToSOL(balance))
	fmt.Printf("Rent minimum:     %s SOL\n", chain.LamportsToSOL(rent))
	if balance < rent {
		zap.L().Warn("Treasury cannot fund deposit address initialization",
			zap.Uint64("lamports", balance),
			zap.Uint64("needed", rent))
	}
	return nil
}

func checkPrice(ctx context.Context, services *common.Services) {
	asset, fiat := services.ApiService.Asset(), services.ApiService.Fiat()
	quote, err := services.Oracle.SpotPrice(ctx, asset, fiat)
	if err != nil {
		zap.L().Warn("Price oracle unavailable, deposits will queue for conversion", zap.Error(err))
		fmt.Printf("Spot price:       unavailable\n")
		return
	}
	fmt.Printf("Spot price:       1 %s = %s %s\n", asset, quote.String(), fiat)
}

// assignAddresses derives a deposit address for every user that has none yet
func assignAddresses(ctx context.Context, services *common.Services) {
	users, err := services.DbService.GetUsers(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read users from database", zap.Error(err))
	}

	var assigned, existing int
	var failed []string

	for _, user := range users {
		if user.DepositAddress != "" {
			existing++
			continue
		}

		result, err := services.ApiService.GetDepositAddress(ctx, user.Id)
		if err != nil || !result.Success {
			zap.L().Error("Failed to assign deposit address",
				zap.String("user_id", user.Id),
				zap.String("reason", result.Error),
				zap.Error(err))
			failed = append(failed, user.Email)
			continue
		}
		zap.L().Info("Assigned deposit address",
			zap.String("user_id", user.Id),
			zap.Uint32("index", user.Index),
			zap.String("address", result.Address))
		assigned++
	}

	if len(failed) > 0 {
		zap.L().Warn("Address assignment completed with some failures",
			zap.Int("assigned", assigned),
			zap.Int("existing", existing),
			zap.Strings("failed_users", failed))
	} else {
		zap.L().Info("Address assignment completed successfully",
			zap.Int("assigned", assigned),
			zap.Int("existing", existing))
	}
}

func main() {
	ctx := context.Background()

	initFlag := flag.Bool("init", false, "Only create the database schema")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	if *initFlag {
		zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
		dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
		if err != nil {
			zap.L().Fatal("Failed to initialize database", zap.Error(err))
		}
		dbService.Close()
		zap.L().Info("Initialization complete")
		return
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	common.PrintHeader("SETUP CHECK", common.DefaultWidth)
	if err := checkTreasury(ctx, services); err != nil {
		zap.L().Fatal("Treasury check failed", zap.Error(err))
	}
	checkPrice(ctx, services)
	fmt.Printf("Blackjack:        enabled=%t, bets %s-%s\n", services.Games.Blackjack.Enabled,
		services.Games.Blackjack.MinBet, services.Games.Blackjack.MaxBet)
	fmt.Printf("Roulette:         enabled=%t, bets %s-%s\n", services.Games.Roulette.Enabled,
		services.Games.Roulette.MinBet, services.Games.Roulette.MaxBet)
	common.PrintSeparator("=", common.DefaultWidth)

	assignAddresses(ctx, services)
}
