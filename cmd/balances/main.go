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

	"casino-settlement-go/internal/common"
	"casino-settlement-go/internal/config"
	"casino-settlement-go/internal/database"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers       int
	usersWithBalance int
	mismatches       int
}

func printUserHeader(user common.UserInfo) {
	fmt.Printf("\n┌─ User: %s (%s)\n", user.Name, user.Email)
	fmt.Printf("│  ID: %s\n", user.Id)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, user common.UserInfo, dbService *database.Service, reconcile bool) (bool, bool, error) {
	u, err := dbService.GetUserById(ctx, user.Id)
	if err != nil {
		return false, false, fmt.Errorf("failed to get balance: %w", err)
	}

	printUserHeader(user)
	common.PrintField("Fiat", common.FormatAmount(u.BalanceFiat, 2, "EUR"), false)
	common.PrintField("Crypto", common.FormatAmount(u.BalanceCrypto, 2, "EUR"), false)

	matched := true
	if reconcile {
		common.PrintField("Total", common.FormatAmount(u.Total(), 2, "EUR"), false)
		if err := dbService.ReconcileUserBalance(ctx, user.Id); err != nil {
			matched = false
			common.PrintField("Subledger", "MISMATCH", true)
		} else {
			common.PrintField("Subledger", "ok", true)
		}
	} else {
		common.PrintField("Total", common.FormatAmount(u.Total(), 2, "EUR"), true)
	}

	return u.Total().IsPositive(), matched, nil
}

func processUsersAndGenerateReport(ctx context.Context, users []common.UserInfo, dbService *database.Service, reconcile bool) balanceStats {
	stats := balanceStats{}

	for _, user := range users {
		stats.totalUsers++

		hasBalance, matched, err := processUser(ctx, user, dbService, reconcile)
		if err != nil {
			zap.L().Error("Failed to process user",
				zap.String("user_id", user.Id),
				zap.String("user_name", user.Name),
				zap.Error(err))
			continue
		}

		if hasBalance {
			stats.usersWithBalance++
		}
		if !matched {
			stats.mismatches++
		}
	}

	return stats
}

func main() {
	ctx := context.Background()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	reconcileFlag := flag.Bool("reconcile", true, "Check stored balances against the subledger")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	zap.L().Info("Starting balance query")

	// Read-only: no chain access needed
	zap.L().Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	users, err := common.InitializeUsers(ctx, dbService, *emailFlag)
	if err != nil {
		zap.L().Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.DefaultWidth)

	stats := processUsersAndGenerateReport(ctx, users, dbService, *reconcileFlag)

	summary := fmt.Sprintf("SUMMARY: %d of %d users hold a balance, %d subledger mismatches",
		stats.usersWithBalance, stats.totalUsers, stats.mismatches)
	common.PrintFooter(summary, common.DefaultWidth)

	zap.L().Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balance", stats.usersWithBalance),
		zap.Int("mismatches", stats.mismatches))
}
