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
	"casino-settlement-go/internal/wallet"

	"go.uber.org/zap"
)

type reportStats struct {
	totalUsers         int
	usersWithAddresses int
	mismatched         int
}

// addressCheck is the outcome of re-deriving a stored address
type addressCheck string

const (
	checkSkipped  addressCheck = "not verified"
	checkOk       addressCheck = "✓ matches derivation"
	checkMismatch addressCheck = "✗ DOES NOT MATCH derivation"
)

func verifyAddress(deriver *wallet.Deriver, user common.UserInfo) (addressCheck, error) {
	if deriver == nil {
		return checkSkipped, nil
	}
	derived, err := deriver.AddressFor(user.Index)
	if err != nil {
		return checkSkipped, fmt.Errorf("failed to derive address: %w", err)
	}
	if derived != user.DepositAddress {
		return checkMismatch, nil
	}
	return checkOk, nil
}

func printUser(user common.UserInfo, check addressCheck, isLast bool) {
	symbol := common.BoxPrefix(isLast)
	fmt.Printf("%s %-36s #%-6d → %s\n", symbol, user.Email, user.Index, user.DepositAddress)

	detailSymbol := common.BoxDetailPrefix(isLast)
	fmt.Printf("%s   %s\n", detailSymbol, check)
}

func processUsersAndGenerateReport(users []common.UserInfo, deriver *wallet.Deriver) reportStats {
	stats := reportStats{}

	var withAddress []common.UserInfo
	for _, user := range users {
		stats.totalUsers++
		if user.DepositAddress != "" {
			withAddress = append(withAddress, user)
		}
	}
	stats.usersWithAddresses = len(withAddress)

	common.PrintBoxSeparator(98)
	for i, user := range withAddress {
		check, err := verifyAddress(deriver, user)
		if err != nil {
			zap.L().Error("Failed to verify address",
				zap.String("user_id", user.Id),
				zap.Uint32("index", user.Index),
				zap.Error(err))
		}
		if check == checkMismatch {
			stats.mismatched++
			zap.L().Error("Stored deposit address does not match derivation",
				zap.String("user_id", user.Id),
				zap.String("address", user.DepositAddress))
		}
		printUser(user, check, i == len(withAddress)-1)
	}

	return stats
}

func main() {
	ctx := context.Background()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	verifyFlag := flag.Bool("verify", true, "Re-derive each address from DEPOSIT_MNEMONIC and compare")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	zap.L().Info("Starting address query")

	var deriver *wallet.Deriver
	if *verifyFlag {
		if cfg.Chain.Mnemonic == "" {
			zap.L().Warn("DEPOSIT_MNEMONIC not set, addresses will not be verified")
		} else if deriver, err = wallet.NewDeriver(cfg.Chain.Mnemonic); err != nil {
			zap.L().Fatal("Invalid deposit mnemonic", zap.Error(err))
		}
	}

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

	common.PrintHeader("DEPOSIT ADDRESSES REPORT", common.WideWidth)

	stats := processUsersAndGenerateReport(users, deriver)

	summary := fmt.Sprintf("SUMMARY: %d of %d users have a deposit address, %d mismatched",
		stats.usersWithAddresses, stats.totalUsers, stats.mismatched)
	common.PrintFooter(summary, common.WideWidth)

	zap.L().Info("Address query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_addresses", stats.usersWithAddresses),
		zap.Int("mismatched", stats.mismatched))
}
