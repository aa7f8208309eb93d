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
	"casino-settlement-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type withdrawalRequest struct {
	email       string
	amount      decimal.Decimal
	destination string
}

func parseAndValidateFlags() (*withdrawalRequest, error) {
	emailFlag := flag.String("email", "", "User email (required)")
	amountFlag := flag.String("amount", "", "Amount of SOL to withdraw (required)")
	destinationFlag := flag.String("destination", "", "Destination address (required)")
	flag.Parse()

	if *emailFlag == "" || *amountFlag == "" || *destinationFlag == "" {
		return nil, fmt.Errorf("all flags are required: --email, --amount, --destination")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	return &withdrawalRequest{
		email:       *emailFlag,
		amount:      amount,
		destination: *destinationFlag,
	}, nil
}

func printWithdrawalRequest(user *models.User, req *withdrawalRequest, asset, fiat string) {
	common.PrintHeader("WITHDRAWAL REQUEST", common.DefaultWidth)
	fmt.Printf("User:              %s (%s)\n", user.Name, user.Email)
	fmt.Printf("Crypto Balance:    %s\n", common.FormatAmount(user.BalanceCrypto, 2, fiat))
	fmt.Printf("Withdrawal Amount: %s %s\n", req.amount.String(), asset)
	fmt.Printf("Destination:       %s\n", req.destination)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func printWithdrawalResult(result *models.WithdrawalResult, asset, fiat string) {
	if result.Success {
		common.PrintHeader("WITHDRAWAL SENT", common.DefaultWidth)
	} else {
		common.PrintHeader("WITHDRAWAL NOT COMPLETED", common.DefaultWidth)
	}
	if result.WithdrawalId != "" {
		fmt.Printf("Withdrawal ID:     %s\n", result.WithdrawalId)
		fmt.Printf("Status:            %s\n", result.Status)
	}
	if !result.Amount.IsZero() {
		fmt.Printf("Amount:            %s %s\n", result.Amount.String(), asset)
		fmt.Printf("Value:             %s\n", common.FormatAmount(result.EurAmount, 2, fiat))
		fmt.Printf("Network Fee:       %s\n", common.FormatAmount(result.FeeEur, 6, fiat))
		fmt.Printf("Total Debit:       %s\n", common.FormatAmount(result.TotalDebit, 6, fiat))
	}
	if result.TxHash != "" {
		fmt.Printf("Transaction:       %s\n", result.TxHash)
	}
	if result.NewBalance != nil {
		fmt.Printf("New Crypto Bal.:   %s\n", common.FormatAmount(result.NewBalance.BalanceCrypto, 2, fiat))
	}
	if result.Error != "" {
		fmt.Printf("Reason:            %s\n", result.Error)
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
}

func main() {
	ctx := context.Background()

	req, err := parseAndValidateFlags()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Invalid flags", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		common.InstallFallbackLogger()
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Logging)
	defer loggerCleanup()

	zap.L().Info("Starting withdrawal process",
		zap.String("email", req.email),
		zap.String("amount", req.amount.String()),
		zap.String("destination", req.destination))

	zap.L().Info("Initializing services")
	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	targetUser, err := services.DbService.GetUserByEmail(ctx, req.email)
	if err != nil {
		common.PrintHeader("WITHDRAWAL FAILED", common.DefaultWidth)
		fmt.Printf("Error: User not found for email %s\n", req.email)
		common.PrintSeparator("=", common.DefaultWidth)
		zap.L().Fatal("User not found", zap.String("email", req.email), zap.Error(err))
	}

	asset, fiat := services.ApiService.Asset(), services.ApiService.Fiat()
	printWithdrawalRequest(targetUser, req, asset, fiat)

	result, err := services.Withdrawals.Withdraw(ctx, targetUser.Id, req.destination, req.amount)
	printWithdrawalResult(result, asset, fiat)
	if err != nil {
		zap.L().Error("Withdrawal failed",
			zap.String("user_id", targetUser.Id),
			zap.String("withdrawal_id", result.WithdrawalId),
			zap.String("status", result.Status),
			zap.Error(err))
		return
	}
	if !result.Success {
		zap.L().Warn("Withdrawal rejected",
			zap.String("user_id", targetUser.Id),
			zap.String("reason", result.Error))
		return
	}

	zap.L().Info("Withdrawal completed successfully",
		zap.String("user_id", targetUser.Id),
		zap.String("withdrawal_id", result.WithdrawalId),
		zap.String("amount", req.amount.String()),
		zap.String("tx_hash", result.TxHash))
}
