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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// UserBalance represents a user's dual balance
type UserBalance struct {
	UserId        string          `json:"user_id"`
	BalanceFiat   decimal.Decimal `json:"balance_fiat"`
	BalanceCrypto decimal.Decimal `json:"balance_crypto"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

// NewUserBalance snapshots the balance fields of a user
func NewUserBalance(u *User) UserBalance {
	return UserBalance{
		UserId:        u.Id,
		BalanceFiat:   u.BalanceFiat,
		BalanceCrypto: u.BalanceCrypto,
		TotalBalance:  u.Total(),
	}
}

// TransactionRecord represents a balance mutation in the user's history
type TransactionRecord struct {
	Id           string          `json:"id"`
	Type         string          `json:"type"`
	FiatDelta    decimal.Decimal `json:"fiat_delta"`
	CryptoDelta  decimal.Decimal `json:"crypto_delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Reference    string          `json:"reference,omitempty"`
	ProcessedAt  time.Time       `json:"processed_at"`
}

// DepositParams describes a swept inbound transfer ready to be credited
type DepositParams struct {
	UserId         string
	DepositAddress string
	SourceAddress  string
	Network        string
	Asset          string
	Lamports       uint64
	Amount         decimal.Decimal
	TxHash         string
	SweepTxHash    string
	// Price is zero when neither a live nor a last-known quote was available.
	Price   decimal.Decimal
	Details string
}

// DepositResult represents the result of processing a deposit
type DepositResult struct {
	Success    bool            `json:"success"`
	DepositId  string          `json:"deposit_id,omitempty"`
	UserId     string          `json:"user_id,omitempty"`
	Asset      string          `json:"asset,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	EurAmount  decimal.Decimal `json:"eur_amount,omitempty"`
	Pending    bool            `json:"pending,omitempty"`
	Duplicate  bool            `json:"duplicate,omitempty"`
	NewBalance decimal.Decimal `json:"new_balance,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// WithdrawalResult represents the result of a withdrawal request
type WithdrawalResult struct {
	Success      bool            `json:"success"`
	WithdrawalId string          `json:"withdrawal_id,omitempty"`
	TxHash       string          `json:"tx_hash,omitempty"`
	Amount       decimal.Decimal `json:"amount,omitempty"`
	EurAmount    decimal.Decimal `json:"eur_amount,omitempty"`
	FeeEur       decimal.Decimal `json:"fee_eur,omitempty"`
	TotalDebit   decimal.Decimal `json:"total_debit,omitempty"`
	NewBalance   *UserBalance    `json:"new_balance,omitempty"`
	Status       string          `json:"status,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// DepositAddressResult is returned when a user asks where to deposit
type DepositAddressResult struct {
	Success bool   `json:"success"`
	UserId  string `json:"user_id,omitempty"`
	Address string `json:"address,omitempty"`
	Network string `json:"network,omitempty"`
	Asset   string `json:"asset,omitempty"`
	Error   string `json:"error,omitempty"`
}
