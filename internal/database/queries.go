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

package database

const userColumns = `id, user_index, name, email, balance_fiat, balance_crypto, deposit_address, version, created_at, updated_at`

const (
	// User queries
	queryGetActiveUsers = `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = 1
		ORDER BY user_index`

	queryInsertUser = `
		INSERT INTO users (id, user_index, name, email)
		VALUES (?, (SELECT COALESCE(MAX(user_index), 0) + 1 FROM users), ?, ?)
		RETURNING ` + userColumns

	queryInsertDummyUser = `
		INSERT OR IGNORE INTO users (id, user_index, name, email)
		VALUES (?, (SELECT COALESCE(MAX(user_index), 0) + 1 FROM users), ?, ?)`

	queryGetUserById = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = ? AND active = 1`

	queryGetUserByEmail = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = ? AND active = 1`

	queryUpdateUserBalance = `
		UPDATE users
		SET balance_fiat = ?, balance_crypto = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`

	// Deposit address queries
	queryGetUsersWithDepositAddress = `
		SELECT ` + userColumns + `
		FROM users
		WHERE active = 1 AND deposit_address != ''
		ORDER BY user_index`

	queryAssignDepositAddress = `
		UPDATE users
		SET deposit_address = ?, updated_at = ?
		WHERE id = ? AND deposit_address = ''`

	queryGetDepositAddress = `
		SELECT deposit_address FROM users WHERE id = ?`

	// Game session queries
	sessionColumns = `id, user_id, game_type, bet_amount, result, win_amount, balance_before, balance_after, settled, details, created_at, settled_at`

	queryInsertGameSession = `
		INSERT INTO game_sessions (id, user_id, game_type, bet_amount, result, win_amount, balance_before, balance_after, settled, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`

	queryGetGameSession = `
		SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE id = ?`

	queryGetUserGameSessions = `
		SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetOpenGameSessions = `
		SELECT ` + sessionColumns + `
		FROM game_sessions
		WHERE user_id = ? AND game_type = ? AND settled = 0
		ORDER BY created_at, rowid`

	querySettleGameSession = `
		UPDATE game_sessions
		SET result = ?, win_amount = ?, balance_after = ?, details = ?, settled = 1, settled_at = ?
		WHERE id = ? AND settled = 0`

	// Deposit queries
	depositColumns = `id, user_id, eur_amount, network, deposit_address, source_address, asset, amount, lamports, tx_hash, sweep_tx_hash, price, status, details, created_at`

	queryCheckDuplicateDeposit = `
		SELECT id FROM deposits WHERE tx_hash = ?`

	queryInsertDeposit = `
		INSERT INTO deposits (` + depositColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetDeposit = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE id = ?`

	queryGetPendingDeposits = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE status = 'pending_price'
		ORDER BY created_at`

	queryMarkDepositCredited = `
		UPDATE deposits
		SET status = 'credited', price = ?, eur_amount = ?
		WHERE id = ? AND status = 'pending_price'`

	queryGetUserDeposits = `
		SELECT ` + depositColumns + `
		FROM deposits
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	// Withdrawal queries
	withdrawalColumns = `id, user_id, target_address, asset, amount, eur_amount, fee_eur, status, tx_hash, reason, created_at, updated_at`

	queryInsertWithdrawal = `
		INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetWithdrawal = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE id = ?`

	queryUpdateWithdrawalStatus = `
		UPDATE withdrawals
		SET status = ?, tx_hash = COALESCE(NULLIF(?, ''), tx_hash), reason = ?, updated_at = ?
		WHERE id = ? AND status != 'sent'`

	queryGetUserWithdrawals = `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetReservedWithdrawals = `
		SELECT eur_amount, fee_eur
		FROM withdrawals
		WHERE user_id = ? AND status = 'approved'`

	// Subledger queries
	queryInsertTransaction = `
		INSERT INTO transactions (id, user_id, transaction_type, fiat_delta, crypto_delta, balance_before, balance_after, reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryInsertJournalEntry = `
		INSERT INTO journal_entries (id, transaction_id, account_type, account_id, debit_amount, credit_amount)
		VALUES (?, ?, ?, ?, ?, ?)`

	queryGetTransactionHistory = `
		SELECT id, user_id, transaction_type, fiat_delta, crypto_delta, balance_before, balance_after, reference, created_at
		FROM transactions
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?`

	queryGetTransactionDeltas = `
		SELECT fiat_delta, crypto_delta
		FROM transactions
		WHERE user_id = ?`

	// Audit queries
	queryInsertAuditLog = `
		INSERT INTO audit_logs (id, user_id, action, details, created_at)
		VALUES (?, ?, ?, ?, ?)`
)
