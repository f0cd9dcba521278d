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

const (
	// User queries
	queryGetUsers = `
		SELECT id, name, email, age, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users
		ORDER BY created_at, rowid`

	queryInsertUser = `
		INSERT INTO users (id, name, email, age, referral_code, referred_by, is_admin, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, age, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryGetUserByEmail = `
		SELECT id, name, email, age, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users
		WHERE email = ?`

	queryGetUserByReferralCode = `
		SELECT id, name, email, age, referral_code, referred_by, is_admin, created_at, updated_at
		FROM users
		WHERE referral_code = ?`

	queryCountUsers = `
		SELECT COUNT(*) FROM users`

	queryDeleteUser = `
		DELETE FROM users WHERE id = ?`

	queryDeleteUserDeposits = `
		DELETE FROM deposits WHERE user_id = ?`

	queryDeleteUserAccount = `
		DELETE FROM account_balances WHERE user_id = ?`

	// Balance queries
	queryInsertAccountBalance = `
		INSERT INTO account_balances (user_id, balance, last_entry_id, version, updated_at)
		VALUES (?, '0', '', 1, ?)`

	queryGetAccountBalance = `
		SELECT user_id, balance, last_entry_id, version, updated_at
		FROM account_balances
		WHERE user_id = ?`

	queryUpdateAccountBalance = `
		UPDATE account_balances
		SET balance = ?, last_entry_id = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND version = ?`

	queryReconcileEntries = `
		SELECT amount, fee
		FROM ledger_entries
		WHERE user_id = ?
		ORDER BY seq`

	// Deposit queries
	queryInsertDeposit = `
		INSERT INTO deposits (
			id, user_id, principal, accrued, term_days, days_passed,
			last_interest_date, status, version, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryUpdateDeposit = `
		UPDATE deposits
		SET accrued = ?, days_passed = ?, last_interest_date = ?, status = ?,
		    completed_at = ?, version = version + 1
		WHERE id = ? AND version = ? AND status = 'active'`

	queryGetDepositStatus = `
		SELECT status, version FROM deposits WHERE id = ?`

	queryGetDeposit = `
		SELECT id, user_id, principal, accrued, term_days, days_passed,
		       last_interest_date, status, version, created_at, completed_at
		FROM deposits
		WHERE id = ?`

	queryGetLatestDeposit = `
		SELECT id, user_id, principal, accrued, term_days, days_passed,
		       last_interest_date, status, version, created_at, completed_at
		FROM deposits
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`

	queryGetUserDeposits = `
		SELECT id, user_id, principal, accrued, term_days, days_passed,
		       last_interest_date, status, version, created_at, completed_at
		FROM deposits
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC`

	queryGetActiveDeposits = `
		SELECT id, user_id, principal, accrued, term_days, days_passed,
		       last_interest_date, status, version, created_at, completed_at
		FROM deposits
		WHERE status = 'active'
		ORDER BY created_at, rowid`

	// Ledger queries
	queryInsertLedgerEntry = `
		INSERT INTO ledger_entries (
			id, user_id, deposit_id, entry_type, amount, fee, balance_before, balance_after,
			description, status, source, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryLedgerEntryColumns = `
		SELECT seq, id, user_id, deposit_id, entry_type, amount, fee, balance_before, balance_after,
		       description, status, source, created_at
		FROM ledger_entries`

	queryGetLedgerEntry = queryLedgerEntryColumns + `
		WHERE id = ?`

	queryUpdateEntryStatus = `
		UPDATE ledger_entries SET status = ? WHERE id = ? AND status = ?`

	queryGetPendingWithdrawals = queryLedgerEntryColumns + `
		WHERE entry_type = 'withdraw' AND status = 'pending' AND created_at <= ?
		ORDER BY seq`
)
