/*
Copyright 2025 Ledgerkeep Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/model"
)

// RecordReconciliationSession persists a new session together with any
// matches accepted automatically at upload time. The session row and its
// match rows commit atomically: a crash mid-upload leaves no session whose
// counters disagree with its match rows.
func (d Datasource) RecordReconciliationSession(ctx context.Context, session *model.ReconciliationSession, autoMatches []model.Match) error {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Saving reconciliation session to db")
	defer span.End()

	entriesJSON, err := json.Marshal(session.BankEntries)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to serialize bank entries", err)
	}

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recon.reconciliation_sessions(
			reconciliation_session_id, company_id, account_id, account_name,
			statement_date, opening_balance, closing_balance, auto_match,
			bank_entries, status, matched_count, unmatched_count,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		session.SessionID, session.CompanyID, session.AccountID, session.AccountName,
		session.StatementDate, session.OpeningBalance, session.ClosingBalance, session.AutoMatch,
		entriesJSON, session.Status, session.MatchedCount, session.UnmatchedCount,
		session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to record reconciliation session", err)
	}

	for _, m := range autoMatches {
		if err := insertMatch(ctx, tx, &m); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to commit reconciliation session", err)
	}
	return nil
}

func insertMatch(ctx context.Context, tx *sql.Tx, m *model.Match) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO recon.reconciliation_matches(
			match_id, reconciliation_session_id, bank_entry_id, transaction_id,
			confidence_score, match_type, matched_at, matched_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.MatchID, m.SessionID, m.BankEntryID, m.TransactionID,
		m.ConfidenceScore, m.MatchType, m.MatchedAt, m.MatchedBy,
	)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to record match", err)
	}
	return nil
}

const sessionColumns = `reconciliation_session_id, company_id, account_id, account_name,
		statement_date, opening_balance, closing_balance, auto_match,
		bank_entries, status, matched_count, unmatched_count,
		created_at, updated_at, completed_at, completed_by, notes`

// GetReconciliationSession retrieves a session with its embedded entries.
func (d Datasource) GetReconciliationSession(ctx context.Context, sessionID string) (*model.ReconciliationSession, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching reconciliation session from db")
	defer span.End()

	row := d.Conn.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM recon.reconciliation_sessions
		WHERE reconciliation_session_id = $1
	`, sessionID)

	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("reconciliation session %s not found", sessionID), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch reconciliation session", err)
	}
	return session, nil
}

// GetReconciliationSessions lists a company's sessions, newest first.
func (d Datasource) GetReconciliationSessions(ctx context.Context, companyID string, limit, offset int) ([]*model.ReconciliationSession, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching reconciliation sessions from db")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM recon.reconciliation_sessions
		WHERE company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, companyID, limit, offset)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch reconciliation sessions", err)
	}
	defer rows.Close()

	sessions := []*model.ReconciliationSession{}
	for rows.Next() {
		session, err := scanSessionRow(rows)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan reconciliation session", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to iterate reconciliation sessions", err)
	}
	return sessions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSessionRow(row rowScanner) (*model.ReconciliationSession, error) {
	session := &model.ReconciliationSession{}
	var entriesJSON []byte
	var completedAt sql.NullTime
	var completedBy, notes sql.NullString

	err := row.Scan(
		&session.SessionID, &session.CompanyID, &session.AccountID, &session.AccountName,
		&session.StatementDate, &session.OpeningBalance, &session.ClosingBalance, &session.AutoMatch,
		&entriesJSON, &session.Status, &session.MatchedCount, &session.UnmatchedCount,
		&session.CreatedAt, &session.UpdatedAt, &completedAt, &completedBy, &notes,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(entriesJSON, &session.BankEntries); err != nil {
		return nil, errors.Wrap(err, "corrupt bank entries payload")
	}
	if completedAt.Valid {
		session.CompletedAt = &completedAt.Time
	}
	session.CompletedBy = completedBy.String
	session.Notes = notes.String
	return session, nil
}

// RecordSessionMatches records manual matches against an in-progress
// session and returns how many rows were actually inserted.
//
// The whole batch is validated against the locked session before any row is
// written: an unknown bank entry or ledger transaction rejects the batch.
// Entries that already carry a match are silently skipped by the unique
// constraint, so re-submission is safe and the counters only move by rows
// actually inserted.
func (d Datasource) RecordSessionMatches(ctx context.Context, sessionID string, matches []model.Match) (int, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Saving session matches to db")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	session, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return 0, err
	}
	if session.Status == model.StatusCompleted {
		return 0, apierror.NewAPIError(apierror.ErrInvalidState,
			"cannot record matches on a completed reconciliation session", nil)
	}

	if err := validateMatchBatch(ctx, tx, session, matches); err != nil {
		return 0, err
	}

	inserted := 0
	for _, m := range matches {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO recon.reconciliation_matches(
				match_id, reconciliation_session_id, bank_entry_id, transaction_id,
				confidence_score, match_type, matched_at, matched_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (reconciliation_session_id, bank_entry_id) DO NOTHING`,
			m.MatchID, sessionID, m.BankEntryID, m.TransactionID,
			m.ConfidenceScore, m.MatchType, m.MatchedAt, m.MatchedBy,
		)
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "failed to record match", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return 0, apierror.NewAPIError(apierror.ErrInternalServer, "failed to read match insert result", err)
		}
		if rows == 1 {
			entry := session.Entry(m.BankEntryID)
			entry.Matched = true
			entry.MatchedTransactionID = m.TransactionID
			inserted++
		}
	}

	if inserted > 0 {
		if err := updateSessionEntries(ctx, tx, session, inserted); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apierror.NewAPIError(apierror.ErrInternalServer, "failed to commit session matches", err)
	}
	return inserted, nil
}

// lockSession fetches a session's mutable state under FOR UPDATE so that
// concurrent match and unmatch calls serialize on the session row.
func lockSession(ctx context.Context, tx *sql.Tx, sessionID string) (*model.ReconciliationSession, error) {
	var entriesJSON []byte
	session := &model.ReconciliationSession{SessionID: sessionID}
	err := tx.QueryRowContext(ctx, `
		SELECT status, bank_entries, matched_count, unmatched_count
		FROM recon.reconciliation_sessions
		WHERE reconciliation_session_id = $1
		FOR UPDATE
	`, sessionID).Scan(&session.Status, &entriesJSON, &session.MatchedCount, &session.UnmatchedCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("reconciliation session %s not found", sessionID), nil)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to lock reconciliation session", err)
	}
	if err := json.Unmarshal(entriesJSON, &session.BankEntries); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "corrupt bank entries payload", err)
	}
	return session, nil
}

func validateMatchBatch(ctx context.Context, tx *sql.Tx, session *model.ReconciliationSession, matches []model.Match) error {
	transactionIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		if session.Entry(m.BankEntryID) == nil {
			return apierror.NewAPIError(apierror.ErrNotFound,
				fmt.Sprintf("bank entry %s not found in session %s", m.BankEntryID, session.SessionID), nil)
		}
		transactionIDs = append(transactionIDs, m.TransactionID)
	}

	var known int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT transaction_id) FROM ledger_transactions
		WHERE transaction_id = ANY($1)
	`, pq.Array(transactionIDs)).Scan(&known)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to verify ledger transactions", err)
	}
	if known != len(uniqueStrings(transactionIDs)) {
		return apierror.NewAPIError(apierror.ErrNotFound,
			"one or more ledger transactions in the match batch do not exist", nil)
	}
	return nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// updateSessionEntries rewrites the embedded entries and shifts the
// counters by the number of matches added (positive) or removed (negative).
func updateSessionEntries(ctx context.Context, tx *sql.Tx, session *model.ReconciliationSession, delta int) error {
	entriesJSON, err := json.Marshal(session.BankEntries)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to serialize bank entries", err)
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE recon.reconciliation_sessions
		SET bank_entries = $2,
			matched_count = matched_count + $3,
			unmatched_count = unmatched_count - $3,
			updated_at = NOW()
		WHERE reconciliation_session_id = $1
	`, session.SessionID, entriesJSON, delta)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to update reconciliation session", err)
	}
	return nil
}

// DeleteSessionMatch removes the match on one bank entry and reports
// whether a match row was actually deleted. Removing a match from an entry
// that has none is a no-op.
func (d Datasource) DeleteSessionMatch(ctx context.Context, sessionID, bankEntryID string) (bool, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Deleting session match from db")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	session, err := lockSession(ctx, tx, sessionID)
	if err != nil {
		return false, err
	}
	if session.Status == model.StatusCompleted {
		return false, apierror.NewAPIError(apierror.ErrInvalidState,
			"cannot unmatch entries on a completed reconciliation session", nil)
	}
	entry := session.Entry(bankEntryID)
	if entry == nil {
		return false, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("bank entry %s not found in session %s", bankEntryID, sessionID), nil)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM recon.reconciliation_matches
		WHERE reconciliation_session_id = $1 AND bank_entry_id = $2
	`, sessionID, bankEntryID)
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to delete match", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to read match delete result", err)
	}

	if rows == 1 {
		entry.Matched = false
		entry.MatchedTransactionID = ""
		if err := updateSessionEntries(ctx, tx, session, -1); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, apierror.NewAPIError(apierror.ErrInternalServer, "failed to commit unmatch", err)
	}
	return rows == 1, nil
}

// CompleteReconciliationSession transitions a session to completed and
// flags every matched ledger transaction reconciled in the same database
// transaction. The status predicate on the UPDATE makes the transition
// first-writer-wins under concurrent completion attempts.
func (d Datasource) CompleteReconciliationSession(ctx context.Context, sessionID, completedBy, notes string) (*model.ReconciliationSession, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Completing reconciliation session")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to begin transaction", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	row := tx.QueryRowContext(ctx, `
		UPDATE recon.reconciliation_sessions
		SET status = $2, completed_at = NOW(), completed_by = $3, notes = $4, updated_at = NOW()
		WHERE reconciliation_session_id = $1 AND status = $5
		RETURNING `+sessionColumns+`
	`, sessionID, model.StatusCompleted, completedBy, notes, model.StatusInProgress)

	session, err := scanSessionRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, d.completeConflict(ctx, sessionID)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to complete reconciliation session", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE ledger_transactions
		SET is_reconciled = TRUE,
			reconciled_at = NOW(),
			reconciled_by = $2,
			reconciliation_session_id = $1
		WHERE transaction_id IN (
			SELECT transaction_id FROM recon.reconciliation_matches
			WHERE reconciliation_session_id = $1
		)
	`, sessionID, completedBy)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to flag transactions reconciled", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to commit completion", err)
	}
	return session, nil
}

// completeConflict classifies a failed completion: the session either does
// not exist or has already been completed.
func (d Datasource) completeConflict(ctx context.Context, sessionID string) error {
	var status string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT status FROM recon.reconciliation_sessions WHERE reconciliation_session_id = $1
	`, sessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("reconciliation session %s not found", sessionID), nil)
	}
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to check session status", err)
	}
	return apierror.NewAPIError(apierror.ErrInvalidState,
		fmt.Sprintf("reconciliation session %s is already %s", sessionID, status), nil)
}

// DeleteReconciliationSession removes an in-progress session; its match
// rows go with it via the foreign key cascade.
func (d Datasource) DeleteReconciliationSession(ctx context.Context, sessionID string) error {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Deleting reconciliation session")
	defer span.End()

	res, err := d.Conn.ExecContext(ctx, `
		DELETE FROM recon.reconciliation_sessions
		WHERE reconciliation_session_id = $1 AND status = $2
	`, sessionID, model.StatusInProgress)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to delete reconciliation session", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to read delete result", err)
	}
	if rows == 0 {
		return d.deleteConflict(ctx, sessionID)
	}
	return nil
}

func (d Datasource) deleteConflict(ctx context.Context, sessionID string) error {
	var status string
	err := d.Conn.QueryRowContext(ctx, `
		SELECT status FROM recon.reconciliation_sessions WHERE reconciliation_session_id = $1
	`, sessionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("reconciliation session %s not found", sessionID), nil)
	}
	if err != nil {
		return apierror.NewAPIError(apierror.ErrInternalServer, "failed to check session status", err)
	}
	return apierror.NewAPIError(apierror.ErrInvalidState,
		"completed reconciliation sessions cannot be deleted", nil)
}

// GetMatchesBySessionID retrieves all match rows for a session.
func (d Datasource) GetMatchesBySessionID(ctx context.Context, sessionID string) ([]*model.Match, error) {
	ctx, span := otel.Tracer("Reconciliation").Start(ctx, "Fetching matches by session ID")
	defer span.End()

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT match_id, reconciliation_session_id, bank_entry_id, transaction_id,
			confidence_score, match_type, matched_at, matched_by
		FROM recon.reconciliation_matches
		WHERE reconciliation_session_id = $1
		ORDER BY matched_at
	`, sessionID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to fetch matches", err)
	}
	defer rows.Close()

	matches := []*model.Match{}
	for rows.Next() {
		m := &model.Match{}
		var matchedBy sql.NullString
		err := rows.Scan(&m.MatchID, &m.SessionID, &m.BankEntryID, &m.TransactionID,
			&m.ConfidenceScore, &m.MatchType, &m.MatchedAt, &matchedBy)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to scan match", err)
		}
		m.MatchedBy = matchedBy.String
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "failed to iterate matches", err)
	}
	return matches, nil
}
