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

package ledgerkeep

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerkeep/ledgerkeep/config"
	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/internal/audit"
	"github.com/ledgerkeep/ledgerkeep/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("ledgerkeep.reconciliation")

const reportCacheTTL = 24 * time.Hour

// UploadInput is everything the engine needs to open a reconciliation
// session from a raw statement file.
type UploadInput struct {
	CompanyID      string
	AccountID      string
	Filename       string
	Data           []byte
	StatementDate  time.Time
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	AutoMatch      bool
	UploadedBy     string
}

// UploadResult is the upload response: the persisted session plus the
// ephemeral candidate suggestions. The suggestion list covers every entry,
// auto-matched ones included, so a reviewer can inspect what the scorer saw.
type UploadResult struct {
	Session          *model.ReconciliationSession `json:"session"`
	Suggestions      []model.EntryMatches         `json:"suggestions"`
	AutoMatchedCount int                          `json:"auto_matched_count"`
	SkippedRows      []SkippedRow                 `json:"skipped_rows,omitempty"`
}

// UploadStatement parses a statement, opens a reconciliation session and
// runs candidate matching over the parsed entries. With AutoMatch enabled,
// entries whose top candidate scores at or above the auto-match threshold
// are matched immediately with the uploader as actor; everything else is
// returned as suggestions for manual review.
//
// A ledger transaction is only auto-matched once per upload even when it is
// the top candidate of several entries.
func (l *Ledgerkeep) UploadStatement(ctx context.Context, input UploadInput) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "UploadStatement")
	defer span.End()

	account, err := l.datasource.GetAccount(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}
	if account.CompanyID != input.CompanyID {
		return nil, apierror.NewAPIError(apierror.ErrNotFound,
			fmt.Sprintf("account %s not found", input.AccountID), nil)
	}

	format := DetectFormat(input.Filename, input.Data)
	parsed, err := ParseStatement(format, input.Data)
	if err != nil {
		return nil, err
	}

	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	session := &model.ReconciliationSession{
		SessionID:      model.GenerateUUIDWithSuffix("recon"),
		CompanyID:      input.CompanyID,
		AccountID:      account.AccountID,
		AccountName:    account.Name,
		StatementDate:  input.StatementDate,
		OpeningBalance: input.OpeningBalance,
		ClosingBalance: input.ClosingBalance,
		AutoMatch:      input.AutoMatch,
		BankEntries:    parsed.Entries,
		Status:         model.StatusInProgress,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	suggestions, err := l.FindMatches(ctx, session.BankEntries, input.CompanyID, cnf.Reconciliation.DateWindowDays)
	if err != nil {
		return nil, err
	}

	var autoMatches []model.Match
	if input.AutoMatch {
		autoMatches = acceptAutoMatches(session, suggestions, input.UploadedBy)
	}
	session.MatchedCount = len(autoMatches)
	session.UnmatchedCount = len(session.BankEntries) - session.MatchedCount

	if err := l.datasource.RecordReconciliationSession(ctx, session, autoMatches); err != nil {
		return nil, err
	}

	l.postSessionActions(ctx, audit.ActionSessionCreated, session, input.UploadedBy)

	return &UploadResult{
		Session:          session,
		Suggestions:      suggestions,
		AutoMatchedCount: len(autoMatches),
		SkippedRows:      parsed.SkippedRows,
	}, nil
}

// acceptAutoMatches walks the suggestion list in entry order and accepts
// each top candidate that clears the auto-match threshold, marking the
// embedded entries matched. A ledger transaction claimed by an earlier
// entry is skipped for later ones; those fall through to their next
// qualifying candidate or stay unmatched.
func acceptAutoMatches(session *model.ReconciliationSession, suggestions []model.EntryMatches, actor string) []model.Match {
	matches := make([]model.Match, 0)
	claimed := make(map[string]bool)

	for _, entryMatches := range suggestions {
		for _, candidate := range entryMatches.Suggestions {
			if candidate.ConfidenceScore < AutoMatchThreshold {
				break
			}
			if claimed[candidate.TransactionID] {
				continue
			}
			entry := session.Entry(entryMatches.BankEntryID)
			entry.Matched = true
			entry.MatchedTransactionID = candidate.TransactionID
			claimed[candidate.TransactionID] = true
			matches = append(matches, model.Match{
				MatchID:         model.GenerateUUIDWithSuffix("match"),
				SessionID:       session.SessionID,
				BankEntryID:     entryMatches.BankEntryID,
				TransactionID:   candidate.TransactionID,
				ConfidenceScore: candidate.ConfidenceScore,
				MatchType:       model.MatchTypeAutomatic,
				MatchedAt:       time.Now(),
				MatchedBy:       actor,
			})
			break
		}
	}
	return matches
}

// GetReconciliationSession fetches one session with its embedded entries.
func (l *Ledgerkeep) GetReconciliationSession(ctx context.Context, sessionID string) (*model.ReconciliationSession, error) {
	ctx, span := tracer.Start(ctx, "GetReconciliationSession")
	defer span.End()
	return l.datasource.GetReconciliationSession(ctx, sessionID)
}

// GetReconciliationSessions lists a company's sessions, newest first.
func (l *Ledgerkeep) GetReconciliationSessions(ctx context.Context, companyID string, limit, offset int) ([]*model.ReconciliationSession, error) {
	ctx, span := tracer.Start(ctx, "GetReconciliationSessions")
	defer span.End()
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return l.datasource.GetReconciliationSessions(ctx, companyID, limit, offset)
}

// MatchEntries records manual matches against an in-progress session. The
// whole batch is validated before any row is written: an unknown bank entry
// rejects the request without partial effect. Re-submitting an existing
// pairing is a no-op, so retries are safe.
func (l *Ledgerkeep) MatchEntries(ctx context.Context, sessionID string, inputs []model.ManualMatchInput, matchedBy string) (*model.ReconciliationSession, error) {
	ctx, span := tracer.Start(ctx, "MatchEntries")
	defer span.End()

	if len(inputs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "no matches provided", nil)
	}

	matches := make([]model.Match, 0, len(inputs))
	for _, in := range inputs {
		if in.BankEntryID == "" || in.TransactionID == "" {
			return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
				"bank_entry_id and transaction_id are required on every match", nil)
		}
		matches = append(matches, model.Match{
			MatchID:         model.GenerateUUIDWithSuffix("match"),
			SessionID:       sessionID,
			BankEntryID:     in.BankEntryID,
			TransactionID:   in.TransactionID,
			ConfidenceScore: in.ConfidenceScore,
			MatchType:       model.MatchTypeManual,
			MatchedAt:       time.Now(),
			MatchedBy:       matchedBy,
		})
	}

	inserted, err := l.datasource.RecordSessionMatches(ctx, sessionID, matches)
	if err != nil {
		return nil, err
	}
	if inserted < len(matches) {
		logrus.WithField("reconciliation_session_id", sessionID).
			Infof("%d of %d matches already recorded", len(matches)-inserted, len(matches))
	}

	return l.datasource.GetReconciliationSession(ctx, sessionID)
}

// UnmatchEntry removes the match on one bank entry, returning it to the
// unmatched pool. Unmatching an already-unmatched entry is a no-op.
func (l *Ledgerkeep) UnmatchEntry(ctx context.Context, sessionID, bankEntryID string) (*model.ReconciliationSession, error) {
	ctx, span := tracer.Start(ctx, "UnmatchEntry")
	defer span.End()

	removed, err := l.datasource.DeleteSessionMatch(ctx, sessionID, bankEntryID)
	if err != nil {
		return nil, err
	}
	if !removed {
		logrus.WithField("reconciliation_session_id", sessionID).
			Infof("entry %s was not matched, nothing to unmatch", bankEntryID)
	}

	return l.datasource.GetReconciliationSession(ctx, sessionID)
}

// CompleteReconciliationSession moves a session to its terminal completed
// state. Matched ledger transactions are flagged reconciled in the same
// database transaction, so a completed session and its reconciled flags can
// never disagree. Completing a completed session fails with a conflict.
func (l *Ledgerkeep) CompleteReconciliationSession(ctx context.Context, sessionID, completedBy, notes string) (*model.ReconciliationSession, error) {
	ctx, span := tracer.Start(ctx, "CompleteReconciliationSession")
	defer span.End()

	session, err := l.datasource.CompleteReconciliationSession(ctx, sessionID, completedBy, notes)
	if err != nil {
		return nil, err
	}

	l.postSessionActions(ctx, audit.ActionSessionCompleted, session, completedBy)
	return session, nil
}

// DeleteReconciliationSession discards an in-progress session and its
// matches. Completed sessions are part of the audit trail and cannot be
// deleted.
func (l *Ledgerkeep) DeleteReconciliationSession(ctx context.Context, sessionID string) error {
	ctx, span := tracer.Start(ctx, "DeleteReconciliationSession")
	defer span.End()

	session, err := l.datasource.GetReconciliationSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status == model.StatusCompleted {
		return apierror.NewAPIError(apierror.ErrInvalidState,
			"completed reconciliation sessions cannot be deleted", nil)
	}

	return l.datasource.DeleteReconciliationSession(ctx, sessionID)
}

// GenerateReconciliationReport builds the summary report for a session.
// Reports for completed sessions are immutable and served from cache when
// one is configured.
func (l *Ledgerkeep) GenerateReconciliationReport(ctx context.Context, sessionID string) (*model.ReconciliationReport, error) {
	ctx, span := tracer.Start(ctx, "GenerateReconciliationReport")
	defer span.End()

	cacheKey := "recon:report:" + sessionID
	if l.cache != nil {
		var cached model.ReconciliationReport
		if err := l.cache.Get(ctx, cacheKey, &cached); err == nil && cached.SessionID == sessionID {
			return &cached, nil
		}
	}

	session, err := l.datasource.GetReconciliationSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	matches, err := l.datasource.GetMatchesBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	matchedTxnIDs := make([]string, 0, len(matches))
	for _, m := range matches {
		matchedTxnIDs = append(matchedTxnIDs, m.TransactionID)
	}

	ledgerTotal := decimal.Zero
	if len(matchedTxnIDs) > 0 {
		txns, err := l.datasource.GetTransactionsByIDs(ctx, matchedTxnIDs)
		if err != nil {
			return nil, err
		}
		for _, txn := range txns {
			ledgerTotal = ledgerTotal.Add(txn.SignedAmount())
		}
	}

	bankTotal := decimal.Zero
	var unmatched []model.BankEntry
	for _, entry := range session.BankEntries {
		if entry.Matched {
			bankTotal = bankTotal.Add(entry.Amount)
		} else {
			unmatched = append(unmatched, entry)
		}
	}

	report := &model.ReconciliationReport{
		SessionID:        session.SessionID,
		AccountID:        session.AccountID,
		AccountName:      session.AccountName,
		Status:           session.Status,
		StatementDate:    session.StatementDate,
		OpeningBalance:   session.OpeningBalance,
		ClosingBalance:   session.ClosingBalance,
		TotalEntries:     len(session.BankEntries),
		MatchedCount:     session.MatchedCount,
		UnmatchedCount:   session.UnmatchedCount,
		BankTotal:        bankTotal,
		LedgerTotal:      ledgerTotal,
		Difference:       bankTotal.Sub(ledgerTotal),
		UnmatchedEntries: unmatched,
		GeneratedAt:      time.Now(),
	}

	if l.cache != nil && session.Status == model.StatusCompleted {
		if err := l.cache.Set(ctx, cacheKey, report, reportCacheTTL); err != nil {
			logrus.WithError(err).Warn("failed to cache reconciliation report")
		}
	}

	return report, nil
}

// postSessionActions emits the audit event for a lifecycle transition in
// the background. Audit delivery never fails the calling operation.
func (l *Ledgerkeep) postSessionActions(_ context.Context, action string, session *model.ReconciliationSession, actor string) {
	event := audit.Event{
		Action:         action,
		SessionID:      session.SessionID,
		CompanyID:      session.CompanyID,
		Actor:          actor,
		MatchedCount:   session.MatchedCount,
		UnmatchedCount: session.UnmatchedCount,
		OccurredAt:     time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_ = l.auditor.Record(ctx, event)
	}()
}
