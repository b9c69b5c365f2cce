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
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Session status values. A session is created in_progress and moves to
// completed exactly once; completed is terminal.
const (
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Match types recorded on accepted pairings.
const (
	MatchTypeAutomatic = "automatic"
	MatchTypeManual    = "manual"
)

// BankEntry is one line parsed from an uploaded bank statement. Entries are
// created at parse time, embedded inside their session and never move between
// sessions. Matched and MatchedTransactionID are the only mutable fields.
type BankEntry struct {
	EntryID              string           `json:"entry_id"`
	Date                 time.Time        `json:"date"`
	Description          string           `json:"description"`
	Amount               decimal.Decimal  `json:"amount"`
	Reference            string           `json:"reference,omitempty"`
	Balance              *decimal.Decimal `json:"balance,omitempty"`
	Matched              bool             `json:"matched"`
	MatchedTransactionID string           `json:"matched_transaction_id,omitempty"`
}

// CandidateMatch is an ephemeral scored pairing between a bank entry and a
// ledger transaction. Candidates are never persisted; they exist only in the
// upload response so a reviewer can accept them.
type CandidateMatch struct {
	TransactionID   string       `json:"transaction_id"`
	ConfidenceScore float64      `json:"confidence_score"`
	Transaction     *Transaction `json:"transaction"`
}

// EntryMatches groups the ranked candidates for a single bank entry. Entries
// with no qualifying candidates still appear with an empty Suggestions slice.
type EntryMatches struct {
	BankEntryID string           `json:"bank_entry_id"`
	Suggestions []CandidateMatch `json:"suggestions"`
}

// ReconciliationSession is the aggregate root of the reconciliation engine.
// Invariant: MatchedCount + UnmatchedCount == len(BankEntries) at all times.
type ReconciliationSession struct {
	SessionID      string          `json:"reconciliation_session_id"`
	CompanyID      string          `json:"company_id"`
	AccountID      string          `json:"account_id"`
	AccountName    string          `json:"account_name"`
	StatementDate  time.Time       `json:"statement_date"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	AutoMatch      bool            `json:"auto_match"`
	BankEntries    []BankEntry     `json:"bank_entries"`
	Status         string          `json:"status"`
	MatchedCount   int             `json:"matched_count"`
	UnmatchedCount int             `json:"unmatched_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	CompletedBy    string          `json:"completed_by,omitempty"`
	Notes          string          `json:"notes,omitempty"`
}

// Entry returns the embedded bank entry with the given ID, or nil.
func (s *ReconciliationSession) Entry(entryID string) *BankEntry {
	for i := range s.BankEntries {
		if s.BankEntries[i].EntryID == entryID {
			return &s.BankEntries[i]
		}
	}
	return nil
}

// Match is a persisted record of one accepted pairing between an embedded
// bank entry and a ledger transaction. Matches are inserted and deleted,
// never updated; unmatch-then-rematch is the only way to change a pairing.
type Match struct {
	MatchID         string    `json:"match_id"`
	SessionID       string    `json:"reconciliation_session_id"`
	BankEntryID     string    `json:"bank_entry_id"`
	TransactionID   string    `json:"transaction_id"`
	ConfidenceScore float64   `json:"confidence_score"`
	MatchType       string    `json:"match_type"`
	MatchedAt       time.Time `json:"matched_at"`
	MatchedBy       string    `json:"matched_by"`
}

// ManualMatchInput is one caller-supplied pairing in a manual match request.
// The confidence score is trusted as provided; the UI may accept pairings
// below the surfacing threshold after human review.
type ManualMatchInput struct {
	BankEntryID     string  `json:"bank_entry_id"`
	TransactionID   string  `json:"transaction_id"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// ReconciliationReport is the read-only aggregate produced by the report
// layer. It can be regenerated at any time, including after completion.
type ReconciliationReport struct {
	SessionID        string          `json:"reconciliation_session_id"`
	AccountID        string          `json:"account_id"`
	AccountName      string          `json:"account_name"`
	Status           string          `json:"status"`
	StatementDate    time.Time       `json:"statement_date"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
	TotalEntries     int             `json:"total_entries"`
	MatchedCount     int             `json:"matched_count"`
	UnmatchedCount   int             `json:"unmatched_count"`
	BankTotal        decimal.Decimal `json:"bank_total"`
	LedgerTotal      decimal.Decimal `json:"ledger_total"`
	Difference       decimal.Decimal `json:"difference"`
	UnmatchedEntries []BankEntry     `json:"unmatched_entries"`
	GeneratedAt      time.Time       `json:"generated_at"`
}
