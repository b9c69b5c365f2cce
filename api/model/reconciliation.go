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
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ledgerkeep/ledgerkeep/model"
)

// UploadStatementRequest carries the multipart form fields accompanying a
// statement upload. The file itself arrives as the "file" form part.
type UploadStatementRequest struct {
	AccountID      string `form:"account_id"`
	StatementDate  string `form:"statement_date"`
	OpeningBalance string `form:"opening_balance"`
	ClosingBalance string `form:"closing_balance"`
	AutoMatch      bool   `form:"auto_match"`
}

func (u *UploadStatementRequest) ValidateUploadStatement() error {
	return validation.ValidateStruct(u,
		validation.Field(&u.AccountID, validation.Required),
		validation.Field(&u.StatementDate, validation.Required, validation.By(func(value interface{}) error {
			dateStr, ok := value.(string)
			if !ok {
				return errors.New("invalid type for statement date")
			}
			return validateDateFormat("2006-01-02", dateStr)
		})),
		validation.Field(&u.OpeningBalance, validation.Required),
		validation.Field(&u.ClosingBalance, validation.Required),
	)
}

func validateDateFormat(format, value string) error {
	_, err := time.Parse(format, value)
	if err != nil {
		return errors.New("please format the statement date as 'YYYY-MM-DD' (e.g., 2025-10-31)")
	}
	return nil
}

// RecordMatchesRequest is the manual match batch.
type RecordMatchesRequest struct {
	Matches []model.ManualMatchInput `json:"matches"`
}

func (r *RecordMatchesRequest) ValidateRecordMatches() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Matches, validation.Required, validation.Length(1, 0), validation.By(func(value interface{}) error {
			matches, ok := value.([]model.ManualMatchInput)
			if !ok {
				return errors.New("invalid matches payload")
			}
			for _, m := range matches {
				if m.BankEntryID == "" || m.TransactionID == "" {
					return errors.New("bank_entry_id and transaction_id are required on every match")
				}
				if m.ConfidenceScore < 0 || m.ConfidenceScore > 1 {
					return errors.New("confidence_score must be between 0 and 1")
				}
			}
			return nil
		})),
	)
}

// UnmatchEntryRequest names the bank entry to unmatch.
type UnmatchEntryRequest struct {
	BankEntryID string `json:"bank_entry_id"`
}

func (r *UnmatchEntryRequest) ValidateUnmatchEntry() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.BankEntryID, validation.Required),
	)
}

// CompleteSessionRequest closes out a session.
type CompleteSessionRequest struct {
	CompletedBy string `json:"completed_by"`
	Notes       string `json:"notes"`
}

func (r *CompleteSessionRequest) ValidateCompleteSession() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.CompletedBy, validation.Required),
	)
}
