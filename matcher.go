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
	"sort"
	"time"

	"github.com/ledgerkeep/ledgerkeep/model"
	"go.opentelemetry.io/otel"
)

// FindMatches produces ranked candidate suggestions for a batch of bank
// entries. Candidates come from a single batched ledger fetch spanning
// [min entry date - window, max entry date + window]; the per-entry scoring
// happens in memory. Entries with no qualifying candidate are still present
// in the output with an empty suggestion list.
//
// The single batched fetch is deliberate: one query per bank entry would
// make large statement imports intractable.
func (l *Ledgerkeep) FindMatches(ctx context.Context, entries []model.BankEntry, companyID string, dateWindowDays int) ([]model.EntryMatches, error) {
	ctx, span := otel.Tracer("ledgerkeep.matcher").Start(ctx, "FindMatches")
	defer span.End()

	results := make([]model.EntryMatches, 0, len(entries))
	if len(entries) == 0 {
		return results, nil
	}

	from, to := entryDateRange(entries, dateWindowDays)
	candidates, err := l.datasource.GetUnreconciledTransactions(ctx, companyID, from, to)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entry := &entries[i]
		var suggestions []model.CandidateMatch
		for _, txn := range candidates {
			score := scoreMatch(entry, txn)
			if score > MatchThreshold {
				suggestions = append(suggestions, model.CandidateMatch{
					TransactionID:   txn.TransactionID,
					ConfidenceScore: score,
					Transaction:     txn,
				})
			}
		}

		sort.Slice(suggestions, func(a, b int) bool {
			if suggestions[a].ConfidenceScore == suggestions[b].ConfidenceScore {
				return suggestions[a].TransactionID < suggestions[b].TransactionID
			}
			return suggestions[a].ConfidenceScore > suggestions[b].ConfidenceScore
		})
		if len(suggestions) > MaxSuggestions {
			suggestions = suggestions[:MaxSuggestions]
		}

		results = append(results, model.EntryMatches{
			BankEntryID: entry.EntryID,
			Suggestions: suggestions,
		})
	}

	return results, nil
}

// entryDateRange computes the candidate search window across the whole
// batch, expanded by the configured number of days on each side.
func entryDateRange(entries []model.BankEntry, dateWindowDays int) (time.Time, time.Time) {
	minDate, maxDate := entries[0].Date, entries[0].Date
	for _, entry := range entries[1:] {
		if entry.Date.Before(minDate) {
			minDate = entry.Date
		}
		if entry.Date.After(maxDate) {
			maxDate = entry.Date
		}
	}
	return minDate.AddDate(0, 0, -dateWindowDays), maxDate.AddDate(0, 0, dateWindowDays)
}
