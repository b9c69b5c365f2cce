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
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/ledgerkeep/ledgerkeep/model"
	"github.com/shopspring/decimal"
)

// Scoring weights and thresholds for the confidence scorer. These are fixed
// properties of the engine, not per-call parameters: tests assert exact
// boundary behavior against them, and manual match calls may still submit
// scores outside these bands after human review.
const (
	// AmountWeight is the maximum contribution of the amount factor.
	AmountWeight = 0.5
	// DateWeight is the maximum contribution of the date factor.
	DateWeight = 0.3
	// DescriptionWeight is the maximum contribution of the description factor.
	DescriptionWeight = 0.2

	// MatchThreshold is the minimum score (strict greater-than) for a
	// candidate to be surfaced at all.
	MatchThreshold = 0.3
	// AutoMatchThreshold is the minimum top-candidate score for an entry to
	// be accepted automatically during upload.
	AutoMatchThreshold = 0.8
	// MaxSuggestions caps the ranked candidate list per bank entry.
	MaxSuggestions = 5

	// DateToleranceDays is the window within which the date factor still
	// scores a near match.
	DateToleranceDays = 2

	amountNearScore = 0.4
	amountWideScore = 0.2
	dateNearScore   = 0.2
	dateWideScore   = 0.1
)

// AmountTolerance is the absolute difference, in currency units, within
// which two amounts are treated as a near match. 5x this tolerance still
// scores a wide match.
var AmountTolerance = decimal.NewFromFloat(0.01)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// scoreMatch computes the confidence score between one bank entry and one
// candidate ledger transaction. It is deterministic, does no I/O, and
// returns a value in [0.0, 1.0] rounded to 3 decimal places.
func scoreMatch(entry *model.BankEntry, txn *model.Transaction) float64 {
	score := amountFactor(entry.Amount, txn.Amount) +
		dateFactor(entry.Date, txn.TransactionDate) +
		descriptionFactor(entry.Description, txn.Description)
	return math.Round(score*1000) / 1000
}

// amountFactor compares absolute values: bank statements carry signed
// amounts while the ledger stores unsigned amounts with a separate type.
func amountFactor(entryAmount, txnAmount decimal.Decimal) float64 {
	diff := entryAmount.Abs().Sub(txnAmount.Abs()).Abs()
	switch {
	case diff.IsZero():
		return AmountWeight
	case diff.LessThanOrEqual(AmountTolerance):
		return amountNearScore
	case diff.LessThanOrEqual(AmountTolerance.Mul(decimal.NewFromInt(5))):
		return amountWideScore
	default:
		return 0
	}
}

func dateFactor(entryDate, txnDate time.Time) float64 {
	days := calendarDaysBetween(entryDate, txnDate)
	switch {
	case days == 0:
		return DateWeight
	case days <= DateToleranceDays:
		return dateNearScore
	case days <= 2*DateToleranceDays:
		return dateWideScore
	default:
		return 0
	}
}

// descriptionFactor tokenizes both descriptions into lowercase word sets and
// scores their overlap relative to the larger set. Empty token sets
// contribute nothing.
func descriptionFactor(entryDesc, txnDesc string) float64 {
	entryWords := tokenize(entryDesc)
	txnWords := tokenize(txnDesc)
	if len(entryWords) == 0 || len(txnWords) == 0 {
		return 0
	}

	intersection := 0
	for word := range entryWords {
		if txnWords[word] {
			intersection++
		}
	}

	larger := len(entryWords)
	if len(txnWords) > larger {
		larger = len(txnWords)
	}

	return float64(intersection) / float64(larger) * DescriptionWeight
}

func tokenize(s string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range wordPattern.FindAllString(strings.ToLower(s), -1) {
		words[w] = true
	}
	return words
}

// calendarDaysBetween returns the absolute number of calendar days between
// two timestamps, ignoring any time-of-day component.
func calendarDaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	days := int(ad.Sub(bd).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
