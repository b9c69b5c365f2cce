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
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
	"github.com/ledgerkeep/ledgerkeep/model"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ofxDateLayout matches the leading 8 digits of an OFX DTPOSTED value.
// Trailing time-of-day and timezone qualifiers (e.g. 20251002120000[0:GMT])
// are intentionally dropped; reconciliation works at day granularity.
const ofxDateLayout = "20060102"

// ParseOFXStatement parses an OFX or QFX statement into bank entries. Both
// OFX 1.x (SGML, unclosed leaf tags, colon-separated header block) and OFX
// 2.x (well-formed XML) are accepted: the header block before the <OFX>
// element is discarded and the body is walked with a lenient XML decoder
// that tolerates mismatched end tags.
func ParseOFXStatement(data []byte) (*ParseResult, error) {
	body, err := ofxBody(data)
	if err != nil {
		return nil, err
	}

	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose

	result := &ParseResult{Entries: []model.BankEntry{}}
	var current *ofxTransaction
	var currentTag string
	line := 0

	flush := func() {
		if current == nil {
			return
		}
		entry, reason := current.toBankEntry()
		if reason != "" {
			logrus.Warnf("skipping ofx transaction near line %d: %s", line, reason)
			result.SkippedRows = append(result.SkippedRows, SkippedRow{Line: line, Reason: reason})
		} else {
			result.Entries = append(result.Entries, *entry)
		}
		current = nil
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			// a structural error after entries parsed is the usual SGML
			// trailing-garbage case; with nothing parsed it is a bad file
			if len(result.Entries) == 0 && len(result.SkippedRows) == 0 {
				return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
					"statement is not valid OFX", err.Error())
			}
			break
		}

		switch t := token.(type) {
		case xml.StartElement:
			tag := strings.ToUpper(t.Name.Local)
			if tag == "STMTTRN" {
				flush()
				current = &ofxTransaction{}
				line++
			}
			currentTag = tag
		case xml.EndElement:
			tag := strings.ToUpper(t.Name.Local)
			if tag == "STMTTRN" {
				flush()
			}
			currentTag = ""
		case xml.CharData:
			if current == nil {
				continue
			}
			current.set(currentTag, strings.TrimSpace(string(t)))
		}
	}
	flush()

	if len(result.Entries) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			"statement contains no parseable entries", result.SkippedRows)
	}
	return result, nil
}

// ofxBody strips the OFX 1.x header block (OFXHEADER:100 etc.) and any
// XML prolog, returning the document from the <OFX> element onward.
func ofxBody(data []byte) ([]byte, error) {
	idx := bytes.Index(data, []byte("<OFX"))
	if idx < 0 {
		idx = bytes.Index(data, []byte("<ofx"))
	}
	if idx < 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput,
			"statement has no OFX envelope", nil)
	}
	return data[idx:], nil
}

// ofxTransaction accumulates the fields of one STMTTRN block as the token
// walk encounters them.
type ofxTransaction struct {
	trnType  string
	dtPosted string
	trnAmt   string
	fitID    string
	name     string
	memo     string
}

func (o *ofxTransaction) set(tag, value string) {
	if value == "" {
		return
	}
	switch tag {
	case "TRNTYPE":
		o.trnType = value
	case "DTPOSTED":
		o.dtPosted = value
	case "TRNAMT":
		o.trnAmt = value
	case "FITID":
		o.fitID = value
	case "NAME":
		o.name = value
	case "MEMO":
		o.memo = value
	}
}

// toBankEntry converts an accumulated STMTTRN into a bank entry. The
// returned reason is empty on success.
func (o *ofxTransaction) toBankEntry() (*model.BankEntry, string) {
	if o.dtPosted == "" {
		return nil, "transaction has no DTPOSTED date"
	}
	raw := o.dtPosted
	if len(raw) > len(ofxDateLayout) {
		raw = raw[:len(ofxDateLayout)]
	}
	date, err := time.Parse(ofxDateLayout, raw)
	if err != nil {
		return nil, "unparseable DTPOSTED date " + o.dtPosted
	}

	if o.trnAmt == "" {
		return nil, "transaction has no TRNAMT amount"
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(o.trnAmt, ",", ""))
	if err != nil {
		return nil, "unparseable TRNAMT amount " + o.trnAmt
	}

	description := o.name
	if o.memo != "" && o.memo != o.name {
		if description != "" {
			description += " " + o.memo
		} else {
			description = o.memo
		}
	}

	return &model.BankEntry{
		EntryID:     model.GenerateUUIDWithSuffix("entry"),
		Date:        date,
		Description: description,
		Amount:      amount,
		Reference:   o.fitID,
	}, ""
}
