package ledgerkeep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerkeep/ledgerkeep/internal/apierror"
)

const sgmlStatement = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII

<OFX>
<BANKMSGSRSV1>
<STMTTRNRS>
<STMTRS>
<BANKTRANLIST>
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20251002120000
<TRNAMT>-125.50
<FITID>9920251002001
<NAME>AMAZON MKTPLACE
<MEMO>ORDER 114-552
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20251003
<TRNAMT>890.00
<FITID>9920251003001
<NAME>ACH CLIENT PAYMENT
</STMTTRN>
</BANKTRANLIST>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>
`

func TestParseOFXStatementSGML(t *testing.T) {
	result, err := ParseOFXStatement([]byte(sgmlStatement))
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)

	first := result.Entries[0]
	// time-of-day on DTPOSTED is dropped
	assert.Equal(t, day("2025-10-02"), first.Date)
	assert.Equal(t, "-125.5", first.Amount.String())
	assert.Equal(t, "9920251002001", first.Reference)
	assert.Equal(t, "AMAZON MKTPLACE ORDER 114-552", first.Description)

	second := result.Entries[1]
	assert.Equal(t, day("2025-10-03"), second.Date)
	assert.Equal(t, "890", second.Amount.String())
	assert.Equal(t, "ACH CLIENT PAYMENT", second.Description)
}

func TestParseOFXStatementXML(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<OFX>
  <BANKMSGSRSV1>
    <STMTTRNRS>
      <STMTRS>
        <BANKTRANLIST>
          <STMTTRN>
            <TRNTYPE>DEBIT</TRNTYPE>
            <DTPOSTED>20251002</DTPOSTED>
            <TRNAMT>-42.00</TRNAMT>
            <FITID>f-1</FITID>
            <NAME>Parking</NAME>
          </STMTTRN>
        </BANKTRANLIST>
      </STMTRS>
    </STMTTRNRS>
  </BANKMSGSRSV1>
</OFX>`)

	result, err := ParseOFXStatement(data)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Parking", result.Entries[0].Description)
	assert.Equal(t, "-42", result.Entries[0].Amount.String())
}

func TestParseOFXStatementLowercaseTags(t *testing.T) {
	data := []byte(`<ofx><stmttrn><dtposted>20251002<trnamt>-1.00<name>Snack</stmttrn></ofx>`)

	result, err := ParseOFXStatement(data)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "Snack", result.Entries[0].Description)
}

func TestParseOFXStatementDropsDatelessTransactions(t *testing.T) {
	data := []byte(`<OFX>
<STMTTRN>
<TRNTYPE>DEBIT
<TRNAMT>-10.00
<NAME>NO DATE HERE
</STMTTRN>
<STMTTRN>
<DTPOSTED>20251002
<TRNAMT>-20.00
<NAME>GOOD ONE
</STMTTRN>
</OFX>`)

	result, err := ParseOFXStatement(data)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Equal(t, "GOOD ONE", result.Entries[0].Description)
	require.Len(t, result.SkippedRows, 1)
	assert.Contains(t, result.SkippedRows[0].Reason, "DTPOSTED")
}

func TestParseOFXStatementNoEnvelope(t *testing.T) {
	_, err := ParseOFXStatement([]byte("this is not an ofx file"))
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestParseOFXStatementNoTransactions(t *testing.T) {
	_, err := ParseOFXStatement([]byte("<OFX><BANKMSGSRSV1></BANKMSGSRSV1></OFX>"))
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidInput))
}

func TestParseOFXStatementMemoEqualsName(t *testing.T) {
	data := []byte(`<OFX><STMTTRN><DTPOSTED>20251002<TRNAMT>-5.00<NAME>COFFEE<MEMO>COFFEE</STMTTRN></OFX>`)

	result, err := ParseOFXStatement(data)
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	// duplicated memo is not concatenated
	assert.Equal(t, "COFFEE", result.Entries[0].Description)
}
