package traderepublic

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/warroom/backend/src/models"
)

var doc = models.Document{Broker: "traderepublic", Format: models.FormatPaginatedText, Name: "estratto.txt"}

func TestParseTradeEntry(t *testing.T) {
	input := strings.Join([]string{
		"ESTRATTO CONTO",
		"19 set",
		"2024",
		"Commercio Buy trade US0378331005 Apple Inc., quantity: 2",
		"Saldo",
		"969,20 €",
	}, "\n")

	rows, warnings, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, rows, 1)

	f := rows[0].Fields
	assert.Equal(t, "Buy", f["operation"])
	assert.Equal(t, "US0378331005", f["isin"])
	assert.Equal(t, "Apple Inc.", f["name"])
	assert.Equal(t, "2", f["quantity"])
	assert.Equal(t, "969,20", f["amount"])
	assert.Equal(t, "19 set", f["date"])
	assert.Equal(t, "2024", f["year"])
	assert.Equal(t, "EUR", f["currency"])
}

func TestParseDividendEntryScansWindow(t *testing.T) {
	input := strings.Join([]string{
		"20 set",
		"2024",
		"Rendimento Dividendo in contanti",
		"Vanguard FTSE All-World",
		"IE00B3RBWM25",
		"3,50 €",
	}, "\n")

	rows, _, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	f := rows[0].Fields
	assert.Equal(t, "Rendimento", f["operation"])
	assert.Equal(t, "IE00B3RBWM25", f["isin"])
	assert.Equal(t, "3,50", f["amount"])
}

func TestParseBonificoDirection(t *testing.T) {
	input := strings.Join([]string{
		"21 set",
		"2024",
		"Bonifico Outgoing transfer",
		"250,00 €",
		"2 gen",
		"2025",
		"Bonifico Deposito accettato",
		"500,00 €",
	}, "\n")

	rows, _, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "prelievo", rows[0].Fields["operation"])
	assert.Equal(t, "250,00", rows[0].Fields["amount"])
	assert.Equal(t, "2024", rows[0].Fields["year"])

	assert.Equal(t, "deposito", rows[1].Fields["operation"])
	assert.Equal(t, "2025", rows[1].Fields["year"])
}

func TestParseNegativeAmount(t *testing.T) {
	input := strings.Join([]string{
		"21 set",
		"2024",
		"Bonifico Outgoing transfer",
		"-250,00 €",
	}, "\n")

	rows, warnings, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, rows, 1)
	assert.Equal(t, "prelievo", rows[0].Fields["operation"])
	assert.Equal(t, "-250,00", rows[0].Fields["amount"])
}

func TestParseYearHintCarriesForward(t *testing.T) {
	// Only the first date carries an explicit year marker; later entries
	// inherit it.
	input := strings.Join([]string{
		"19 set",
		"2024",
		"Interessi maturati",
		"1,20 €",
		"20 set",
		"Interessi maturati",
		"1,25 €",
	}, "\n")

	rows, _, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024", rows[1].Fields["year"])
	assert.Equal(t, "20 set", rows[1].Fields["date"])
}

func TestParseWindowStopsAtNextDate(t *testing.T) {
	// The second entry's amount must not bleed into the first entry's
	// window.
	input := strings.Join([]string{
		"19 set",
		"2024",
		"Commissione di custodia",
		"20 set",
		"Interessi maturati",
		"9,99 €",
	}, "\n")

	rows, warnings, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Interessi", rows[0].Fields["operation"])
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "without amount or quantity")
}

func TestParseIgnoresNonVerbLines(t *testing.T) {
	input := strings.Join([]string{
		"19 set",
		"Saldo iniziale",
		"1.000,00 €",
	}, "\n")

	rows, warnings, err := NewParser().Parse(strings.NewReader(input), doc)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, warnings)
}
