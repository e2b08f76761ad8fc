package normalize

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/resolver"
)

func init() {
	logger.InitLogger("error")
}

type tableSymbology struct {
	isins map[string]models.Instrument
}

func (c tableSymbology) LookupISIN(ctx context.Context, isin string) (models.Instrument, bool, error) {
	inst, ok := c.isins[isin]
	return inst, ok, nil
}

func (c tableSymbology) SearchName(ctx context.Context, name string) (models.Instrument, bool, error) {
	return models.Instrument{}, false, nil
}

func newTestNormalizer(isins map[string]models.Instrument) *Normalizer {
	res := resolver.New(resolver.Options{
		Client:  tableSymbology{isins: isins},
		HitTTL:  time.Minute,
		MissTTL: time.Minute,
	})
	return NewNormalizer(res, "EUR", map[string]Locale{"bgsaxo": LocaleEuropean}, 2)
}

func txRow(fields map[string]string) models.RawRow {
	return models.RawRow{Kind: models.RowTransaction, Fields: fields, SourceDocument: "doc.csv", Line: 2}
}

func TestNormalizeTradeRow(t *testing.T) {
	n := newTestNormalizer(map[string]models.Instrument{
		"US0378331005": {Ticker: "AAPL", DisplayName: "Apple Inc.", Exchange: "NMS"},
	})

	records, warnings := n.Normalize(context.Background(), "bgsaxo", []models.RawRow{
		txRow(map[string]string{
			"date":      "19-09-2024",
			"operation": "Acquisto",
			"isin":      "US0378331005",
			"quantity":  "3",
			"price":     "96,92",
			"currency":  "USD",
		}),
	})
	require.Empty(t, warnings)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, models.OperationBuy, rec.Operation)
	assert.Equal(t, "US0378331005", rec.InstrumentKey)
	assert.True(t, rec.Quantity.Equal(decimal.NewFromInt(3)))
	assert.Equal(t, "USD", rec.Currency)
	// amount derived from quantity * price
	assert.True(t, rec.TotalAmount.Equal(decimal.RequireFromString("290.76")), "amount %s", rec.TotalAmount)
	assert.NotEmpty(t, rec.NaturalKey)
	assert.Equal(t, time.Date(2024, 9, 19, 0, 0, 0, 0, time.UTC), rec.Timestamp)
}

func TestNormalizeCurrencyFromExchange(t *testing.T) {
	n := newTestNormalizer(map[string]models.Instrument{
		"US0378331005": {Ticker: "AAPL", Exchange: "NMS"},
	})

	records, _ := n.Normalize(context.Background(), "bgsaxo", []models.RawRow{
		txRow(map[string]string{
			"date":      "19-09-2024",
			"operation": "Acquisto",
			"isin":      "US0378331005",
			"quantity":  "1",
			"price":     "100",
		}),
	})
	require.Len(t, records, 1)
	assert.Equal(t, "USD", records[0].Currency)
}

func TestNormalizeCurrencyFallsBackToBaseWithWarning(t *testing.T) {
	n := newTestNormalizer(nil)

	records, warnings := n.Normalize(context.Background(), "bgsaxo", []models.RawRow{
		txRow(map[string]string{
			"date":      "19-09-2024",
			"operation": "buy",
			"ticker":    "WEIRD",
			"quantity":  "1",
			"price":     "10",
		}),
	})
	require.Len(t, records, 1)
	assert.Equal(t, "EUR", records[0].Currency)
	found := false
	for _, w := range warnings {
		if w.Message != "" && w.Line == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected a base-currency warning")
}

func TestNormalizeCashRow(t *testing.T) {
	n := newTestNormalizer(nil)

	records, warnings := n.Normalize(context.Background(), "bgsaxo", []models.RawRow{
		txRow(map[string]string{
			"date":      "01-09-2024",
			"operation": "Bonifico in entrata",
			"amount":    "1.000,00",
			"currency":  "EUR",
		}),
	})
	require.Empty(t, warnings)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, models.OperationDeposit, rec.Operation)
	assert.Equal(t, "EUR", rec.InstrumentKey)
	assert.True(t, rec.Quantity.Equal(decimal.NewFromInt(1000)))
	assert.True(t, rec.UnitPrice.Equal(decimal.NewFromInt(1)))
}

func TestNormalizeSkipsGarbledRows(t *testing.T) {
	n := newTestNormalizer(nil)

	records, warnings := n.Normalize(context.Background(), "bgsaxo", []models.RawRow{
		txRow(map[string]string{"operation": "buy", "quantity": "1"}), // no date
		txRow(map[string]string{"date": "19-09-2024", "operation": "buy", "ticker": "AAPL", "quantity": "n/a"}),
		txRow(map[string]string{"date": "19-09-2024", "operation": "buy", "ticker": "AAPL"}), // nothing numeric
	})
	assert.Empty(t, records)
	assert.Len(t, warnings, 3)
}

func TestNormalizeUnresolvedInstrumentKeepsRecord(t *testing.T) {
	n := newTestNormalizer(nil)

	records, warnings := n.Normalize(context.Background(), "bgsaxo", []models.RawRow{
		txRow(map[string]string{
			"date":      "19-09-2024",
			"operation": "buy",
			"name":      "Obscure Issuer Holding Company",
			"quantity":  "2",
			"price":     "5",
			"currency":  "EUR",
		}),
	})
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].InstrumentKey)
	found := false
	for _, w := range warnings {
		if w.Line == 2 {
			found = true
		}
	}
	assert.True(t, found, "expected an unresolved-instrument warning")
}

func TestBuildSnapshot(t *testing.T) {
	n := newTestNormalizer(map[string]models.Instrument{
		"US0378331005": {Ticker: "AAPL", Exchange: "NMS"},
	})
	asOf := time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)

	snap, warnings := n.BuildSnapshot(context.Background(), "bgsaxo", []models.RawRow{
		{Kind: models.RowPosition, Fields: map[string]string{"isin": "US0378331005", "quantity": "12"}, SourceDocument: "pos.tsv", Line: 2},
		{Kind: models.RowPosition, Fields: map[string]string{"isin": "US0378331005", "quantity": "3"}, SourceDocument: "pos.tsv", Line: 3},
		{Kind: models.RowPosition, Fields: map[string]string{"isin": "IE00B3RBWM25", "quantity": ""}, SourceDocument: "pos.tsv", Line: 4},
	}, asOf)
	assert.Empty(t, warnings)
	assert.Equal(t, "bgsaxo", snap.Broker)
	assert.Equal(t, asOf, snap.AsOf)
	require.Len(t, snap.Positions, 1)
	// duplicate rows for the same instrument accumulate
	assert.True(t, snap.Positions["US0378331005"].Equal(decimal.NewFromInt(15)))
	// no currency column: inferred from the instrument's home exchange
	assert.Equal(t, "USD", snap.Currencies["US0378331005"])
}

func TestBuildSnapshotCurrencyFromRow(t *testing.T) {
	n := newTestNormalizer(nil)

	snap, _ := n.BuildSnapshot(context.Background(), "bgsaxo", []models.RawRow{
		{Kind: models.RowPosition, Fields: map[string]string{"ticker": "DOGE", "quantity": "100", "currency": "eur"}, SourceDocument: "pos.tsv", Line: 2},
	}, time.Now())
	assert.Equal(t, "EUR", snap.Currencies["DOGE"])
}
