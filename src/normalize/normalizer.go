// Package normalize turns raw parser rows into canonical transaction
// records: numbers, dates, operation codes and currency resolved into one
// consistent representation.
package normalize

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/resolver"
	"golang.org/x/sync/errgroup"
)

type Normalizer struct {
	resolver     *resolver.Resolver
	baseCurrency string
	locales      map[string]Locale // broker -> separator convention
	workers      int
}

func NewNormalizer(res *resolver.Resolver, baseCurrency string, locales map[string]Locale, workers int) *Normalizer {
	if workers < 1 {
		workers = 1
	}
	if locales == nil {
		locales = map[string]Locale{}
	}
	return &Normalizer{
		resolver:     res,
		baseCurrency: baseCurrency,
		locales:      locales,
		workers:      workers,
	}
}

// Normalize converts transaction rows into canonical records. Rows that fail
// required-field extraction are skipped and reported as warnings; the run
// continues. Position rows are ignored here (see BuildSnapshot).
func (n *Normalizer) Normalize(ctx context.Context, broker string, rows []models.RawRow) ([]models.TransactionRecord, []models.Warning) {
	resolved := n.resolveAll(ctx, rows)
	locale := n.locales[broker]

	var records []models.TransactionRecord
	var warnings []models.Warning

	warn := func(row models.RawRow, format string, args ...interface{}) {
		warnings = append(warnings, models.Warning{
			Stage:    "normalize",
			Document: row.SourceDocument,
			Line:     row.Line,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, row := range rows {
		if row.Kind != models.RowTransaction {
			continue
		}
		f := row.Fields

		op := MapOperation(f["operation"])

		ts, err := ParseDate(f["date"], yearHint(f))
		if err != nil {
			warn(row, "skipping row: %v", err)
			continue
		}
		if hhmm := strings.TrimSpace(f["time"]); hhmm != "" {
			if clock, err := parseClock(hhmm); err == nil {
				ts = ts.Add(clock)
			}
		}

		qty, ok := n.parseField(row, "quantity", locale, warn)
		if !ok {
			continue
		}
		price, ok := n.parseField(row, "price", locale, warn)
		if !ok {
			continue
		}
		amount, ok := n.parseField(row, "amount", locale, warn)
		if !ok {
			continue
		}
		qty = qty.Abs()
		price = price.Abs()
		amount = amount.Abs()

		identifier := instrumentIdentifier(f)
		currency := strings.ToUpper(strings.TrimSpace(f["currency"]))

		var inst models.Instrument
		if identifier == "" {
			// No instrument at all: a pure cash movement, booked against
			// the currency itself.
			if currency == "" {
				currency = n.baseCurrency
			}
			inst = models.Instrument{Ticker: currency, DisplayName: "Cash (" + currency + ")", AssetClass: "CASH"}
			if qty.IsZero() {
				qty = amount
				price = decimal.NewFromInt(1)
			}
		} else {
			inst = resolved[identifier]
			if inst.Unresolved {
				warn(row, "instrument %q unresolved, tracked under pseudo-ticker %s", identifier, inst.Ticker)
			}
		}

		if qty.IsZero() && amount.IsZero() {
			warn(row, "skipping row: no quantity and no amount")
			continue
		}

		// Derive the missing one of price/amount when possible.
		if amount.IsZero() && qty.IsPositive() && price.IsPositive() {
			amount = qty.Mul(price)
		}
		if price.IsZero() && qty.IsPositive() && amount.IsPositive() {
			price = amount.Div(qty)
		}

		if currency == "" {
			currency = CurrencyForExchange(inst.Exchange)
		}
		if currency == "" {
			currency = CurrencyForCountry(models.CountryCodeFromISIN(inst.ISIN))
		}
		if currency == "" {
			currency = n.baseCurrency
			warn(row, "no currency on row or instrument, assuming portfolio base %s", currency)
		}

		rec := models.TransactionRecord{
			Broker:         broker,
			InstrumentKey:  instrumentKey(identifier, inst),
			Operation:      op,
			Quantity:       qty,
			UnitPrice:      price,
			TotalAmount:    amount,
			Currency:       currency,
			Timestamp:      ts,
			SourceDocument: row.SourceDocument,
		}
		rec.NaturalKey = rec.ComputeNaturalKey()
		records = append(records, rec)
	}

	return records, warnings
}

// BuildSnapshot folds position rows into an authoritative snapshot for the
// reconciliation engine. Rows without a parseable quantity are dropped (a
// merged or summary cell means "no record", not zero).
func (n *Normalizer) BuildSnapshot(ctx context.Context, broker string, rows []models.RawRow, asOf time.Time) (models.Snapshot, []models.Warning) {
	resolved := n.resolveAll(ctx, rows)
	locale := n.locales[broker]

	snap := models.Snapshot{
		Broker:     broker,
		AsOf:       asOf,
		Positions:  map[string]decimal.Decimal{},
		Currencies: map[string]string{},
	}
	var warnings []models.Warning

	for _, row := range rows {
		if row.Kind != models.RowPosition {
			continue
		}
		rawQty := strings.TrimSpace(row.Fields["quantity"])
		if rawQty == "" {
			continue
		}
		qty, err := ParseDecimal(rawQty, locale)
		if err != nil {
			warnings = append(warnings, models.Warning{
				Stage:    "normalize",
				Document: row.SourceDocument,
				Line:     row.Line,
				Message:  fmt.Sprintf("skipping position row: %v", err),
			})
			continue
		}

		identifier := instrumentIdentifier(row.Fields)
		if identifier == "" {
			warnings = append(warnings, models.Warning{
				Stage:    "normalize",
				Document: row.SourceDocument,
				Line:     row.Line,
				Message:  "skipping position row: no instrument identifier",
			})
			continue
		}
		inst := resolved[identifier]
		key := instrumentKey(identifier, inst)
		snap.Positions[key] = snap.Positions[key].Add(qty)
		if snap.Currencies[key] == "" {
			currency := strings.ToUpper(strings.TrimSpace(row.Fields["currency"]))
			if currency == "" {
				currency = CurrencyForExchange(inst.Exchange)
			}
			if currency == "" {
				currency = CurrencyForCountry(models.CountryCodeFromISIN(inst.ISIN))
			}
			if currency == "" {
				currency = n.baseCurrency
			}
			snap.Currencies[key] = currency
		}
	}

	return snap, warnings
}

// resolveAll resolves the distinct identifiers of a row batch through a
// bounded worker pool. The resolver single-flights per key, so duplicate
// identifiers across goroutines cost one outbound call at most.
func (n *Normalizer) resolveAll(ctx context.Context, rows []models.RawRow) map[string]models.Instrument {
	unique := map[string]struct{}{}
	for _, row := range rows {
		if id := instrumentIdentifier(row.Fields); id != "" {
			unique[id] = struct{}{}
		}
	}

	resolved := make(map[string]models.Instrument, len(unique))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)

	for id := range unique {
		g.Go(func() error {
			inst := n.resolver.Resolve(gctx, id)
			mu.Lock()
			resolved[id] = inst
			mu.Unlock()
			return nil
		})
	}
	g.Wait() // workers never return errors; Resolve degrades to pseudo-tickers

	return resolved
}

// parseField parses an optional numeric field; an empty field is zero, a
// present-but-garbled field skips the row.
func (n *Normalizer) parseField(row models.RawRow, field string, locale Locale, warn func(models.RawRow, string, ...interface{})) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(row.Fields[field])
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := ParseDecimal(raw, locale)
	if err != nil {
		warn(row, "skipping row: bad %s: %v", field, err)
		return decimal.Zero, false
	}
	return d, true
}

// instrumentIdentifier picks the dirtiest-to-cleanest identifier available
// on a row: ISIN first, then ticker, then free-text name.
func instrumentIdentifier(fields map[string]string) string {
	if isin := strings.TrimSpace(fields["isin"]); isin != "" {
		return isin
	}
	if ticker := strings.TrimSpace(fields["ticker"]); ticker != "" {
		return ticker
	}
	return strings.TrimSpace(fields["name"])
}

// instrumentKey is the ledger key: the ISIN when the row carried one, else
// the resolved ticker.
func instrumentKey(identifier string, inst models.Instrument) string {
	if upper := strings.ToUpper(identifier); resolver.IsISINShaped(upper) {
		return upper
	}
	if inst.ISIN != "" {
		return inst.ISIN
	}
	if inst.Ticker != "" {
		return inst.Ticker
	}
	return strings.ToUpper(identifier)
}

func yearHint(fields map[string]string) int {
	if y := strings.TrimSpace(fields["year"]); y != "" {
		if n, err := strconv.Atoi(y); err == nil {
			return n
		}
	}
	return 0
}

func parseClock(s string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}
