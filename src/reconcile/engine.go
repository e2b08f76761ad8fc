// Package reconcile compares calculated holdings against broker-issued
// position snapshots and emits correcting ledger records.
package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
)

// tolerance is both the absolute floor and the relative fraction under which
// a quantity difference is considered rounding noise rather than divergence.
var tolerance = decimal.New(1, -4) // 1e-4

// withinTolerance reports whether the difference between calculated and
// stated quantities is small enough to ignore: at most 1e-4 absolute, or
// 1e-4 of the stated quantity, whichever is larger.
func withinTolerance(calculated, stated decimal.Decimal) bool {
	diff := calculated.Sub(stated).Abs()
	threshold := tolerance
	if rel := stated.Abs().Mul(tolerance); rel.GreaterThan(threshold) {
		threshold = rel
	}
	return diff.LessThanOrEqual(threshold)
}

// Reconcile diffs calculated holdings against an authoritative snapshot and
// returns zero-amount correction records that bring the ledger-derived
// quantities in line with the broker's statement. The snapshot is never a
// reason to delete history: positions the ledger knows but the snapshot
// omits only produce a warning.
func Reconcile(holdings []models.Holding, snapshot models.Snapshot, now time.Time) ([]models.TransactionRecord, []models.Warning) {
	calculated := make(map[string]decimal.Decimal)
	currencies := make(map[string]string)
	for _, h := range holdings {
		if h.Broker != snapshot.Broker {
			continue
		}
		calculated[h.InstrumentKey] = h.Quantity
		currencies[h.InstrumentKey] = h.Currency
	}
	for key, currency := range snapshot.Currencies {
		if currency != "" {
			currencies[key] = currency
		}
	}

	keys := make([]string, 0, len(snapshot.Positions))
	for key := range snapshot.Positions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var corrections []models.TransactionRecord
	var warnings []models.Warning

	for _, key := range keys {
		stated := snapshot.Positions[key]
		held, tracked := calculated[key]
		if !tracked {
			if stated.LessThanOrEqual(decimal.Zero) {
				continue
			}
			corrections = append(corrections, correction(snapshot.Broker, key, models.OperationCorrectionInc, stated, currencies[key], now))
			warnings = append(warnings, models.Warning{
				Stage: "reconcile",
				Message: fmt.Sprintf("%s %s: position seeded from snapshot (%s units), cost basis unknown",
					snapshot.Broker, key, stated.String()),
			})
			continue
		}
		if withinTolerance(held, stated) {
			continue
		}
		diff := stated.Sub(held)
		op := models.OperationCorrectionInc
		if diff.IsNegative() {
			op = models.OperationCorrectionDec
		}
		corrections = append(corrections, correction(snapshot.Broker, key, op, diff.Abs(), currencies[key], now))
		logger.L.Info("Reconciliation divergence detected",
			"broker", snapshot.Broker, "instrument", key,
			"calculated", held.String(), "stated", stated.String())
	}

	for _, h := range holdings {
		if h.Broker != snapshot.Broker {
			continue
		}
		if _, stated := snapshot.Positions[h.InstrumentKey]; stated {
			continue
		}
		warnings = append(warnings, models.Warning{
			Stage: "reconcile",
			Message: fmt.Sprintf("%s %s: held %s units but absent from snapshot, possibly closed or untracked by the broker",
				h.Broker, h.InstrumentKey, h.Quantity.String()),
		})
	}

	return corrections, warnings
}

func correction(broker, instrumentKey string, op models.Operation, quantity decimal.Decimal, currency string, now time.Time) models.TransactionRecord {
	rec := models.TransactionRecord{
		Broker:        broker,
		InstrumentKey: instrumentKey,
		Operation:     op,
		Quantity:      quantity,
		UnitPrice:     decimal.Zero,
		TotalAmount:   decimal.Zero,
		Currency:      currency,
		Timestamp:     now.UTC(),
	}
	rec.NaturalKey = rec.ComputeNaturalKey()
	return rec
}
