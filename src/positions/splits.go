package positions

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/warroom/backend/src/models"
)

// SplitAdjustment expresses a stock split as a zero-amount correction on the
// ledger. A forward split adds the extra shares at zero cost, so total cost
// is preserved and the average rescales by the ratio.
func SplitAdjustment(broker, instrumentKey string, heldQuantity, ratio decimal.Decimal, at time.Time) (models.TransactionRecord, bool) {
	if ratio.LessThanOrEqual(decimal.Zero) || heldQuantity.LessThanOrEqual(decimal.Zero) {
		return models.TransactionRecord{}, false
	}
	newQuantity := heldQuantity.Mul(ratio)
	delta := newQuantity.Sub(heldQuantity)
	if delta.IsZero() {
		return models.TransactionRecord{}, false
	}
	op := models.OperationCorrectionInc
	if delta.IsNegative() {
		op = models.OperationCorrectionDec
		delta = delta.Abs()
	}
	rec := models.TransactionRecord{
		Broker:        broker,
		InstrumentKey: instrumentKey,
		Operation:     op,
		Quantity:      delta,
		UnitPrice:     decimal.Zero,
		TotalAmount:   decimal.Zero,
		Timestamp:     at.UTC(),
	}
	rec.NaturalKey = rec.ComputeNaturalKey()
	return rec, true
}
