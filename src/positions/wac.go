// Package positions derives holdings from the transaction ledger using
// weighted average cost.
package positions

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/username/warroom/backend/src/models"
)

// dustThreshold hides residual quantities left behind by rounding. Positions
// at or below it are treated as closed.
var dustThreshold = decimal.New(1, -8) // 1e-8

// inflowOps add quantity at the record's cost; outflowOps remove quantity at
// the running average. Everything else (dividends, fees, interest, unmapped
// verbs) is cash activity with no position impact.
var inflowOps = map[models.Operation]bool{
	models.OperationBuy:           true,
	models.OperationDeposit:       true,
	models.OperationTransferIn:    true,
	models.OperationStakingReward: true,
	models.OperationAirdrop:       true,
	models.OperationSwap:          true,
	models.OperationCorrectionInc: true,
}

var outflowOps = map[models.Operation]bool{
	models.OperationSell:          true,
	models.OperationWithdraw:      true,
	models.OperationTransferOut:   true,
	models.OperationCorrectionDec: true,
}

type position struct {
	broker        string
	instrumentKey string
	currency      string
	quantity      decimal.Decimal
	totalCost     decimal.Decimal
	costDiluted   bool
}

// Aggregate replays a ledger into holdings. Records are ordered by timestamp
// (insertion order breaking ties) before folding, so the result is
// deterministic regardless of input order.
func Aggregate(records []models.TransactionRecord) ([]models.Holding, []models.Warning) {
	sorted := make([]models.TransactionRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		}
		return sorted[i].ID < sorted[j].ID
	})

	type groupKey struct {
		broker        string
		instrumentKey string
	}
	positions := make(map[groupKey]*position)
	order := []groupKey{}
	var warnings []models.Warning

	for _, rec := range sorted {
		if !inflowOps[rec.Operation] && !outflowOps[rec.Operation] {
			continue
		}
		key := groupKey{rec.Broker, rec.InstrumentKey}
		pos, ok := positions[key]
		if !ok {
			pos = &position{
				broker:        rec.Broker,
				instrumentKey: rec.InstrumentKey,
				currency:      rec.Currency,
				quantity:      decimal.Zero,
				totalCost:     decimal.Zero,
			}
			positions[key] = pos
			order = append(order, key)
		}
		if pos.currency == "" {
			pos.currency = rec.Currency
		}

		if inflowOps[rec.Operation] {
			pos.quantity = pos.quantity.Add(rec.Quantity)
			pos.totalCost = pos.totalCost.Add(rec.TotalAmount)
			if rec.TotalAmount.IsZero() && !rec.Quantity.IsZero() {
				// zero-cost inflow (airdrop, correction) dilutes the average
				pos.costDiluted = true
			}
			continue
		}

		// outflow at the running average
		if rec.Quantity.GreaterThan(pos.quantity) {
			warnings = append(warnings, models.Warning{
				Stage: "aggregate",
				Message: fmt.Sprintf("%s %s: outflow of %s exceeds held quantity %s; position clamped to zero",
					rec.Broker, rec.InstrumentKey, rec.Quantity.String(), pos.quantity.String()),
			})
			pos.quantity = decimal.Zero
			pos.totalCost = decimal.Zero
			continue
		}
		if pos.quantity.IsZero() {
			continue
		}
		avg := pos.totalCost.Div(pos.quantity)
		pos.totalCost = pos.totalCost.Sub(avg.Mul(rec.Quantity))
		pos.quantity = pos.quantity.Sub(rec.Quantity)
		if pos.quantity.IsZero() {
			pos.totalCost = decimal.Zero
		}
	}

	var holdings []models.Holding
	for _, key := range order {
		pos := positions[key]
		if pos.quantity.LessThanOrEqual(dustThreshold) {
			continue
		}
		avg := decimal.Zero
		if pos.quantity.GreaterThan(decimal.Zero) {
			avg = pos.totalCost.Div(pos.quantity).Round(8)
		}
		holdings = append(holdings, models.Holding{
			Broker:         pos.broker,
			InstrumentKey:  pos.instrumentKey,
			DisplayName:    pos.instrumentKey,
			Quantity:       pos.quantity,
			AverageCost:    avg,
			Currency:       pos.currency,
			CostBasisKnown: !(pos.costDiluted && pos.totalCost.IsZero()),
		})
	}
	sort.Slice(holdings, func(i, j int) bool {
		if holdings[i].Broker != holdings[j].Broker {
			return holdings[i].Broker < holdings[j].Broker
		}
		return holdings[i].InstrumentKey < holdings[j].InstrumentKey
	})
	return holdings, warnings
}
