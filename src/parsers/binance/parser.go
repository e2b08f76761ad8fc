// Package binance parses Binance transaction history CSV exports.
package binance

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/parsers"
)

var headerAliases = map[string]string{
	"id":                 "id",
	"datetime_tz_cet":    "date",
	"date_utc":           "date",
	"type":               "type",
	"label":              "label",
	"sent_amount":        "sent_amount",
	"sent_currency":      "sent_currency",
	"sent_value_eur":     "sent_value_eur",
	"received_amount":    "received_amount",
	"received_currency":  "received_currency",
	"received_value_eur": "received_value_eur",
	"fee_amount":         "fee_amount",
	"fee_currency":       "fee_currency",
	"fee_value_eur":      "fee_value_eur",
}

// labelVerbs refines the coarse export type: a Receive labelled Reward is a
// staking payout, an Airdrop is an airdrop.
var labelVerbs = map[string]string{
	"reward":  "staking reward",
	"airdrop": "airdrop",
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error) {
	header, records, err := parsers.ReadDelimited(file)
	if err != nil {
		return nil, nil, fmt.Errorf("binance: %w", err)
	}
	columns := parsers.MapHeader(header, headerAliases)
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("binance: no recognized columns in header %v", header)
	}

	var rows []models.RawRow
	var warnings []models.Warning

	for i, record := range records {
		line := i + 2
		f := map[string]string{}
		for col, name := range columns {
			if col < len(record) {
				f[name] = strings.TrimSpace(record[col])
			}
		}
		if f["date"] == "" {
			continue
		}

		legs := classify(f)
		if len(legs) == 0 {
			warnings = append(warnings, models.Warning{
				Stage:    "parse",
				Document: doc.Name,
				Line:     line,
				Message:  fmt.Sprintf("row type %q carries no asset movement", f["type"]),
			})
			continue
		}
		for _, leg := range legs {
			leg["date"] = f["date"]
			leg["currency"] = "EUR" // export values are EUR countervalues
			rows = append(rows, models.RawRow{
				Kind:           models.RowTransaction,
				Fields:         leg,
				SourceDocument: doc.Name,
				Line:           line,
			})
		}
	}

	return rows, warnings, nil
}

// classify maps one export row onto asset-level legs. A crypto-for-crypto
// Trade produces two legs: the sent asset leaves, the received asset enters
// at its EUR countervalue.
func classify(f map[string]string) []map[string]string {
	sent := leg("", f["sent_currency"], f["sent_amount"], f["sent_value_eur"])
	received := leg("", f["received_currency"], f["received_amount"], f["received_value_eur"])

	switch strings.ToLower(f["type"]) {
	case "buy":
		return withVerb(received, "buy")
	case "sell":
		return withVerb(sent, "sell")
	case "deposit":
		return withVerb(received, "deposit")
	case "receive":
		verb := "transfer in"
		if v, ok := labelVerbs[strings.ToLower(f["label"])]; ok {
			verb = v
		}
		return withVerb(received, verb)
	case "send":
		return withVerb(sent, "transfer out")
	case "trade":
		var legs []map[string]string
		legs = append(legs, withVerb(sent, "transfer out")...)
		legs = append(legs, withVerb(received, "swap")...)
		return legs
	default:
		// Unknown export types are retained; the vocabulary maps them to
		// OTHER downstream.
		if l := withVerb(received, f["type"]); l != nil {
			return l
		}
		return withVerb(sent, f["type"])
	}
}

func leg(verb, asset, amount, valueEUR string) map[string]string {
	if asset == "" || amount == "" {
		return nil
	}
	return map[string]string{
		"operation": verb,
		"ticker":    asset,
		"quantity":  amount,
		"amount":    valueEUR,
	}
}

func withVerb(l map[string]string, verb string) []map[string]string {
	if l == nil {
		return nil
	}
	l["operation"] = verb
	return []map[string]string{l}
}
