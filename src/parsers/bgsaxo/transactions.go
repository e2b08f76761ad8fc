// Package bgsaxo parses BG Saxo platform exports: the delimited transaction
// history and the tabular positions export.
package bgsaxo

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/parsers"
)

// transactionAliases maps the localized Italian export headers to canonical
// field names. The export wording drifted across platform versions, hence
// the duplicates.
var transactionAliases = map[string]string{
	"data":                  "date",
	"data operazione":       "date",
	"data di registrazione": "date",
	"ora":                   "time",
	"tipo":                  "operation",
	"operazione":            "operation",
	"evento":                "operation",
	"strumento":             "name",
	"prodotto":              "name",
	"isin":                  "isin",
	"ticker":                "ticker",
	"quantità":              "quantity",
	"qtà":                   "quantity",
	"prezzo":                "price",
	"prezzo di esecuzione":  "price",
	"importo":               "amount",
	"importo netto":         "amount",
	"valuta":                "currency",
	"descrizione":           "description",
}

// tradeTextRe matches the operation text variants the platform embeds in the
// event column: "Acquista 10 @ 96,92", "Vendi 5 @ 102", "Acquis. 3 @ 73,26".
var tradeTextRe = regexp.MustCompile(`(?i)(acquista|acquisto|acquis\.|vendita|vendi)\s+([\d.,]+)\s*@\s*([\d.,]+)`)

type TransactionsParser struct{}

func NewTransactionsParser() *TransactionsParser {
	return &TransactionsParser{}
}

func (p *TransactionsParser) Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error) {
	header, records, err := parsers.ReadDelimited(file)
	if err != nil {
		return nil, nil, fmt.Errorf("bgsaxo transactions: %w", err)
	}
	columns := parsers.MapHeader(header, transactionAliases)
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("bgsaxo transactions: no recognized columns in header %v", header)
	}

	var rows []models.RawRow
	var warnings []models.Warning

	for i, record := range records {
		line := i + 2 // header is line 1
		fields := map[string]string{}
		for col, name := range columns {
			if col < len(record) {
				fields[name] = strings.TrimSpace(record[col])
			}
		}

		if fields["date"] == "" {
			if !rowIsEmpty(fields) {
				warnings = append(warnings, models.Warning{
					Stage:    "parse",
					Document: doc.Name,
					Line:     line,
					Message:  "skipping row without a date",
				})
			}
			continue
		}

		// Trade rows carry quantity and price inside the event text rather
		// than in their own columns.
		if fields["quantity"] == "" {
			text := fields["operation"] + " " + fields["description"]
			if m := tradeTextRe.FindStringSubmatch(text); m != nil {
				fields["operation"] = m[1]
				fields["quantity"] = m[2]
				fields["price"] = m[3]
			}
		}

		if fields["operation"] == "" && fields["description"] != "" {
			fields["operation"] = fields["description"]
		}
		if fields["operation"] == "" {
			warnings = append(warnings, models.Warning{
				Stage:    "parse",
				Document: doc.Name,
				Line:     line,
				Message:  "skipping row without an operation",
			})
			continue
		}

		rows = append(rows, models.RawRow{
			Kind:           models.RowTransaction,
			Fields:         fields,
			SourceDocument: doc.Name,
			Line:           line,
		})
	}

	return rows, warnings, nil
}

func rowIsEmpty(fields map[string]string) bool {
	for _, v := range fields {
		if v != "" {
			return false
		}
	}
	return true
}
