// Package revolut parses Revolut account statement exports (EUR accounts)
// in tabular form: date, description, money out, money in, balance.
package revolut

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/parsers"
)

var headerAliases = map[string]string{
	"data":              "date",
	"date":              "date",
	"descrizione":       "description",
	"description":       "description",
	"denaro in uscita":  "money_out",
	"money out":         "money_out",
	"denaro in entrata": "money_in",
	"money in":          "money_in",
	"valuta":            "currency",
	"currency":          "currency",
}

// descriptionPatterns classify a statement row by its description text.
// Matched in order; a captured group names the asset.
var descriptionPatterns = []struct {
	re   *regexp.Regexp
	verb string
}{
	{regexp.MustCompile(`Purchase of (\w+)`), "buy"},
	{regexp.MustCompile(`Sale of (\w+)`), "sell"},
	{regexp.MustCompile(`To investment account`), "transfer out"},
	{regexp.MustCompile(`From investment account`), "transfer in"},
	{regexp.MustCompile(`Pagamento da`), "deposit"},
	{regexp.MustCompile(`Ricarica`), "deposit"},
	{regexp.MustCompile(`Top.?[Uu]p`), "deposit"},
	{regexp.MustCompile(`Prelievo`), "withdraw"},
	{regexp.MustCompile(`Dividend`), "dividend"},
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error) {
	header, records, err := parsers.ReadDelimited(file)
	if err != nil {
		return nil, nil, fmt.Errorf("revolut: %w", err)
	}
	columns := parsers.MapHeader(header, headerAliases)
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("revolut: no recognized columns in header %v", header)
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
		// Neither money column set: a summary or merged row, no record.
		if f["money_out"] == "" && f["money_in"] == "" {
			continue
		}

		fields := map[string]string{
			"date":        f["date"],
			"description": f["description"],
			"currency":    f["currency"],
		}
		if fields["currency"] == "" {
			fields["currency"] = "EUR"
		}
		if f["money_out"] != "" {
			fields["amount"] = f["money_out"]
		} else {
			fields["amount"] = f["money_in"]
		}

		// Unmatched descriptions are retained as-is; the operation
		// vocabulary downstream maps them to OTHER rather than dropping.
		fields["operation"] = f["description"]
		for _, pat := range descriptionPatterns {
			if m := pat.re.FindStringSubmatch(f["description"]); m != nil {
				fields["operation"] = pat.verb
				if len(m) > 1 && m[1] != "" {
					fields["ticker"] = m[1]
				}
				break
			}
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
