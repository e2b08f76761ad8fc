package bgsaxo

import (
	"fmt"
	"io"
	"strings"

	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/parsers"
)

var positionAliases = map[string]string{
	"strumento":           "name",
	"ticker":              "ticker",
	"isin":                "isin",
	"quantità":            "quantity",
	"prezzo di apertura":  "open_price",
	"valuta":              "currency",
	"categoria attività":  "asset_class",
	"tipo attività":       "asset_class",
	"data/ora apertura":   "date",
	"long/short":          "position_type",
}

// PositionsParser reads the tabular positions export into snapshot rows.
// Positions documents legitimately yield zero transaction rows.
type PositionsParser struct{}

func NewPositionsParser() *PositionsParser {
	return &PositionsParser{}
}

func (p *PositionsParser) Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error) {
	header, records, err := parsers.ReadDelimited(file)
	if err != nil {
		return nil, nil, fmt.Errorf("bgsaxo positions: %w", err)
	}
	columns := parsers.MapHeader(header, positionAliases)
	if len(columns) == 0 {
		return nil, nil, fmt.Errorf("bgsaxo positions: no recognized columns in header %v", header)
	}

	var rows []models.RawRow
	var warnings []models.Warning

	for i, record := range records {
		line := i + 2
		fields := map[string]string{}
		for col, name := range columns {
			if col < len(record) {
				fields[name] = strings.TrimSpace(record[col])
			}
		}

		// Summary and group-header rows have no quantity cell; a merged
		// cell in the export shows up the same way. Both mean "no record".
		if fields["quantity"] == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(fields["name"]), "totale") {
			continue
		}
		if fields["isin"] == "" && fields["ticker"] == "" && fields["name"] == "" {
			warnings = append(warnings, models.Warning{
				Stage:    "parse",
				Document: doc.Name,
				Line:     line,
				Message:  "skipping position row without an instrument",
			})
			continue
		}

		rows = append(rows, models.RawRow{
			Kind:           models.RowPosition,
			Fields:         fields,
			SourceDocument: doc.Name,
			Line:           line,
		})
	}

	return rows, warnings, nil
}
