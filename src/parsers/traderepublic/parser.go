// Package traderepublic parses text extracted from Trade Republic account
// statements (Estratto conto). The statement is paginated text: a
// transaction starts at a "dd mon" date line, the verb and details follow
// on nearby lines in no guaranteed order.
package traderepublic

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/username/warroom/backend/src/models"
)

const windowSize = 6 // lines scanned after the verb line for detail fields

var (
	dateLineRe = regexp.MustCompile(`^(\d{1,2})\s+([a-z]{3})$`)
	yearLineRe = regexp.MustCompile(`^(\d{4})$`)
	tradeRe    = regexp.MustCompile(`(Buy|Sell)\s+trade\s+([A-Z0-9]{12})\s+(.+?),\s*quantity:\s*([\d.,]+)`)

	// Named-field patterns scanned over the detail window. First match per
	// field per window wins; fixed offsets are never assumed.
	fieldPatterns = map[string]*regexp.Regexp{
		"amount":   regexp.MustCompile(`^([+-]?[\d.,]+)\s*€$`),
		"isin":     regexp.MustCompile(`\b([A-Z]{2}[A-Z0-9]{9}[0-9])\b`),
		"quantity": regexp.MustCompile(`quantity:\s*([\d.,]+)`),
	}
)

// statementVerbs are the transaction trigger tokens of the Italian
// statement layout.
var statementVerbs = []string{"Bonifico", "Commercio", "Rendimento", "Interessi", "Imposte", "Commissione"}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error) {
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSpace(scanner.Text()))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("traderepublic: reading statement text: %w", err)
	}

	var rows []models.RawRow
	var warnings []models.Warning
	year := "" // running year hint, updated by textual year markers

	for i := 0; i < len(lines); i++ {
		if !dateLineRe.MatchString(strings.ToLower(lines[i])) {
			continue
		}
		date := strings.ToLower(lines[i])

		// A year marker directly after the date overrides the running hint.
		next := i + 1
		if next < len(lines) {
			if m := yearLineRe.FindStringSubmatch(lines[next]); m != nil {
				year = m[1]
				next++
			}
		}
		if next >= len(lines) {
			break
		}

		verbLine := lines[next]
		verb := matchVerb(verbLine)
		if verb == "" {
			continue
		}

		fields := map[string]string{
			"date":        date,
			"year":        year,
			"currency":    "EUR",
			"description": verbLine,
		}

		switch verb {
		case "Commercio":
			if m := tradeRe.FindStringSubmatch(verbLine); m != nil {
				fields["operation"] = m[1] // Buy / Sell
				fields["isin"] = m[2]
				fields["name"] = m[3]
				fields["quantity"] = m[4]
			} else {
				fields["operation"] = verbLine
			}
		case "Bonifico":
			switch {
			case strings.Contains(verbLine, "Outgoing"):
				fields["operation"] = "prelievo"
			case strings.Contains(verbLine, "Deposito") || strings.Contains(verbLine, "Top up"):
				fields["operation"] = "deposito"
			default:
				fields["operation"] = "bonifico"
			}
		default:
			fields["operation"] = verb
		}

		// Scan the bounded detail window for whatever fields are still
		// missing. The window ends early at the next date line.
		for j := next + 1; j < len(lines) && j <= next+windowSize; j++ {
			if dateLineRe.MatchString(strings.ToLower(lines[j])) {
				break
			}
			for name, re := range fieldPatterns {
				if fields[name] != "" {
					continue
				}
				if m := re.FindStringSubmatch(lines[j]); m != nil {
					fields[name] = m[1]
				}
			}
		}

		if fields["amount"] == "" && fields["quantity"] == "" {
			warnings = append(warnings, models.Warning{
				Stage:    "parse",
				Document: doc.Name,
				Line:     i + 1,
				Message:  fmt.Sprintf("skipping %s entry without amount or quantity", verb),
			})
			i = next
			continue
		}

		rows = append(rows, models.RawRow{
			Kind:           models.RowTransaction,
			Fields:         fields,
			SourceDocument: doc.Name,
			Line:           i + 1,
		})
		i = next
	}

	return rows, warnings, nil
}

func matchVerb(line string) string {
	for _, v := range statementVerbs {
		if strings.HasPrefix(line, v) {
			return v
		}
	}
	return ""
}
