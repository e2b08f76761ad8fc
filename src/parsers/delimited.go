package parsers

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// SniffDelimiter guesses the delimiter of a delimited-text export from its
// header line. Broker exports disagree even within one broker (comma,
// semicolon, tab), so the header decides.
func SniffDelimiter(header string) rune {
	switch {
	case strings.Count(header, "\t") > 0:
		return '\t'
	case strings.Count(header, ";") > strings.Count(header, ","):
		return ';'
	default:
		return ','
	}
}

// ReadDelimited reads a delimited document into a header and records,
// sniffing the delimiter from the first line. Ragged rows are allowed; the
// adapters decide what a short row means.
func ReadDelimited(file io.Reader) (header []string, records [][]string, err error) {
	br := bufio.NewReader(file)
	headerLine, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("failed to read header line: %w", err)
	}
	headerLine = strings.TrimRight(headerLine, "\r\n")
	if strings.TrimSpace(headerLine) == "" {
		return nil, nil, fmt.Errorf("document has no header line")
	}

	delim := SniffDelimiter(headerLine)

	hr := csv.NewReader(strings.NewReader(headerLine))
	hr.Comma = delim
	header, err = hr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse header line: %w", err)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err = reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read records: %w", err)
	}
	return header, records, nil
}

// MapHeader resolves each header cell through an alias table of lowercased
// localized column names, returning column index -> canonical field name.
func MapHeader(header []string, aliases map[string]string) map[int]string {
	columns := make(map[int]string, len(header))
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(strings.Trim(cell, "\uFEFF")))
		if canonical, ok := aliases[key]; ok {
			columns[i] = canonical
		}
	}
	return columns
}
