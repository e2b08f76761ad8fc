package parsers

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/warroom/backend/src/models"
)

type stubParser struct{ id string }

func (s *stubParser) Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error) {
	return []models.RawRow{{Kind: models.RowTransaction, Fields: map[string]string{"id": s.id}}}, nil, nil
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	r.Register("bgsaxo", models.FormatDelimitedText, &stubParser{id: "tx"})
	r.Register("bgsaxo", models.FormatTabularSpreadsheet, &stubParser{id: "pos"})

	p, err := r.Get("bgsaxo", models.FormatDelimitedText)
	require.NoError(t, err)
	rows, _, _ := p.Parse(nil, models.Document{})
	assert.Equal(t, "tx", rows[0].Fields["id"])

	p, err = r.Get("bgsaxo", models.FormatTabularSpreadsheet)
	require.NoError(t, err)
	rows, _, _ = p.Parse(nil, models.Document{})
	assert.Equal(t, "pos", rows[0].Fields["id"])
}

func TestRegistryUnknownPair(t *testing.T) {
	r := NewRegistry()
	r.Register("bgsaxo", models.FormatDelimitedText, &stubParser{})

	_, err := r.Get("bgsaxo", models.FormatPaginatedText)
	assert.Error(t, err)

	_, err = r.Get("unknown", models.FormatDelimitedText)
	assert.Error(t, err)
}

func TestRegistryReplacesRegistration(t *testing.T) {
	r := NewRegistry()
	r.Register("bgsaxo", models.FormatDelimitedText, &stubParser{id: "old"})
	r.Register("bgsaxo", models.FormatDelimitedText, &stubParser{id: "new"})

	p, err := r.Get("bgsaxo", models.FormatDelimitedText)
	require.NoError(t, err)
	rows, _, _ := p.Parse(nil, models.Document{})
	assert.Equal(t, "new", rows[0].Fields["id"])
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, '\t', SniffDelimiter("a\tb\tc"))
	assert.Equal(t, ';', SniffDelimiter("a;b;c"))
	assert.Equal(t, ',', SniffDelimiter("a,b,c"))
	assert.Equal(t, ';', SniffDelimiter("Importo, netto;Valuta;Data"))
}

func TestReadDelimitedRaggedRows(t *testing.T) {
	input := "Data;Importo;Valuta\n19-09-2024;100;EUR\n20-09-2024;50\n"
	header, records, err := ReadDelimited(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Data", "Importo", "Valuta"}, header)
	require.Len(t, records, 2)
	assert.Len(t, records[1], 2)
}

func TestReadDelimitedEmptyDocument(t *testing.T) {
	_, _, err := ReadDelimited(strings.NewReader(""))
	assert.Error(t, err)
}

func TestMapHeader(t *testing.T) {
	aliases := map[string]string{"data": "date", "importo": "amount"}
	columns := MapHeader([]string{" Data ", "IMPORTO", "Sconosciuto"}, aliases)
	assert.Equal(t, map[int]string{0: "date", 1: "amount"}, columns)
}
