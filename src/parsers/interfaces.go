package parsers

import (
	"io"

	"github.com/username/warroom/backend/src/models"
)

// Parser is a broker/format adapter. It extracts raw field rows from one
// document, reporting unusable rows as warnings instead of failing: the
// returned error is reserved for documents that cannot be read at all.
type Parser interface {
	Parse(file io.Reader, doc models.Document) ([]models.RawRow, []models.Warning, error)
}
