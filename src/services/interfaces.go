package services

import (
	"context"
	"io"

	"github.com/username/warroom/backend/src/models"
)

// DocumentInput pairs a statement's metadata with its content stream.
type DocumentInput struct {
	Document models.Document
	Content  io.Reader
}

// IngestResult summarizes one ingestion run for a broker.
type IngestResult struct {
	RunID                string           `json:"run_id"`
	Broker               string           `json:"broker"`
	TransactionsInserted int              `json:"transactions_inserted"`
	HoldingsCount        int              `json:"holdings_count"`
	Reconciled           bool             `json:"reconciled"`
	CorrectionsApplied   int              `json:"corrections_applied"`
	Warnings             []models.Warning `json:"warnings,omitempty"`
}

// IngestService runs the full pipeline for a batch of statements from one
// broker: parse, normalize, persist, aggregate and (when a position snapshot
// is present) reconcile.
type IngestService interface {
	IngestDocuments(ctx context.Context, broker string, docs []DocumentInput) (*IngestResult, error)
	ListTransactions(ctx context.Context, broker string) ([]models.TransactionRecord, error)
	ListHoldings(ctx context.Context, broker string) ([]models.Holding, error)
}
