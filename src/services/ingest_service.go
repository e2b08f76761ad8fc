package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/username/warroom/backend/src/ledger"
	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/normalize"
	"github.com/username/warroom/backend/src/parsers"
	"github.com/username/warroom/backend/src/positions"
	"github.com/username/warroom/backend/src/reconcile"
	"golang.org/x/sync/errgroup"
)

type ingestServiceImpl struct {
	registry   *parsers.Registry
	normalizer *normalize.Normalizer
	store      *ledger.Store
	workers    int
}

func NewIngestService(registry *parsers.Registry, normalizer *normalize.Normalizer, store *ledger.Store, workers int) IngestService {
	if workers < 1 {
		workers = 1
	}
	return &ingestServiceImpl{
		registry:   registry,
		normalizer: normalizer,
		store:      store,
		workers:    workers,
	}
}

// IngestDocuments runs the pipeline for one broker. Per-row problems surface
// as warnings and the run continues; only storage failure aborts, leaving
// the prior ledger intact.
func (s *ingestServiceImpl) IngestDocuments(ctx context.Context, broker string, docs []DocumentInput) (*IngestResult, error) {
	result := &IngestResult{
		RunID:  uuid.New().String(),
		Broker: broker,
	}
	logger.L.Info("Starting ingestion run", "run_id", result.RunID, "broker", broker, "documents", len(docs))

	rows, parseWarnings := s.parseAll(ctx, docs)
	result.Warnings = append(result.Warnings, parseWarnings...)

	var txRows, posRows []models.RawRow
	for _, row := range rows {
		if row.Kind == models.RowPosition {
			posRows = append(posRows, row)
		} else {
			txRows = append(txRows, row)
		}
	}

	records, normWarnings := s.normalizer.Normalize(ctx, broker, txRows)
	result.Warnings = append(result.Warnings, normWarnings...)

	inserted, err := s.store.ReplaceBroker(ctx, broker, records)
	if err != nil {
		return nil, fmt.Errorf("failed to store ledger for broker %s: %w", broker, err)
	}
	result.TransactionsInserted = inserted

	stored, err := s.store.ListTransactions(ctx, broker)
	if err != nil {
		return nil, fmt.Errorf("failed to reload ledger for broker %s: %w", broker, err)
	}
	holdings, aggWarnings := positions.Aggregate(stored)
	result.Warnings = append(result.Warnings, aggWarnings...)

	if len(posRows) > 0 {
		now := time.Now().UTC()
		snapshot, snapWarnings := s.normalizer.BuildSnapshot(ctx, broker, posRows, now)
		result.Warnings = append(result.Warnings, snapWarnings...)

		corrections, recWarnings := reconcile.Reconcile(holdings, snapshot, now)
		result.Warnings = append(result.Warnings, recWarnings...)

		if len(corrections) > 0 {
			applied, err := s.store.Append(ctx, corrections)
			if err != nil {
				return nil, fmt.Errorf("failed to store reconciliation corrections for broker %s: %w", broker, err)
			}
			result.CorrectionsApplied = applied

			stored, err = s.store.ListTransactions(ctx, broker)
			if err != nil {
				return nil, fmt.Errorf("failed to reload ledger for broker %s: %w", broker, err)
			}
			holdings, aggWarnings = positions.Aggregate(stored)
			result.Warnings = append(result.Warnings, aggWarnings...)
		}
		for i := range holdings {
			holdings[i].LastReconciledAt = &now
		}
		result.Reconciled = true
	}

	if err := s.store.ReplaceHoldings(ctx, broker, holdings); err != nil {
		return nil, fmt.Errorf("failed to store holdings for broker %s: %w", broker, err)
	}
	result.HoldingsCount = len(holdings)

	if err := s.store.RecordImport(ctx, result.RunID, broker, result.TransactionsInserted, result.HoldingsCount, len(result.Warnings)); err != nil {
		logger.L.Warn("Failed to record import log", "run_id", result.RunID, "error", err)
	}

	for _, w := range result.Warnings {
		logger.L.Warn("Ingestion warning", "run_id", result.RunID, "warning", w.String())
	}
	logger.L.Info("Ingestion run complete",
		"run_id", result.RunID, "broker", broker,
		"transactions", result.TransactionsInserted,
		"holdings", result.HoldingsCount,
		"corrections", result.CorrectionsApplied,
		"warnings", len(result.Warnings))
	return result, nil
}

// parseAll fans documents out over a bounded worker pool. A document with no
// registered adapter or a malformed stream becomes a warning, not a failure.
// Each document's results land in its own slot, so row order follows the
// input document order regardless of goroutine scheduling and replaying the
// same input always yields the same ledger.
func (s *ingestServiceImpl) parseAll(ctx context.Context, docs []DocumentInput) ([]models.RawRow, []models.Warning) {
	type parseResult struct {
		rows     []models.RawRow
		warnings []models.Warning
	}
	results := make([]parseResult, len(docs))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, doc := range docs {
		g.Go(func() error {
			parser, err := s.registry.Get(doc.Document.Broker, doc.Document.Format)
			if err != nil {
				results[i].warnings = append(results[i].warnings, models.Warning{
					Stage:    "parse",
					Document: doc.Document.Name,
					Message:  err.Error(),
				})
				return nil
			}
			docRows, docWarnings, err := parser.Parse(doc.Content, doc.Document)
			if err != nil {
				results[i].warnings = append(results[i].warnings, models.Warning{
					Stage:    "parse",
					Document: doc.Document.Name,
					Message:  fmt.Sprintf("document rejected: %v", err),
				})
				return nil
			}
			results[i].rows = docRows
			results[i].warnings = docWarnings
			if len(docRows) == 0 {
				// Every row of the document was a summary line or otherwise
				// unusable. Snapshot documents with actual positions still
				// produce rows, so they never trip this.
				results[i].warnings = append(results[i].warnings, models.Warning{
					Stage:    "parse",
					Document: doc.Document.Name,
					Message:  "document produced no rows",
				})
			}
			return nil
		})
	}
	g.Wait()

	var rows []models.RawRow
	var warnings []models.Warning
	for _, res := range results {
		rows = append(rows, res.rows...)
		warnings = append(warnings, res.warnings...)
	}
	return rows, warnings
}

func (s *ingestServiceImpl) ListTransactions(ctx context.Context, broker string) ([]models.TransactionRecord, error) {
	return s.store.ListTransactions(ctx, broker)
}

func (s *ingestServiceImpl) ListHoldings(ctx context.Context, broker string) ([]models.Holding, error) {
	return s.store.ListHoldings(ctx, broker)
}
