// Package ledger persists the append-only transaction ledger and the
// derived holdings in sqlite.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
	_ "modernc.org/sqlite"
)

const createTableStatement = `
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		broker TEXT NOT NULL,
		instrument_key TEXT NOT NULL,
		operation TEXT NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		currency TEXT,
		timestamp TEXT NOT NULL,
		source_document TEXT,
		natural_key TEXT NOT NULL,
		UNIQUE(broker, natural_key)
	);
	CREATE INDEX IF NOT EXISTS idx_transactions_broker ON transactions(broker);
	CREATE INDEX IF NOT EXISTS idx_transactions_broker_ts ON transactions(broker, timestamp);

	CREATE TABLE IF NOT EXISTS holdings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		broker TEXT NOT NULL,
		instrument_key TEXT NOT NULL,
		display_name TEXT,
		quantity TEXT NOT NULL,
		average_cost TEXT NOT NULL,
		currency TEXT,
		cost_basis_known INTEGER DEFAULT 1,
		last_reconciled_at TEXT,
		UNIQUE(broker, instrument_key)
	);
	CREATE INDEX IF NOT EXISTS idx_holdings_broker ON holdings(broker);

	CREATE TABLE IF NOT EXISTS import_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		broker TEXT NOT NULL,
		transactions_inserted INTEGER DEFAULT 0,
		holdings_count INTEGER DEFAULT 0,
		warnings INTEGER DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

// Store wraps the sqlite database. The mutex serializes broker-scoped
// replacement against reads, so no partial ledger is ever observable.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewStore(databasePath string) (*Store, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", databasePath, err)
	}
	if _, err := db.Exec(createTableStatement); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	s := &Store{db: db}
	s.migrateHoldingsTable()
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// migrateHoldingsTable backfills columns added after the first release,
// following the PRAGMA table_info check pattern.
func (s *Store) migrateHoldingsTable() {
	rows, err := s.db.Query("PRAGMA table_info(holdings)")
	if err != nil {
		logger.L.Error("Error querying table schema for 'holdings'", "error", err)
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info for 'holdings'", "error", err)
			return
		}
		columnExists[name] = true
	}
	if err := rows.Err(); err != nil {
		logger.L.Error("Error iterating over column info for 'holdings'", "error", err)
		return
	}

	if !columnExists["cost_basis_known"] {
		if _, err := s.db.Exec("ALTER TABLE holdings ADD COLUMN cost_basis_known INTEGER DEFAULT 1"); err != nil {
			logger.L.Error("Error adding 'cost_basis_known' column to 'holdings' table", "error", err)
		} else {
			logger.L.Info("Added 'cost_basis_known' column to 'holdings' table")
		}
	}
	if !columnExists["last_reconciled_at"] {
		if _, err := s.db.Exec("ALTER TABLE holdings ADD COLUMN last_reconciled_at TEXT"); err != nil {
			logger.L.Error("Error adding 'last_reconciled_at' column to 'holdings' table", "error", err)
		} else {
			logger.L.Info("Added 'last_reconciled_at' column to 'holdings' table")
		}
	}
}

// ReplaceBroker atomically replaces the full ledger of one broker: delete
// then insert in a single transaction, so a mid-batch failure rolls back to
// the prior complete state. Returns the number of rows inserted (duplicates
// within the batch dedup on natural key and are skipped).
func (s *Store) ReplaceBroker(ctx context.Context, broker string, records []models.TransactionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE broker = ?`, broker); err != nil {
		return 0, fmt.Errorf("error clearing ledger for broker %s: %w", broker, err)
	}

	inserted, err := insertBatch(ctx, dbTx, records)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing ledger replacement: %w", err)
	}
	return inserted, nil
}

// Append adds records without clearing (reconciliation adjustments).
func (s *Store) Append(ctx context.Context, records []models.TransactionRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	inserted, err := insertBatch(ctx, dbTx, records)
	if err != nil {
		return 0, err
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing appended records: %w", err)
	}
	return inserted, nil
}

func insertBatch(ctx context.Context, dbTx *sql.Tx, records []models.TransactionRecord) (int, error) {
	stmt, err := dbTx.PrepareContext(ctx, `INSERT INTO transactions (broker, instrument_key, operation, quantity, unit_price, total_amount, currency, timestamp, source_document, natural_key) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("error preparing insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.Broker, rec.InstrumentKey, string(rec.Operation),
			rec.Quantity.String(), rec.UnitPrice.String(), rec.TotalAmount.String(),
			rec.Currency, rec.Timestamp.UTC().Format(time.RFC3339), rec.SourceDocument, rec.NaturalKey)
		if err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
				logger.L.Debug("Skipping duplicate transaction", "broker", rec.Broker, "natural_key", rec.NaturalKey)
				continue
			}
			return 0, fmt.Errorf("error inserting transaction (instrument %s): %w", rec.InstrumentKey, err)
		}
		inserted++
	}
	return inserted, nil
}

// ListTransactions returns a broker's ledger ordered by timestamp then
// insertion order.
func (s *Store) ListTransactions(ctx context.Context, broker string) ([]models.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, broker, instrument_key, operation, quantity, unit_price, total_amount, currency, timestamp, source_document, natural_key FROM transactions WHERE broker = ? ORDER BY timestamp ASC, id ASC`, broker)
	if err != nil {
		return nil, fmt.Errorf("error querying transactions for broker %s: %w", broker, err)
	}
	defer rows.Close()

	var records []models.TransactionRecord
	for rows.Next() {
		var rec models.TransactionRecord
		var op, qty, price, amount, ts string
		if err := rows.Scan(&rec.ID, &rec.Broker, &rec.InstrumentKey, &op, &qty, &price, &amount, &rec.Currency, &ts, &rec.SourceDocument, &rec.NaturalKey); err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		rec.Operation = models.Operation(op)
		if rec.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("error decoding quantity %q: %w", qty, err)
		}
		if rec.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("error decoding unit price %q: %w", price, err)
		}
		if rec.TotalAmount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("error decoding total amount %q: %w", amount, err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339, ts); err != nil {
			return nil, fmt.Errorf("error decoding timestamp %q: %w", ts, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transaction rows: %w", err)
	}
	return records, nil
}

// ReplaceHoldings rebuilds a broker's derived holdings wholesale.
func (s *Store) ReplaceHoldings(ctx context.Context, broker string, holdings []models.Holding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning database transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM holdings WHERE broker = ?`, broker); err != nil {
		return fmt.Errorf("error clearing holdings for broker %s: %w", broker, err)
	}

	stmt, err := dbTx.PrepareContext(ctx, `INSERT INTO holdings (broker, instrument_key, display_name, quantity, average_cost, currency, cost_basis_known, last_reconciled_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing holdings insert: %w", err)
	}
	defer stmt.Close()

	for _, h := range holdings {
		var reconciledAt interface{}
		if h.LastReconciledAt != nil {
			reconciledAt = h.LastReconciledAt.UTC().Format(time.RFC3339)
		}
		costKnown := 0
		if h.CostBasisKnown {
			costKnown = 1
		}
		if _, err := stmt.ExecContext(ctx, h.Broker, h.InstrumentKey, h.DisplayName,
			h.Quantity.String(), h.AverageCost.String(), h.Currency, costKnown, reconciledAt); err != nil {
			return fmt.Errorf("error inserting holding %s: %w", h.InstrumentKey, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("error committing holdings: %w", err)
	}
	return nil
}

// ListHoldings returns holdings for one broker, or for all brokers when
// broker is empty.
func (s *Store) ListHoldings(ctx context.Context, broker string) ([]models.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT broker, instrument_key, display_name, quantity, average_cost, currency, cost_basis_known, last_reconciled_at FROM holdings`
	args := []interface{}{}
	if broker != "" {
		query += ` WHERE broker = ?`
		args = append(args, broker)
	}
	query += ` ORDER BY broker ASC, instrument_key ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		var qty, avg string
		var costKnown int
		var reconciledAt sql.NullString
		if err := rows.Scan(&h.Broker, &h.InstrumentKey, &h.DisplayName, &qty, &avg, &h.Currency, &costKnown, &reconciledAt); err != nil {
			return nil, fmt.Errorf("error scanning holding row: %w", err)
		}
		if h.Quantity, err = decimal.NewFromString(qty); err != nil {
			return nil, fmt.Errorf("error decoding holding quantity %q: %w", qty, err)
		}
		if h.AverageCost, err = decimal.NewFromString(avg); err != nil {
			return nil, fmt.Errorf("error decoding average cost %q: %w", avg, err)
		}
		h.CostBasisKnown = costKnown != 0
		if reconciledAt.Valid && reconciledAt.String != "" {
			if t, err := time.Parse(time.RFC3339, reconciledAt.String); err == nil {
				h.LastReconciledAt = &t
			}
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over holding rows: %w", err)
	}
	return holdings, nil
}

// RecordImport logs one ingestion run outcome.
func (s *Store) RecordImport(ctx context.Context, runID, broker string, transactionsInserted, holdingsCount, warnings int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO import_log (run_id, broker, transactions_inserted, holdings_count, warnings) VALUES (?, ?, ?, ?, ?)`,
		runID, broker, transactionsInserted, holdingsCount, warnings)
	if err != nil {
		return fmt.Errorf("error recording import log: %w", err)
	}
	return nil
}
