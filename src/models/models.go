package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Operation is the canonical operation code of a ledger record. Every raw
// broker verb maps to exactly one of these; unmapped verbs become
// OperationOther and are kept for auditability.
type Operation string

const (
	OperationBuy           Operation = "BUY"
	OperationSell          Operation = "SELL"
	OperationDeposit       Operation = "DEPOSIT"
	OperationWithdraw      Operation = "WITHDRAW"
	OperationDividend      Operation = "DIVIDEND"
	OperationFee           Operation = "FEE"
	OperationInterest      Operation = "INTEREST"
	OperationTransferIn    Operation = "TRANSFER_IN"
	OperationTransferOut   Operation = "TRANSFER_OUT"
	OperationStakingReward Operation = "STAKING_REWARD"
	OperationAirdrop       Operation = "AIRDROP"
	OperationSwap          Operation = "SWAP"
	OperationCorrectionInc Operation = "CORRECTION_INC"
	OperationCorrectionDec Operation = "CORRECTION_DEC"
	OperationOther         Operation = "OTHER"
)

// DocumentFormat is the declared format of an uploaded statement.
type DocumentFormat string

const (
	FormatDelimitedText      DocumentFormat = "DELIMITED_TEXT"
	FormatTabularSpreadsheet DocumentFormat = "TABULAR_SPREADSHEET"
	FormatPaginatedText      DocumentFormat = "PAGINATED_TEXT"
)

// Document identifies one source statement handed to the parser registry.
type Document struct {
	Broker string         `json:"broker"`
	Format DocumentFormat `json:"format"`
	Name   string         `json:"name"` // source filename, kept as provenance
}

// RowKind distinguishes transaction history rows from point-in-time position
// rows. Position rows feed the reconciliation snapshot, never the ledger.
type RowKind string

const (
	RowTransaction RowKind = "transaction"
	RowPosition    RowKind = "position"
)

// RawRow is the parser output: a bag of canonical field names with string
// values straight from the document, plus provenance. Field values are not
// normalized here; the normalization layer owns number/date/verb parsing.
//
// Canonical field names used by adapters: date, year, time, operation, name,
// isin, ticker, quantity, price, amount, currency, description, asset_class.
type RawRow struct {
	Kind           RowKind
	Fields         map[string]string
	SourceDocument string
	Line           int
}

// Warning is a recoverable problem accumulated during a run. Warnings are
// returned with results and logged, never silently dropped.
type Warning struct {
	Stage    string `json:"stage"` // parse, normalize, resolve, aggregate, reconcile
	Document string `json:"document,omitempty"`
	Line     int    `json:"line,omitempty"`
	Message  string `json:"message"`
}

func (w Warning) String() string {
	if w.Document != "" && w.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d: %s", w.Stage, w.Document, w.Line, w.Message)
	}
	if w.Document != "" {
		return fmt.Sprintf("[%s] %s: %s", w.Stage, w.Document, w.Message)
	}
	return fmt.Sprintf("[%s] %s", w.Stage, w.Message)
}

// TransactionRecord is one immutable ledger entry. Quantity and UnitPrice are
// magnitudes; direction is carried by Operation. Uniqueness is enforced on
// (broker, natural key).
type TransactionRecord struct {
	ID             int64           `json:"id,omitempty"`
	Broker         string          `json:"broker"`
	InstrumentKey  string          `json:"instrument_key"` // ISIN when known, else resolved ticker
	Operation      Operation       `json:"operation"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Currency       string          `json:"currency"`
	Timestamp      time.Time       `json:"timestamp"`
	SourceDocument string          `json:"source_document"`
	NaturalKey     string          `json:"natural_key"`
}

// ComputeNaturalKey derives the dedup key from the identifying fields.
func (t *TransactionRecord) ComputeNaturalKey() string {
	input := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		t.Broker,
		t.Timestamp.UTC().Format(time.RFC3339),
		t.InstrumentKey,
		t.Operation,
		t.Quantity.String(),
		t.TotalAmount.String(),
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])
}

// Instrument is the resolved identity of a traded asset, plus descriptive
// metadata recovered from noisy free-text names.
type Instrument struct {
	Ticker       string  `json:"ticker"`
	ISIN         string  `json:"isin,omitempty"`
	DisplayName  string  `json:"display_name"`
	AssetClass   string  `json:"asset_class,omitempty"`
	Exchange     string  `json:"exchange,omitempty"`
	ShareClass   string  `json:"share_class,omitempty"`
	ADRRatio     float64 `json:"adr_ratio,omitempty"`
	NominalValue string  `json:"nominal_value,omitempty"`
	Market       string  `json:"market,omitempty"`
	Unresolved   bool    `json:"unresolved,omitempty"`
}

// Holding is a derived position. It is recomputed wholesale from the ledger
// on every ingestion run and is never authoritative on its own.
type Holding struct {
	Broker           string          `json:"broker"`
	InstrumentKey    string          `json:"instrument_key"`
	DisplayName      string          `json:"display_name,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	AverageCost      decimal.Decimal `json:"average_cost"`
	Currency         string          `json:"currency"`
	CostBasisKnown   bool            `json:"cost_basis_known"`
	LastReconciledAt *time.Time      `json:"last_reconciled_at,omitempty"`
}

// Snapshot is an authoritative, broker-issued statement of held quantities.
// Read-only input to reconciliation.
type Snapshot struct {
	Broker     string
	AsOf       time.Time
	Positions  map[string]decimal.Decimal // instrument key -> quantity
	Currencies map[string]string          // instrument key -> statement currency
}

// CountryCodeFromISIN returns the two-letter country prefix of an ISIN, or
// the empty string if the value is not ISIN-shaped enough to carry one.
func CountryCodeFromISIN(isin string) string {
	if len(isin) != 12 {
		return ""
	}
	c0, c1 := isin[0], isin[1]
	if c0 < 'A' || c0 > 'Z' || c1 < 'A' || c1 > 'Z' {
		return ""
	}
	return isin[:2]
}
