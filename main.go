package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/username/warroom/backend/src/config"
	"github.com/username/warroom/backend/src/ledger"
	"github.com/username/warroom/backend/src/logger"
	"github.com/username/warroom/backend/src/models"
	"github.com/username/warroom/backend/src/normalize"
	"github.com/username/warroom/backend/src/parsers"
	"github.com/username/warroom/backend/src/parsers/bgsaxo"
	"github.com/username/warroom/backend/src/parsers/binance"
	"github.com/username/warroom/backend/src/parsers/revolut"
	"github.com/username/warroom/backend/src/parsers/traderepublic"
	"github.com/username/warroom/backend/src/resolver"
	"github.com/username/warroom/backend/src/services"
)

// formatForExtension maps an inbox file's extension to its declared format.
var formatForExtension = map[string]models.DocumentFormat{
	".csv": models.FormatDelimitedText,
	".tsv": models.FormatTabularSpreadsheet,
	".txt": models.FormatPaginatedText,
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Application starting...")

	store, err := ledger.NewStore(config.Cfg.DatabasePath)
	if err != nil {
		logger.L.Error("FATAL: Failed to open database", "path", config.Cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	overrides, err := resolver.LoadOverrides(config.Cfg.OverridesPath)
	if err != nil {
		logger.L.Error("FATAL: Failed to load ticker override table", "path", config.Cfg.OverridesPath, "error", err)
		os.Exit(1)
	}

	symbology := resolver.NewSymbologyClient(
		config.Cfg.SymbologyBaseURL,
		config.Cfg.SymbologyRateEvery,
		config.Cfg.SymbologyTimeout,
	)
	res := resolver.New(resolver.Options{
		Overrides: overrides,
		Client:    symbology,
		HitTTL:    config.Cfg.ResolverHitTTL,
		MissTTL:   config.Cfg.ResolverMissTTL,
	})

	normalizer := normalize.NewNormalizer(res, config.Cfg.BaseCurrency, map[string]normalize.Locale{
		"bgsaxo":        normalize.LocaleEuropean,
		"traderepublic": normalize.LocaleEuropean,
		"revolut":       normalize.LocaleEuropean,
		"binance":       normalize.LocaleAmerican,
	}, config.Cfg.ResolverWorkers)

	registry := parsers.NewRegistry()
	registry.Register("bgsaxo", models.FormatDelimitedText, bgsaxo.NewTransactionsParser())
	registry.Register("bgsaxo", models.FormatTabularSpreadsheet, bgsaxo.NewPositionsParser())
	registry.Register("binance", models.FormatDelimitedText, binance.NewParser())
	registry.Register("traderepublic", models.FormatPaginatedText, traderepublic.NewParser())
	registry.Register("revolut", models.FormatTabularSpreadsheet, revolut.NewParser())
	registry.Register("revolut", models.FormatDelimitedText, revolut.NewParser())

	ingestService := services.NewIngestService(registry, normalizer, store, config.Cfg.ParserWorkers)

	if err := runInbox(context.Background(), ingestService, config.Cfg.InboxPath); err != nil {
		logger.L.Error("FATAL: Inbox run failed", "error", err)
		os.Exit(1)
	}
	logger.L.Info("Application finished.")
}

// runInbox ingests every statement under <inbox>/<broker>/, one ingestion
// run per broker directory.
func runInbox(ctx context.Context, ingestService services.IngestService, inboxPath string) error {
	brokerDirs, err := os.ReadDir(inboxPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.L.Warn("Inbox directory does not exist, nothing to ingest", "path", inboxPath)
			return nil
		}
		return err
	}

	for _, brokerDir := range brokerDirs {
		if !brokerDir.IsDir() {
			continue
		}
		broker := brokerDir.Name()
		entries, err := os.ReadDir(filepath.Join(inboxPath, broker))
		if err != nil {
			logger.L.Error("Failed to read broker inbox", "broker", broker, "error", err)
			continue
		}

		var docs []services.DocumentInput
		var open []*os.File
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			format, ok := formatForExtension[strings.ToLower(filepath.Ext(entry.Name()))]
			if !ok {
				logger.L.Warn("Skipping inbox file with unknown extension", "broker", broker, "file", entry.Name())
				continue
			}
			path := filepath.Join(inboxPath, broker, entry.Name())
			f, err := os.Open(path)
			if err != nil {
				logger.L.Error("Failed to open inbox file", "path", path, "error", err)
				continue
			}
			open = append(open, f)
			docs = append(docs, services.DocumentInput{
				Document: models.Document{Broker: broker, Format: format, Name: entry.Name()},
				Content:  f,
			})
		}
		if len(docs) == 0 {
			logger.L.Info("No statements for broker, skipping", "broker", broker)
			continue
		}

		result, err := ingestService.IngestDocuments(ctx, broker, docs)
		for _, f := range open {
			f.Close()
		}
		if err != nil {
			logger.L.Error("Ingestion run failed", "broker", broker, "error", err)
			continue
		}
		logger.L.Info("Broker ingested",
			"broker", broker,
			"run_id", result.RunID,
			"transactions", result.TransactionsInserted,
			"holdings", result.HoldingsCount,
			"warnings", len(result.Warnings))
	}
	return nil
}
