package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/storeops/finledger/internal/catalog"
	"github.com/storeops/finledger/internal/dictionary"
	"github.com/storeops/finledger/internal/events"
	kafkaevents "github.com/storeops/finledger/internal/events/kafka"
	"github.com/storeops/finledger/internal/finance"
	"github.com/storeops/finledger/internal/httpapi"
	"github.com/storeops/finledger/internal/service/balance"
	"github.com/storeops/finledger/internal/service/inventory"
	"github.com/storeops/finledger/internal/service/journal"
	"github.com/storeops/finledger/internal/service/ledger"
	"github.com/storeops/finledger/internal/service/report"
	"github.com/storeops/finledger/internal/storage/memory"
	pgstore "github.com/storeops/finledger/internal/storage/postgres"
)

func main() {
	// Best-effort: local dev keeps its settings in .env
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	baseCurrency := strings.ToUpper(strings.TrimSpace(os.Getenv("BASE_CURRENCY")))
	if baseCurrency == "" {
		baseCurrency = "INR"
	}

	type store interface {
		ledger.Repo
		ledger.Writer
		journal.Repo
		journal.Writer
		balance.Repo
		report.Repo
		inventory.LedgerRepo
		httpapi.IdempotencyStore
		httpapi.ReadyChecker
	}

	var st store
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		// Use Postgres store when DATABASE_URL is provided
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		closeFn = func() { pg.Close() }
		if devSeedEnabled() {
			if err := pg.SeedDev(ctx, baseCurrency); err != nil {
				logger.Error("dev seed failed", "err", err)
			} else {
				logger.Info("dev seed applied", "backend", "postgres", "currency", baseCurrency)
			}
		}
		st = pg
		logger.Info("storage backend: postgres")
	} else {
		// Default to in-memory store seeded with the starter chart
		mem := memory.New()
		seedMemoryChart(mem, baseCurrency, logger)
		st = mem
		logger.Info("storage backend: memory")
	}

	// Approval events: Kafka when brokers are configured, no-op otherwise.
	var pub events.Publisher = events.Noop()
	if raw := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); raw != "" {
		kp := kafkaevents.NewPublisher(strings.Split(raw, ","))
		defer func() { _ = kp.Close() }()
		pub = kp
		logger.Info("event publisher: kafka", "brokers", raw)
	}

	// Catalog source for inventory valuation: HTTP client when CATALOG_URL is
	// set, static dev variants otherwise.
	var source catalog.Source
	if url := strings.TrimSpace(os.Getenv("CATALOG_URL")); url != "" {
		source = catalog.NewClient(url, nil)
		logger.Info("catalog source: http", "url", url)
	} else {
		source = catalog.NewStatic(catalog.DevVariants())
		logger.Info("catalog source: static dev variants")
	}

	chart := ledger.New(st, st, baseCurrency)
	journalSvc := journal.New(st, st, pub, logger)
	balances := balance.New(st)
	reports := report.New(st, logger)
	stock := inventory.New(source, st, balances,
		os.Getenv("INVENTORY_LEDGER"), catalogTimeout(), logger)

	handler := httpapi.New(chart, journalSvc, balances, reports, stock, st, st, logger).Handler()

	addr := strings.TrimSpace(os.Getenv("ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("finance service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// seedMemoryChart loads the curated groups and starter ledgers so the API is
// usable out of the box.
func seedMemoryChart(mem *memory.Store, currency string, l *slog.Logger) {
	groupIDs := make(map[string]uuid.UUID)
	for _, gt := range []finance.GroupType{
		finance.GroupTypeAsset, finance.GroupTypeLiability, finance.GroupTypeEquity,
		finance.GroupTypeIncome, finance.GroupTypeExpense,
	} {
		t := gt
		for _, def := range dictionary.GroupsFor(&t) {
			id := uuid.New()
			mem.SeedGroup(finance.AccountGroup{ID: id, Name: def.Label, Type: gt, Description: def.Description, Active: true})
			groupIDs[def.Code] = id
		}
	}
	for _, def := range dictionary.StarterLedgers() {
		gid, ok := groupIDs[def.GroupCode]
		if !ok {
			continue
		}
		mem.SeedLedger(finance.Ledger{
			ID:        uuid.New(),
			GroupID:   gid,
			Name:      def.Label,
			Code:      def.Code,
			Currency:  currency,
			CreatedBy: "system",
			Active:    true,
			CreatedAt: time.Now().UTC(),
		})
	}
	l.Info("seeded starter chart", "currency", currency)
}

func devSeedEnabled() bool {
	dev := strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED")))
	return dev == "1" || dev == "true" || dev == "yes"
}

// catalogTimeout reads CATALOG_TIMEOUT_MS, defaulting to 5s.
func catalogTimeout() time.Duration {
	raw := strings.TrimSpace(os.Getenv("CATALOG_TIMEOUT_MS"))
	if raw == "" {
		return 5 * time.Second
	}
	ms, err := strconv.Atoi(raw)
	if err != nil || ms <= 0 {
		return 5 * time.Second
	}
	return time.Duration(ms) * time.Millisecond
}

// parseLogLevel maps env values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch s {
	case "DEBUG", "debug":
		return slog.LevelDebug
	case "WARN", "WARNING", "warn", "warning":
		return slog.LevelWarn
	case "ERROR", "ERR", "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLoggerFromEnv() *slog.Logger {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	format := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT")))
	if format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
