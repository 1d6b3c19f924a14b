package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
	"github.com/joho/godotenv"

	"github.com/raragao87/opheliahub/internal/catalog"
	"github.com/raragao87/opheliahub/internal/httpapi"
	"github.com/raragao87/opheliahub/internal/ledger"
	"github.com/raragao87/opheliahub/internal/service/tag"
	"github.com/raragao87/opheliahub/internal/storage/memory"
	pgstore "github.com/raragao87/opheliahub/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLoggerFromEnv()
	slog.SetDefault(logger)

	var store httpapi.Store
	var closeFn func()

	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		if err := pgstore.RunMigrations(dsn); err != nil {
			logger.Error("migrations failed", "err", err)
			os.Exit(1)
		}
		pg, err := pgstore.Open(ctx, dsn)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		if err := pg.SeedBuiltinTypes(ctx, catalog.BuiltinAccountTypes()); err != nil {
			logger.Error("seeding account types failed", "err", err)
			os.Exit(1)
		}
		store = pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	} else {
		mem := memory.NewStore()
		store = mem
		if isDevSeed() {
			seedDev(ctx, mem, logger)
		}
		logger.Info("storage backend: memory")
	}

	// Make sure the system tag hierarchy exists before serving requests.
	tagSvc := tag.New(store, store, catalog.DefaultTagTree())
	if err := tagSvc.EnsureDefaults(ctx); err != nil {
		logger.Error("seeding default tags failed", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              listenAddr(),
		Handler:           httpapi.New(store, logger).Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("service listening", "addr", srv.Addr)
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

func listenAddr() string {
	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		return ":" + p
	}
	return ":8080"
}

func isDevSeed() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEV_SEED"))) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// seedDev creates a user with a checking account so the API is usable
// immediately after boot.
func seedDev(ctx context.Context, mem *memory.Store, l *slog.Logger) {
	userID := uuid.New()
	opening, _ := money.NewAmountFromMinorUnits("EUR", 100000)
	acc := ledger.Account{
		ID:             uuid.New(),
		OwnerID:        userID,
		Name:           "Main Checking",
		Type:           "checking",
		DefaultSign:    ledger.SignPositive,
		InitialBalance: opening,
		Balance:        opening,
		Currency:       "EUR",
		Category:       ledger.AccountCategoryPersonal,
		Kind:           ledger.AccountKindBank,
		Active:         true,
	}
	if _, err := mem.CreateAccount(ctx, acc); err != nil {
		l.Error("dev seed failed", "err", err)
		return
	}
	l.Info("DEV seed (memory)", "user_id", userID.String(), "account_id", acc.ID.String())
	fmt.Println("==================== DEV SEED ====================")
	fmt.Printf("user_id: %s\n", userID.String())
	fmt.Printf("checking_account_id: %s\n", acc.ID.String())
	fmt.Println("==================================================")
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
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
