// Package main is the entry point for the investbot portfolio service.
// It wires the instrument catalog, the account ledger and the portfolio
// valuation engine together, starts the background refresh jobs and serves
// the HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/investbot/investbot/internal/clientdata"
	"github.com/investbot/investbot/internal/clients/moex"
	"github.com/investbot/investbot/internal/config"
	"github.com/investbot/investbot/internal/database"
	"github.com/investbot/investbot/internal/modules/catalog"
	cataloghandlers "github.com/investbot/investbot/internal/modules/catalog/handlers"
	"github.com/investbot/investbot/internal/modules/ledger"
	ledgerhandlers "github.com/investbot/investbot/internal/modules/ledger/handlers"
	"github.com/investbot/investbot/internal/modules/portfolio"
	portfoliohandlers "github.com/investbot/investbot/internal/modules/portfolio/handlers"
	"github.com/investbot/investbot/internal/scheduler"
	"github.com/investbot/investbot/internal/server"
	"github.com/investbot/investbot/pkg/logger"
)

// catalogPrices adapts the catalog's stored prices to the ledger's market
// order pricing. Orders without an explicit price execute at the last stored
// valuation price.
type catalogPrices struct {
	repo *catalog.Repository
}

func (p catalogPrices) CurrentPrice(ticker string) (float64, error) {
	inst, err := p.repo.GetByTicker(ticker)
	if err != nil {
		return 0, err
	}
	if inst == nil || inst.Price <= 0 {
		return 0, fmt.Errorf("no stored price for %s", ticker)
	}
	return inst.Price, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting investbot")

	// Two databases: the catalog holds replaceable market data, the ledger
	// holds the append-only money trail and gets the stricter profile.
	catalogDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "catalog.db"),
		Profile: database.ProfileStandard,
		Name:    "catalog",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer catalogDB.Close()

	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	if err := catalogDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate catalog database")
	}
	if err := ledgerDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate ledger database")
	}

	moexClient := moex.NewClient(cfg.MoexBaseURL, log)

	catalogRepo := catalog.NewRepository(catalogDB.Conn(), log)
	catalogSvc := catalog.NewService(catalogDB.Conn(), catalogRepo, moexClient, log)

	accountRepo := ledger.NewAccountRepository(ledgerDB.Conn(), log)
	transactionRepo := ledger.NewTransactionRepository(ledgerDB.Conn(), log)
	ledgerSvc := ledger.NewService(ledgerDB.Conn(), accountRepo, transactionRepo,
		catalogPrices{repo: catalogRepo}, log)

	portfolioSvc := portfolio.NewService(transactionRepo, accountRepo, catalogRepo, log)

	cacheRepo := clientdata.NewRepository(catalogDB.Conn())

	// Background jobs: price refresh, catalog sync, cache cleanup.
	sched := scheduler.New(log)
	priceRefreshJob := scheduler.NewPriceRefreshJob(catalogSvc, log)
	catalogSyncJob := scheduler.NewCatalogSyncJob(catalogSvc, log)
	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)

	if err := sched.AddJob("@every "+cfg.PriceInterval.String(), priceRefreshJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule price refresh")
	}
	if err := sched.AddJob("@every "+cfg.SyncInterval.String(), catalogSyncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule catalog sync")
	}
	if err := sched.AddJob("@daily", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule cache cleanup")
	}
	sched.Start()

	systemHandlers := server.NewSystemHandlers(catalogDB, ledgerDB, catalogRepo, sched, log)
	systemHandlers.SetJobs(priceRefreshJob, catalogSyncJob)

	srv := server.New(server.Config{
		Log:               log,
		Port:              cfg.Port,
		DevMode:           cfg.DevMode,
		CatalogHandlers:   cataloghandlers.NewHandler(catalogRepo, moexClient, cacheRepo, log),
		LedgerHandlers:    ledgerhandlers.NewHandler(accountRepo, ledgerSvc, log),
		PortfolioHandlers: portfoliohandlers.NewHandler(portfolioSvc, log),
		SystemHandlers:    systemHandlers,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	// An empty catalog means every valuation is zero, so sync once at
	// startup instead of waiting for the first scheduled run.
	go func() {
		count, err := catalogRepo.Count(catalog.KindShare)
		if err != nil || count > 0 {
			return
		}
		log.Info().Msg("Catalog is empty, running initial sync")
		if err := sched.RunNow(catalogSyncJob); err != nil {
			log.Error().Err(err).Msg("Initial catalog sync failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
