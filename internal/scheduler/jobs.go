package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/modules/catalog"
)

// PriceRefreshJob re-resolves every stored instrument price.
type PriceRefreshJob struct {
	catalog *catalog.Service
	log     zerolog.Logger
}

// NewPriceRefreshJob creates a price refresh job.
func NewPriceRefreshJob(catalogSvc *catalog.Service, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		catalog: catalogSvc,
		log:     log.With().Str("job", "price_refresh").Logger(),
	}
}

// Run refreshes all stored prices.
func (j *PriceRefreshJob) Run() error {
	result, err := j.catalog.RefreshPrices()
	if err != nil {
		return err
	}

	if result.Stale > 0 {
		j.log.Warn().Int("stale", result.Stale).Int("total", result.Total).
			Msg("Some prices could not be refreshed")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// CatalogSyncJob pulls the full exchange listing into the catalog.
type CatalogSyncJob struct {
	catalog *catalog.Service
	log     zerolog.Logger
}

// NewCatalogSyncJob creates a catalog sync job.
func NewCatalogSyncJob(catalogSvc *catalog.Service, log zerolog.Logger) *CatalogSyncJob {
	return &CatalogSyncJob{
		catalog: catalogSvc,
		log:     log.With().Str("job", "catalog_sync").Logger(),
	}
}

// Run syncs both listings.
func (j *CatalogSyncJob) Run() error {
	return j.catalog.SyncAll()
}

// Name returns the job name for scheduling and logging.
func (j *CatalogSyncJob) Name() string {
	return "catalog_sync"
}
