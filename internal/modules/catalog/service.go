package catalog

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/investbot/investbot/internal/clients/moex"
	"github.com/investbot/investbot/internal/database"
)

// MarketDataClient is the exchange surface the catalog needs.
type MarketDataClient interface {
	ListShares() ([]moex.CatalogRow, error)
	ListBonds() ([]moex.CatalogRow, error)
	ResolveMany(tickers []string, wantMetrics bool) map[string]moex.Metrics
	ResolvePrice(ticker string, secType moex.SecurityType, faceValue float64) (float64, bool)
}

// Service syncs the exchange listing into the catalog and keeps stored
// prices current.
type Service struct {
	db     *sql.DB
	repo   *Repository
	client MarketDataClient
	log    zerolog.Logger
}

// NewService creates a catalog service.
func NewService(db *sql.DB, repo *Repository, client MarketDataClient, log zerolog.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		client: client,
		log:    log.With().Str("component", "catalog").Logger(),
	}
}

// SyncShares pulls the full share listing and applies it in one transaction.
// New tickers are inserted with curated sector, description and logo; known
// tickers get their listing fields refreshed without clobbering curation.
func (s *Service) SyncShares() (SyncResult, error) {
	listing, err := s.client.ListShares()
	if err != nil {
		return SyncResult{}, fmt.Errorf("share sync failed: %w", err)
	}

	result, err := s.applyListing(listing, KindShare)
	if err != nil {
		return SyncResult{}, fmt.Errorf("share sync failed: %w", err)
	}

	s.log.Info().Int("added", result.Added).Int("updated", result.Updated).
		Int("total", result.Total).Msg("Share listing synced")
	return result, nil
}

// SyncBonds pulls the full bond listing and applies it in one transaction.
func (s *Service) SyncBonds() (SyncResult, error) {
	listing, err := s.client.ListBonds()
	if err != nil {
		return SyncResult{}, fmt.Errorf("bond sync failed: %w", err)
	}

	result, err := s.applyListing(listing, KindBond)
	if err != nil {
		return SyncResult{}, fmt.Errorf("bond sync failed: %w", err)
	}

	s.log.Info().Int("added", result.Added).Int("updated", result.Updated).
		Int("total", result.Total).Msg("Bond listing synced")
	return result, nil
}

// SyncAll runs both listing syncs. The second sync still runs when the first
// fails; errors are joined into the return.
func (s *Service) SyncAll() error {
	_, sharesErr := s.SyncShares()
	_, bondsErr := s.SyncBonds()

	if sharesErr != nil {
		return sharesErr
	}
	return bondsErr
}

// applyListing upserts one listing atomically. A failure on any row rolls
// the whole listing back so the catalog never holds a half-applied sync.
func (s *Service) applyListing(listing []moex.CatalogRow, kind Kind) (SyncResult, error) {
	var result SyncResult

	err := database.WithTransaction(s.db, func(tx *sql.Tx) error {
		for _, row := range listing {
			exists, err := s.repo.ExistsTx(tx, row.Ticker)
			if err != nil {
				return err
			}

			inst := instrumentFromListing(row, kind)
			if exists {
				if err := s.repo.UpdateListingTx(tx, inst); err != nil {
					return err
				}
				result.Updated++
				continue
			}

			if err := s.repo.InsertTx(tx, inst); err != nil {
				return err
			}
			result.Added++
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	result.Total = result.Added + result.Updated
	return result, nil
}

// instrumentFromListing builds the catalog row for one listing entry,
// attaching curated metadata for new instruments.
func instrumentFromListing(row moex.CatalogRow, kind Kind) Instrument {
	inst := Instrument{
		Ticker:        row.Ticker,
		Name:          row.Name,
		Kind:          kind,
		Price:         row.Price,
		Currency:      "RUB",
		LotSize:       row.LotSize,
		FaceValue:     row.FaceValue,
		CouponPercent: row.CouponPercent,
		MaturityDate:  row.MaturityDate,
		LogoURL:       LogoURL(row.Ticker),
	}

	if kind == KindShare {
		inst.Sector = SectorFor(row.Ticker)
		inst.Description = fmt.Sprintf("Акция %s торгуется на Московской бирже", row.Name)
	} else {
		inst.Sector = "Облигации"
		inst.Description = fmt.Sprintf("Облигация %s торгуется на Московской бирже", row.Name)
	}

	return inst
}

// RefreshPrices re-resolves every stored price: shares through the batched
// path, bonds individually because conversion needs each face value. An
// instrument whose price cannot be resolved keeps its stored price and is
// counted as stale, never dropped.
func (s *Service) RefreshPrices() (RefreshResult, error) {
	var result RefreshResult

	shares, err := s.repo.List(KindShare)
	if err != nil {
		return result, fmt.Errorf("price refresh failed: %w", err)
	}

	tickers := make([]string, len(shares))
	for i, inst := range shares {
		tickers[i] = inst.Ticker
	}

	resolved := s.client.ResolveMany(tickers, false)
	for _, ticker := range tickers {
		result.Total++
		m, ok := resolved[ticker]
		if !ok {
			result.Stale++
			continue
		}
		if err := s.repo.UpdatePrice(ticker, m.Price); err != nil {
			return result, fmt.Errorf("price refresh failed: %w", err)
		}
		result.Refreshed++
	}

	bonds, err := s.repo.List(KindBond)
	if err != nil {
		return result, fmt.Errorf("price refresh failed: %w", err)
	}

	for _, bond := range bonds {
		result.Total++
		price, ok := s.client.ResolvePrice(bond.Ticker, moex.TypeBond, bond.FaceValue)
		if !ok {
			result.Stale++
			continue
		}
		if err := s.repo.UpdatePrice(bond.Ticker, price); err != nil {
			return result, fmt.Errorf("price refresh failed: %w", err)
		}
		result.Refreshed++
	}

	s.log.Info().Int("refreshed", result.Refreshed).Int("stale", result.Stale).
		Int("total", result.Total).Msg("Prices refreshed")
	return result, nil
}
