package syncrun

import (
	"context"
	"fmt"
	"time"

	"github.com/teztrade/pricesync/internal/export"
	"github.com/teztrade/pricesync/internal/kaspi"
	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/pricing"
	"github.com/teztrade/pricesync/internal/supplier"
)

// PriceResult is the per-product outcome of an upload step, persisted back
// onto the product row
type PriceResult struct {
	NewPrice           *float64
	Status             models.PriceStatus
	MarketplaceID      *string
	MarketplaceArticle *string
	NameMarketplace    *string // set only when auto name update is on
	SyncedAt           time.Time
}

// Store is the persistence surface the sync service depends on
type Store interface {
	GetSupplier(ctx context.Context, id string) (models.Supplier, error)
	GetMarketplace(ctx context.Context, id string) (models.Marketplace, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	UpsertSupplierProduct(ctx context.Context, supplierID string, item supplier.Item) error
	SavePriceResult(ctx context.Context, productID string, result PriceResult) error
	GetAutomationSettings(ctx context.Context) (models.AutomationSettings, error)
}

// Uploader pushes a generated price list to one marketplace
type Uploader interface {
	UploadPriceList(ctx context.Context, filename string, content []byte) (kaspi.UploadResult, error)
}

// ClientFactory builds an uploader for a marketplace's endpoint/credentials
type ClientFactory func(mp models.Marketplace) Uploader

// Service wires runs together: it builds step lists from selected entities,
// enforces the sandbox quota, and registers runs with the manager.
type Service struct {
	store     Store
	source    supplier.Source
	clientFor ClientFactory
	guard     Guard
	manager   *Manager
}

// NewService creates the sync service
func NewService(store Store, source supplier.Source, clientFor ClientFactory, guard Guard, manager *Manager) *Service {
	return &Service{
		store:     store,
		source:    source,
		clientFor: clientFor,
		guard:     guard,
		manager:   manager,
	}
}

// Manager exposes the run registry
func (s *Service) Manager() *Manager {
	return s.manager
}

// StartDownload creates and launches a download run over the given
// suppliers. Sandbox runs consume one quota unit before the run is created;
// a denied quota check means no run exists at all.
func (s *Service) StartDownload(ctx context.Context, actor models.Actor, supplierIDs []string, sandbox bool) (*Run, error) {
	if sandbox {
		if err := s.guard.TryConsume(ctx, actor.UserID); err != nil {
			return nil, err
		}
	}

	specs := make([]StepSpec, 0, len(supplierIDs))
	for _, id := range supplierIDs {
		sup, err := s.store.GetSupplier(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("supplier %s: %w", id, err)
		}
		specs = append(specs, StepSpec{
			EntityID:    sup.ID,
			DisplayName: sup.Name,
			Fn:          s.downloadStep(sup),
		})
	}

	run := NewRun(RunTypeDownload, actor.UserID, sandbox, specs)
	run.OnComplete(func(Result) {
		// Downstream gate: with auto mode off, a finished download pauses
		// for manual review before any upload may proceed.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		settings, err := s.store.GetAutomationSettings(ctx)
		if err != nil || !settings.AutoModeEnabled {
			run.SetRequiresReview(true)
		}
	})

	s.manager.Add(run)
	go run.Execute(context.Background())
	return run, nil
}

// StartUpload creates and launches an upload run over the given marketplaces
func (s *Service) StartUpload(ctx context.Context, actor models.Actor, marketplaceIDs []string, sandbox bool) (*Run, error) {
	if sandbox {
		if err := s.guard.TryConsume(ctx, actor.UserID); err != nil {
			return nil, err
		}
	}

	specs := make([]StepSpec, 0, len(marketplaceIDs))
	for _, id := range marketplaceIDs {
		mp, err := s.store.GetMarketplace(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("marketplace %s: %w", id, err)
		}
		specs = append(specs, StepSpec{
			EntityID:    mp.ID,
			DisplayName: mp.Name,
			Fn:          s.uploadStep(mp, sandbox),
		})
	}

	run := NewRun(RunTypeUpload, actor.UserID, sandbox, specs)
	s.manager.Add(run)
	go run.Execute(context.Background())
	return run, nil
}

// downloadStep fetches one supplier's feed and upserts every item into the
// product store. The first failed fetch or upsert aborts the step; the run
// continues with the next supplier.
func (s *Service) downloadStep(sup models.Supplier) StepFunc {
	return func(ctx context.Context, report ProgressFunc) error {
		items, err := s.source.Fetch(ctx, sup)
		if err != nil {
			return err
		}
		for i, item := range items {
			if err := s.store.UpsertSupplierProduct(ctx, sup.ID, item); err != nil {
				return fmt.Errorf("upsert %s: %w", item.Article, err)
			}
			report(i+1, len(items))
		}
		return nil
	}
}

// uploadStep reconciles the product set against one marketplace, computes
// and classifies new prices, persists the results, and pushes a price list
// through the marketplace adapter. Sandbox runs (and sandbox-mode
// marketplaces) skip the remote push but still persist locally.
func (s *Service) uploadStep(mp models.Marketplace, sandbox bool) StepFunc {
	return func(ctx context.Context, report ProgressFunc) error {
		products, err := s.store.ListProducts(ctx)
		if err != nil {
			return err
		}

		var supplierRows, marketplaceRows []models.Product
		for _, p := range products {
			if p.SupplierID != nil {
				supplierRows = append(supplierRows, p)
			}
			if p.MarketplaceID != nil && *p.MarketplaceID == mp.ID {
				marketplaceRows = append(marketplaceRows, p)
			}
		}

		enriched := pricing.Reconcile(supplierRows, marketplaceRows)
		now := time.Now().UTC()

		// One extra unit of progress for the final push.
		total := len(enriched) + 1
		for i := range enriched {
			e := &enriched[i]
			action, value := e.Rule(&mp)
			e.NewPrice = pricing.ComputeNewPrice(e.CurrentPrice, action, value)

			if e.Matched {
				e.PriceStatus = pricing.Classify(e.CurrentPrice, e.NewPrice)
			} else {
				e.PriceStatus = models.PriceStatusMissing
			}

			result := PriceResult{
				NewPrice:           e.NewPrice,
				Status:             e.PriceStatus,
				MarketplaceID:      e.MarketplaceID,
				MarketplaceArticle: e.MarketplaceArticle,
				SyncedAt:           now,
			}
			if e.Matched && e.AutoNameUpdate {
				result.NameMarketplace = e.NameMarketplace
			}
			if err := s.store.SavePriceResult(ctx, e.ID, result); err != nil {
				return fmt.Errorf("save price for %s: %w", e.SupplierArticle, err)
			}
			report(i+1, total)
		}

		if !sandbox && !mp.SandboxMode {
			var matched []models.EnrichedProduct
			for _, e := range enriched {
				if e.Matched {
					matched = append(matched, e)
				}
			}
			if len(matched) > 0 {
				data, err := export.PriceListXLSX(export.FromEnriched(matched))
				if err != nil {
					return fmt.Errorf("build price list: %w", err)
				}
				if _, err := s.clientFor(mp).UploadPriceList(ctx, "pricelist.xlsx", data); err != nil {
					return err
				}
			}
		}

		report(total, total)
		return nil
	}
}
