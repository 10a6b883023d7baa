package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/teztrade/pricesync/internal/logging"
	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/syncrun"
)

// Store is the persistence surface the scheduler reads its plan from
type Store interface {
	GetAutomationSettings(ctx context.Context) (models.AutomationSettings, error)
	ListActiveSuppliers(ctx context.Context) ([]models.Supplier, error)
	ListActiveMarketplaces(ctx context.Context) ([]models.Marketplace, error)
}

// systemActor identifies scheduled runs in run history and audit logs
var systemActor = models.Actor{UserID: "scheduler", Role: "admin"}

// Scheduler drives periodic full sync cycles when auto mode is enabled.
// A cycle downloads every active supplier, then uploads every active
// marketplace once the download run completes.
type Scheduler struct {
	store Store
	sync  *syncrun.Service

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a stopped scheduler
func New(store Store, sync *syncrun.Service) *Scheduler {
	return &Scheduler{store: store, sync: sync}
}

// Start reads the automation settings and begins the periodic cycle.
// With auto mode disabled the scheduler stays idle until restarted.
func (s *Scheduler) Start(ctx context.Context) error {
	settings, err := s.store.GetAutomationSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read automation settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !settings.AutoModeEnabled {
		logging.LogKV("info", "scheduler idle, auto mode disabled", nil)
		return nil
	}
	if settings.SyncIntervalMinutes <= 0 {
		return fmt.Errorf("invalid sync interval: %d minutes", settings.SyncIntervalMinutes)
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %dm", settings.SyncIntervalMinutes)
	if _, err := c.AddFunc(spec, s.runCycle); err != nil {
		return fmt.Errorf("failed to schedule sync cycle: %w", err)
	}
	c.Start()
	s.cron = c

	logging.LogKV("info", "scheduler started", map[string]interface{}{
		"interval_minutes": settings.SyncIntervalMinutes,
	})
	return nil
}

// Stop halts the periodic cycle. Runs already in flight keep going.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}
}

// Restart re-reads the automation settings and reschedules. Called after
// settings change.
func (s *Scheduler) Restart(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// runCycle executes one download-then-upload sweep over all active
// entities. Scheduled runs never use the sandbox.
func (s *Scheduler) runCycle() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := s.store.GetAutomationSettings(ctx)
	if err != nil {
		logging.LogKV("error", "scheduled cycle skipped", map[string]interface{}{"error": err.Error()})
		return
	}
	if !settings.AutoModeEnabled {
		// Auto mode flipped off after scheduling; skip quietly.
		return
	}

	suppliers, err := s.store.ListActiveSuppliers(ctx)
	if err != nil {
		logging.LogKV("error", "scheduled cycle failed to list suppliers", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(suppliers) == 0 {
		return
	}

	ids := make([]string, len(suppliers))
	for i, sup := range suppliers {
		ids[i] = sup.ID
	}

	download, err := s.sync.StartDownload(ctx, systemActor, ids, false)
	if err != nil {
		logging.LogKV("error", "scheduled download failed to start", map[string]interface{}{"error": err.Error()})
		return
	}
	logging.LogKV("info", "scheduled download started", map[string]interface{}{
		"run_id":    download.ID,
		"suppliers": len(ids),
	})

	// Chain the upload once the download settles. The download's own
	// review gate may still flag it; the chained upload proceeds only
	// when the run finished clean and unreviewed.
	go func() {
		<-download.Done()
		snap := download.Snapshot()
		if snap.Cancelled || snap.RequiresReview {
			logging.LogKV("info", "scheduled upload skipped", map[string]interface{}{
				"run_id":          snap.ID,
				"cancelled":       snap.Cancelled,
				"requires_review": snap.RequiresReview,
			})
			return
		}
		s.startUpload()
	}()
}

func (s *Scheduler) startUpload() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	marketplaces, err := s.store.ListActiveMarketplaces(ctx)
	if err != nil {
		logging.LogKV("error", "scheduled upload failed to list marketplaces", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(marketplaces) == 0 {
		return
	}

	ids := make([]string, len(marketplaces))
	for i, mp := range marketplaces {
		ids[i] = mp.ID
	}

	upload, err := s.sync.StartUpload(ctx, systemActor, ids, false)
	if err != nil {
		logging.LogKV("error", "scheduled upload failed to start", map[string]interface{}{"error": err.Error()})
		return
	}
	logging.LogKV("info", "scheduled upload started", map[string]interface{}{
		"run_id":       upload.ID,
		"marketplaces": len(ids),
	})
}
