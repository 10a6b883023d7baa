package syncrun

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teztrade/pricesync/internal/kaspi"
	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/supplier"
)

func fp(v float64) *float64 { return &v }
func sptr(s string) *string { return &s }

type fakeStore struct {
	mu           sync.Mutex
	suppliers    map[string]models.Supplier
	marketplaces map[string]models.Marketplace
	products     []models.Product
	upserts      map[string][]supplier.Item
	results      map[string]PriceResult
	automation   models.AutomationSettings
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		suppliers:    make(map[string]models.Supplier),
		marketplaces: make(map[string]models.Marketplace),
		upserts:      make(map[string][]supplier.Item),
		results:      make(map[string]PriceResult),
	}
}

func (f *fakeStore) GetSupplier(_ context.Context, id string) (models.Supplier, error) {
	s, ok := f.suppliers[id]
	if !ok {
		return models.Supplier{}, fmt.Errorf("supplier %s not found", id)
	}
	return s, nil
}

func (f *fakeStore) GetMarketplace(_ context.Context, id string) (models.Marketplace, error) {
	m, ok := f.marketplaces[id]
	if !ok {
		return models.Marketplace{}, fmt.Errorf("marketplace %s not found", id)
	}
	return m, nil
}

func (f *fakeStore) ListProducts(_ context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Product, len(f.products))
	copy(out, f.products)
	return out, nil
}

func (f *fakeStore) UpsertSupplierProduct(_ context.Context, supplierID string, item supplier.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts[supplierID] = append(f.upserts[supplierID], item)
	return nil
}

func (f *fakeStore) SavePriceResult(_ context.Context, productID string, result PriceResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[productID] = result
	return nil
}

func (f *fakeStore) GetAutomationSettings(_ context.Context) (models.AutomationSettings, error) {
	return f.automation, nil
}

type fakeSource struct {
	mu    sync.Mutex
	items map[string][]supplier.Item
	fails map[string]error
}

func (f *fakeSource) Fetch(_ context.Context, s models.Supplier) ([]supplier.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fails[s.ID]; err != nil {
		return nil, err
	}
	return f.items[s.ID], nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads int
	lastLen int
	err     error
}

func (f *fakeUploader) UploadPriceList(_ context.Context, _ string, content []byte) (kaspi.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return kaspi.UploadResult{}, f.err
	}
	f.uploads++
	f.lastLen = len(content)
	return kaspi.UploadResult{Code: "u-1", Status: "PENDING"}, nil
}

func waitForRun(t *testing.T, run *Run) Snapshot {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}
	return run.Snapshot()
}

func newTestService(store *fakeStore, source *fakeSource, up *fakeUploader, guard Guard) *Service {
	if guard == nil {
		guard = NewMemoryGuard(10)
	}
	return NewService(store, source, func(models.Marketplace) Uploader { return up }, guard, NewManager())
}

func TestStartDownload_UpsertsTaggedBySupplier(t *testing.T) {
	store := newFakeStore()
	store.automation = models.AutomationSettings{AutoModeEnabled: true}
	store.suppliers["s1"] = models.Supplier{ID: "s1", Name: "Acme Parts"}
	source := &fakeSource{items: map[string][]supplier.Item{
		"s1": {{Article: "A1", Name: "Phone", Price: fp(1000)}, {Article: "A2", Name: "Case", Price: fp(50)}},
	}}
	svc := newTestService(store, source, &fakeUploader{}, nil)

	run, err := svc.StartDownload(context.Background(), models.Actor{UserID: "u1"}, []string{"s1"}, false)
	assert.NoError(t, err)

	snap := waitForRun(t, run)
	assert.Equal(t, StepStatusCompleted, snap.Steps[0].Status)
	assert.Equal(t, "Acme Parts", snap.Steps[0].DisplayName)
	assert.Len(t, store.upserts["s1"], 2)
	assert.False(t, snap.RequiresReview)
}

func TestStartDownload_UnknownSupplierFailsFast(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeSource{}, &fakeUploader{}, nil)

	_, err := svc.StartDownload(context.Background(), models.Actor{UserID: "u1"}, []string{"ghost"}, false)
	assert.Error(t, err)
	assert.Empty(t, svc.Manager().List())
}

func TestStartDownload_ManualReviewGate(t *testing.T) {
	store := newFakeStore()
	store.automation = models.AutomationSettings{AutoModeEnabled: false}
	store.suppliers["s1"] = models.Supplier{ID: "s1", Name: "Acme"}
	svc := newTestService(store, &fakeSource{}, &fakeUploader{}, nil)

	run, err := svc.StartDownload(context.Background(), models.Actor{UserID: "u1"}, []string{"s1"}, false)
	assert.NoError(t, err)

	snap := waitForRun(t, run)
	assert.True(t, snap.RequiresReview)
}

func TestStartDownload_QuotaDeniedCreatesNoRun(t *testing.T) {
	store := newFakeStore()
	store.suppliers["s1"] = models.Supplier{ID: "s1", Name: "Acme"}
	guard := NewMemoryGuard(1)
	svc := newTestService(store, &fakeSource{}, &fakeUploader{}, guard)

	actor := models.Actor{UserID: "u1"}
	_, err := svc.StartDownload(context.Background(), actor, []string{"s1"}, true)
	assert.NoError(t, err)

	_, err = svc.StartDownload(context.Background(), actor, []string{"s1"}, true)
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	// Only the admitted run exists.
	assert.Len(t, svc.Manager().List(), 1)
}

// One quota unit covers a whole run, however many steps it has.
func TestStartDownload_QuotaPerRunNotPerStep(t *testing.T) {
	store := newFakeStore()
	store.automation = models.AutomationSettings{AutoModeEnabled: true}
	store.suppliers["s1"] = models.Supplier{ID: "s1", Name: "One"}
	store.suppliers["s2"] = models.Supplier{ID: "s2", Name: "Two"}
	guard := NewMemoryGuard(5)
	svc := newTestService(store, &fakeSource{}, &fakeUploader{}, guard)

	run, err := svc.StartDownload(context.Background(), models.Actor{UserID: "u1"}, []string{"s1", "s2"}, true)
	assert.NoError(t, err)
	waitForRun(t, run)

	assert.Equal(t, 1, guard.Used("u1"))
}

func TestStartDownload_StepFailureIsolated(t *testing.T) {
	store := newFakeStore()
	store.automation = models.AutomationSettings{AutoModeEnabled: true}
	store.suppliers["s1"] = models.Supplier{ID: "s1", Name: "One"}
	store.suppliers["s2"] = models.Supplier{ID: "s2", Name: "Two"}
	source := &fakeSource{
		items: map[string][]supplier.Item{"s1": {{Article: "A1", Name: "X"}}},
		fails: map[string]error{"s2": errors.New("connection refused")},
	}
	svc := newTestService(store, source, &fakeUploader{}, nil)

	run, err := svc.StartDownload(context.Background(), models.Actor{UserID: "u1"}, []string{"s1", "s2"}, false)
	assert.NoError(t, err)

	snap := waitForRun(t, run)
	assert.Equal(t, StepStatusCompleted, snap.Steps[0].Status)
	assert.Equal(t, StepStatusError, snap.Steps[1].Status)
	assert.Contains(t, snap.Steps[1].Error, "connection refused")
	assert.Equal(t, 100, snap.Overall)
}

func uploadFixture() *fakeStore {
	store := newFakeStore()
	store.automation = models.AutomationSettings{AutoModeEnabled: true}
	store.marketplaces["m1"] = models.Marketplace{
		ID:            "m1",
		Name:          "Kaspi",
		PricingAction: models.PricingActionMultiply,
		PricingValue:  1.1,
	}
	store.products = []models.Product{
		{
			ID:              "p1",
			SupplierID:      sptr("s1"),
			SupplierArticle: "A1",
			NameSupplier:    "Phone",
			CurrentPrice:    fp(1000),
		},
		{
			ID:              "p2",
			SupplierID:      sptr("s1"),
			SupplierArticle: "A2",
			NameSupplier:    "Orphan",
			CurrentPrice:    fp(500),
		},
		{
			ID:                 "p3",
			MarketplaceID:      sptr("m1"),
			MarketplaceArticle: sptr("A1"),
			NameMarketplace:    sptr("Phone (listing)"),
		},
	}
	return store
}

func TestStartUpload_ClassifiesAndPushes(t *testing.T) {
	store := uploadFixture()
	uploader := &fakeUploader{}
	svc := newTestService(store, &fakeSource{}, uploader, nil)

	run, err := svc.StartUpload(context.Background(), models.Actor{UserID: "u1"}, []string{"m1"}, false)
	assert.NoError(t, err)

	snap := waitForRun(t, run)
	assert.Equal(t, StepStatusCompleted, snap.Steps[0].Status)

	// Matched product: 1000 * 1.1 = 1100, increased.
	matched := store.results["p1"]
	assert.Equal(t, 1100.0, *matched.NewPrice)
	assert.Equal(t, models.PriceStatusIncreased, matched.Status)
	assert.Equal(t, "A1", *matched.MarketplaceArticle)

	// Unmatched product is flagged missing, not classified.
	orphan := store.results["p2"]
	assert.Equal(t, models.PriceStatusMissing, orphan.Status)
	assert.Nil(t, orphan.MarketplaceArticle)

	assert.Equal(t, 1, uploader.uploads)
	assert.Greater(t, uploader.lastLen, 0)
}

func TestStartUpload_SandboxSkipsRemotePush(t *testing.T) {
	store := uploadFixture()
	uploader := &fakeUploader{}
	svc := newTestService(store, &fakeSource{}, uploader, nil)

	run, err := svc.StartUpload(context.Background(), models.Actor{UserID: "u1"}, []string{"m1"}, true)
	assert.NoError(t, err)

	snap := waitForRun(t, run)
	assert.Equal(t, StepStatusCompleted, snap.Steps[0].Status)
	assert.Equal(t, 0, uploader.uploads)
	// Local persistence still happened.
	assert.NotEmpty(t, store.results)
}

func TestStartUpload_RemoteErrorMarksStep(t *testing.T) {
	store := uploadFixture()
	uploader := &fakeUploader{err: &kaspi.RemoteError{Status: 503, Body: "maintenance"}}
	svc := newTestService(store, &fakeSource{}, uploader, nil)

	run, err := svc.StartUpload(context.Background(), models.Actor{UserID: "u1"}, []string{"m1"}, false)
	assert.NoError(t, err)

	snap := waitForRun(t, run)
	assert.Equal(t, StepStatusError, snap.Steps[0].Status)
	assert.Contains(t, snap.Steps[0].Error, "503: maintenance")
	assert.Equal(t, 100, snap.Overall)
}
