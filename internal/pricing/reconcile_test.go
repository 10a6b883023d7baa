package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teztrade/pricesync/internal/models"
)

func sp(id string) *string { return &id }

func supplierRow(id, article, name string) models.Product {
	return models.Product{
		ID:              id,
		SupplierID:      sp("supplier-1"),
		SupplierArticle: article,
		NameSupplier:    name,
	}
}

func marketplaceRow(article, name string, updated time.Time) models.Product {
	return models.Product{
		ID:                 "mp-" + article,
		MarketplaceID:      sp("marketplace-1"),
		MarketplaceArticle: &article,
		NameMarketplace:    &name,
		UpdatedAt:          updated,
	}
}

func TestReconcile_MatchPrefersMarketplaceName(t *testing.T) {
	supplier := []models.Product{supplierRow("p1", "A1", "X")}
	marketplace := []models.Product{marketplaceRow("A1", "Y", time.Now())}

	got := Reconcile(supplier, marketplace)

	assert.Len(t, got, 1)
	assert.True(t, got[0].Matched)
	assert.Equal(t, "Y", got[0].DisplayName)
	assert.Equal(t, "A1", *got[0].MarketplaceArticle)
	assert.Equal(t, "p1", got[0].ID)
}

func TestReconcile_NoMatchKeepsSupplierName(t *testing.T) {
	supplier := []models.Product{supplierRow("p1", "A1", "X")}
	marketplace := []models.Product{marketplaceRow("B2", "Y", time.Now())}

	got := Reconcile(supplier, marketplace)

	assert.Len(t, got, 1)
	assert.False(t, got[0].Matched)
	assert.Equal(t, "X", got[0].DisplayName)
	assert.Nil(t, got[0].MarketplaceArticle)
}

func TestReconcile_EmptyMarketplaceNameFallsBack(t *testing.T) {
	supplier := []models.Product{supplierRow("p1", "A1", "X")}
	marketplace := []models.Product{marketplaceRow("A1", "", time.Now())}

	got := Reconcile(supplier, marketplace)

	assert.True(t, got[0].Matched)
	assert.Equal(t, "X", got[0].DisplayName)
}

// Rows without a marketplace_id are supplier-side rows and must not enter
// the join index.
func TestReconcile_IgnoresUnlinkedRows(t *testing.T) {
	article := "A1"
	name := "Y"
	unlinked := models.Product{
		MarketplaceArticle: &article,
		NameMarketplace:    &name,
	}

	got := Reconcile([]models.Product{supplierRow("p1", "A1", "X")}, []models.Product{unlinked})

	assert.False(t, got[0].Matched)
	assert.Equal(t, "X", got[0].DisplayName)
}

func TestReconcile_DuplicateArticleNewestWins(t *testing.T) {
	older := marketplaceRow("A1", "Old name", time.Now().Add(-time.Hour))
	newer := marketplaceRow("A1", "New name", time.Now())

	// Input order must not matter; updated_at decides.
	got := Reconcile([]models.Product{supplierRow("p1", "A1", "X")}, []models.Product{newer, older})

	assert.Equal(t, "New name", got[0].DisplayName)
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	supplier := []models.Product{supplierRow("p1", "A1", "X")}
	marketplace := []models.Product{marketplaceRow("A1", "Y", time.Now())}

	_ = Reconcile(supplier, marketplace)

	assert.Nil(t, supplier[0].MarketplaceArticle)
	assert.Nil(t, supplier[0].NameMarketplace)
}

func TestSortForDisplay(t *testing.T) {
	rows := []models.EnrichedProduct{
		{Product: models.Product{PriceStatus: models.PriceStatusMissing}, DisplayName: "d"},
		{Product: models.Product{PriceStatus: models.PriceStatusUnchanged}, DisplayName: "c"},
		{Product: models.Product{PriceStatus: models.PriceStatusIncreased}, DisplayName: "a"},
		{Product: models.Product{PriceStatus: models.PriceStatus("bogus")}, DisplayName: "e"},
		{Product: models.Product{PriceStatus: models.PriceStatusDecreased}, DisplayName: "b"},
	}

	SortForDisplay(rows)

	var order []string
	for _, r := range rows {
		order = append(order, r.DisplayName)
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, order)
}
