package pricing

import (
	"sort"

	"github.com/teztrade/pricesync/internal/models"
)

// Reconcile joins supplier products against marketplace products by article.
//
// The lookup is keyed by marketplace_article over rows that carry a
// marketplace_id. When several marketplace rows share the same article the
// most recently updated row wins; rows are sorted by updated_at ascending
// before the map is built so the newest write lands last.
//
// Each supplier product is matched by its supplier_article. A match
// contributes the marketplace article and name; display_name prefers a
// non-empty marketplace name, otherwise the supplier name is shown.
// Inputs are not mutated.
func Reconcile(supplierProducts, marketplaceProducts []models.Product) []models.EnrichedProduct {
	byArticle := make(map[string]models.Product, len(marketplaceProducts))

	sorted := make([]models.Product, len(marketplaceProducts))
	copy(sorted, marketplaceProducts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.Before(sorted[j].UpdatedAt)
	})
	for _, mp := range sorted {
		if mp.MarketplaceID == nil || mp.MarketplaceArticle == nil {
			continue
		}
		byArticle[*mp.MarketplaceArticle] = mp
	}

	enriched := make([]models.EnrichedProduct, 0, len(supplierProducts))
	for _, sp := range supplierProducts {
		e := models.EnrichedProduct{Product: sp}

		match, ok := byArticle[sp.SupplierArticle]
		if ok {
			e.Matched = true
			e.MarketplaceArticle = match.MarketplaceArticle
			e.NameMarketplace = match.NameMarketplace
			if match.MarketplaceID != nil && e.MarketplaceID == nil {
				id := *match.MarketplaceID
				e.MarketplaceID = &id
			}
		}

		e.DisplayName = sp.NameSupplier
		if e.NameMarketplace != nil && *e.NameMarketplace != "" {
			e.DisplayName = *e.NameMarketplace
		}

		enriched = append(enriched, e)
	}

	return enriched
}

// SortForDisplay orders enriched products so actionable price changes
// surface first, ties broken by display name for a stable listing.
func SortForDisplay(products []models.EnrichedProduct) {
	sort.SliceStable(products, func(i, j int) bool {
		ri, rj := StatusSortRank(products[i].PriceStatus), StatusSortRank(products[j].PriceStatus)
		if ri != rj {
			return ri < rj
		}
		return products[i].DisplayName < products[j].DisplayName
	})
}
