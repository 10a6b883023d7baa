package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/teztrade/pricesync/internal/models"
)

// ComputeNewPrice applies a pricing rule to a current price. A nil current
// price yields nil (there is nothing to transform). Arithmetic goes through
// decimal so multiplying 1000 by 1.1 produces exactly 1100.00; results are
// rounded to two decimal places. An unrecognized action returns the current
// price unchanged: the action field is a constrained enum validated at input
// time, so this is a defined fallback rather than an error.
func ComputeNewPrice(currentPrice *float64, action models.PricingAction, value float64) *float64 {
	if currentPrice == nil {
		return nil
	}

	current := decimal.NewFromFloat(*currentPrice)
	v := decimal.NewFromFloat(value)

	var result decimal.Decimal
	switch action {
	case models.PricingActionMultiply:
		result = current.Mul(v)
	case models.PricingActionAdd:
		result = current.Add(v)
	default:
		return currentPrice
	}

	out, _ := result.Round(2).Float64()
	return &out
}

// Classify derives a price-change status from old vs. new price. Either side
// being nil means the prices cannot be compared, which reads as unchanged.
// The "missing" status is never produced here: it is set by the caller when
// the reconciler found no marketplace match at all.
func Classify(oldPrice, newPrice *float64) models.PriceStatus {
	if oldPrice == nil || newPrice == nil {
		return models.PriceStatusUnchanged
	}
	switch {
	case *newPrice > *oldPrice:
		return models.PriceStatusIncreased
	case *newPrice < *oldPrice:
		return models.PriceStatusDecreased
	default:
		return models.PriceStatusUnchanged
	}
}

// StatusSortRank orders statuses for display: actionable changes first,
// unknown values last.
func StatusSortRank(s models.PriceStatus) int {
	switch s {
	case models.PriceStatusIncreased:
		return 0
	case models.PriceStatusDecreased:
		return 1
	case models.PriceStatusUnchanged:
		return 2
	case models.PriceStatusMissing:
		return 3
	default:
		return 4
	}
}
