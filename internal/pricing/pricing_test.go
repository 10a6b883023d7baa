package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teztrade/pricesync/internal/models"
)

func fp(v float64) *float64 { return &v }

func TestComputeNewPrice_Multiply(t *testing.T) {
	got := ComputeNewPrice(fp(1000), models.PricingActionMultiply, 1.1)
	assert.NotNil(t, got)
	assert.Equal(t, 1100.0, *got)
}

func TestComputeNewPrice_Add(t *testing.T) {
	got := ComputeNewPrice(fp(250.50), models.PricingActionAdd, 49.50)
	assert.NotNil(t, got)
	assert.Equal(t, 300.0, *got)
}

func TestComputeNewPrice_NilPrice(t *testing.T) {
	assert.Nil(t, ComputeNewPrice(nil, models.PricingActionMultiply, 2))
	assert.Nil(t, ComputeNewPrice(nil, models.PricingActionAdd, 2))
}

func TestComputeNewPrice_UnknownActionIsIdentity(t *testing.T) {
	p := fp(500)
	got := ComputeNewPrice(p, models.PricingAction("discount"), 0.5)
	assert.Equal(t, p, got)
	assert.Equal(t, 500.0, *got)
}

// Applying the rule twice to the original price must give the same answer
// both times; the evaluator keeps no hidden state.
func TestComputeNewPrice_Idempotent(t *testing.T) {
	first := ComputeNewPrice(fp(1000), models.PricingActionMultiply, 1.1)
	second := ComputeNewPrice(fp(1000), models.PricingActionMultiply, 1.1)
	assert.Equal(t, *first, *second)
}

func TestComputeNewPrice_RoundsToTwoPlaces(t *testing.T) {
	got := ComputeNewPrice(fp(999.99), models.PricingActionMultiply, 1.07)
	assert.NotNil(t, got)
	assert.Equal(t, 1069.99, *got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		old  *float64
		new  *float64
		want models.PriceStatus
	}{
		{"increase", fp(1000), fp(1100), models.PriceStatusIncreased},
		{"decrease", fp(1000), fp(900), models.PriceStatusDecreased},
		{"equal", fp(1000), fp(1000), models.PriceStatusUnchanged},
		{"nil old", nil, fp(1000), models.PriceStatusUnchanged},
		{"nil new", fp(1000), nil, models.PriceStatusUnchanged},
		{"both nil", nil, nil, models.PriceStatusUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.old, tt.new))
		})
	}
}

// Every non-nil pair lands on exactly one of the three comparable statuses.
func TestClassify_Totality(t *testing.T) {
	pairs := [][2]float64{{1, 2}, {2, 1}, {3, 3}, {0, 0.01}, {0.01, 0}}
	for _, pair := range pairs {
		status := Classify(fp(pair[0]), fp(pair[1]))
		assert.Contains(t, []models.PriceStatus{
			models.PriceStatusIncreased,
			models.PriceStatusDecreased,
			models.PriceStatusUnchanged,
		}, status)
	}
}

func TestStatusSortRank_Order(t *testing.T) {
	assert.Less(t, StatusSortRank(models.PriceStatusIncreased), StatusSortRank(models.PriceStatusDecreased))
	assert.Less(t, StatusSortRank(models.PriceStatusDecreased), StatusSortRank(models.PriceStatusUnchanged))
	assert.Less(t, StatusSortRank(models.PriceStatusUnchanged), StatusSortRank(models.PriceStatusMissing))
	assert.Less(t, StatusSortRank(models.PriceStatusMissing), StatusSortRank(models.PriceStatus("weird")))
}

// Full scenario from the pricing flow: 1000 with multiply 1.1 comes out as
// 1100 and reads as an increase.
func TestPricingScenario(t *testing.T) {
	current := fp(1000)
	updated := ComputeNewPrice(current, models.PricingActionMultiply, 1.1)
	assert.Equal(t, 1100.0, *updated)
	assert.Equal(t, models.PriceStatusIncreased, Classify(current, updated))
}
