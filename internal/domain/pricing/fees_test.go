package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCompute_TotalDerivation(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: dec("30.00")},
		{Quantity: 1, UnitPrice: dec("40.00")},
	}

	b := Compute(lines, dec("10.00"), dec("5.00"), dec("1.95"))

	assert.Equal(t, "100.00", b.Subtotal.StringFixed(2))
	// (100 - 10 + 5) * 0.0195 = 1.8525 -> 1.85
	assert.Equal(t, "1.85", b.ProcessingFee.StringFixed(2))
	assert.Equal(t, "95.85", b.Total.StringFixed(2))
}

func TestProcessingFee_RoundsHalfAwayFromZero(t *testing.T) {
	// 50 * 0.0195 = 0.975 -> 0.98
	fee := ProcessingFee(dec("50"), decimal.Zero, decimal.Zero, dec("1.95"))
	assert.Equal(t, "0.98", fee.StringFixed(2))
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"95.85", 9585},
		{"0.10", 10},
		{"19.99", 1999},
		{"1.005", 101},
		{"50", 5000},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToMinorUnits(dec(tt.in)), tt.in)
	}

	assert.True(t, FromMinorUnits(9585).Equal(dec("95.85")))
	assert.Equal(t, ToMinorUnits(dec("95.85")), ToMinorUnits(FromMinorUnits(9585)))
}
