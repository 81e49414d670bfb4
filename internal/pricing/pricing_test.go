package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		lines    []Line
		subtotal string
		tax      string
		shipping string
		grand    string
	}{
		{
			name:     "below threshold pays shipping",
			lines:    []Line{{UnitPrice: dec("10.00"), Quantity: 4}},
			subtotal: "40.00",
			tax:      "5.20",
			shipping: "10.00",
			grand:    "55.20",
		},
		{
			name:     "above threshold ships free",
			lines:    []Line{{UnitPrice: dec("20.00"), Quantity: 3}},
			subtotal: "60.00",
			tax:      "7.80",
			shipping: "0",
			grand:    "67.80",
		},
		{
			name:     "exactly threshold pays shipping",
			lines:    []Line{{UnitPrice: dec("25.00"), Quantity: 2}},
			subtotal: "50.00",
			tax:      "6.50",
			shipping: "10.00",
			grand:    "66.50",
		},
		{
			name:     "half cent rounds up",
			lines:    []Line{{UnitPrice: dec("0.50"), Quantity: 1}},
			subtotal: "0.50",
			tax:      "0.07",
			shipping: "10.00",
			grand:    "10.57",
		},
		{
			name: "several lines",
			lines: []Line{
				{UnitPrice: dec("19.99"), Quantity: 2},
				{UnitPrice: dec("5.25"), Quantity: 1},
			},
			subtotal: "45.23",
			tax:      "5.88",
			shipping: "10.00",
			grand:    "61.11",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(DefaultPolicy(), tt.lines)
			require.True(t, dec(tt.subtotal).Equal(got.Subtotal), "subtotal %s", got.Subtotal)
			require.True(t, dec(tt.tax).Equal(got.TaxTotal), "tax %s", got.TaxTotal)
			require.True(t, dec(tt.shipping).Equal(got.ShippingTotal), "shipping %s", got.ShippingTotal)
			require.True(t, dec(tt.grand).Equal(got.GrandTotal), "grand %s", got.GrandTotal)
			require.Len(t, got.LineTotals, len(tt.lines))
		})
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	lines := []Line{{UnitPrice: dec("3.33"), Quantity: 3}, {UnitPrice: dec("0.10"), Quantity: 7}}
	first := Compute(DefaultPolicy(), lines)
	for i := 0; i < 10; i++ {
		next := Compute(DefaultPolicy(), lines)
		require.True(t, first.GrandTotal.Equal(next.GrandTotal))
	}
}

func TestApplyUsesOrderSnapshot(t *testing.T) {
	policy := Policy{TaxRate: dec("0.05"), ShippingFee: dec("4.00"), FreeShippingThreshold: dec("100")}
	order := domain.Order{
		Pricing: policy.Snapshot(),
		Items: []domain.OrderItem{
			{UnitPrice: dec("12.50"), Quantity: 2},
		},
	}

	Apply(&order)

	require.True(t, dec("25.00").Equal(order.Items[0].TotalPrice))
	require.True(t, dec("25.00").Equal(order.Subtotal))
	require.True(t, dec("1.25").Equal(order.TaxTotal))
	require.True(t, dec("4.00").Equal(order.ShippingTotal))
	require.True(t, dec("30.25").Equal(order.GrandTotal))
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, DefaultPolicy().Validate())

	bad := DefaultPolicy()
	bad.TaxRate = dec("-0.1")
	require.Error(t, bad.Validate())
}
