package fees

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputeSplit(t *testing.T) {
	cases := []struct {
		name       string
		gross      int64
		rateBps    int64
		wantFee    int64
		wantVendor int64
	}{
		{name: "typical cart", gross: 1247, rateBps: 1200, wantFee: 150, wantVendor: 1097},
		{name: "even hundred", gross: 10000, rateBps: 1200, wantFee: 1200, wantVendor: 8800},
		{name: "exact twelve percent", gross: 1250, rateBps: 1200, wantFee: 150, wantVendor: 1100},
		{name: "half cent rounds up", gross: 25, rateBps: 1000, wantFee: 3, wantVendor: 22},
		{name: "single cent", gross: 1, rateBps: 1200, wantFee: 0, wantVendor: 1},
		{name: "zero gross", gross: 0, rateBps: 1200, wantFee: 0, wantVendor: 0},
		{name: "full commission", gross: 500, rateBps: 10000, wantFee: 500, wantVendor: 0},
		{name: "zero commission", gross: 500, rateBps: 0, wantFee: 0, wantVendor: 500},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split, err := ComputeSplit(tc.gross, tc.rateBps)
			if err != nil {
				t.Fatalf("compute split: %v", err)
			}
			if split.PlatformFeeCents != tc.wantFee {
				t.Errorf("expected fee %d, got %d", tc.wantFee, split.PlatformFeeCents)
			}
			if split.VendorCents != tc.wantVendor {
				t.Errorf("expected vendor %d, got %d", tc.wantVendor, split.VendorCents)
			}
			if split.PlatformFeeCents+split.VendorCents != tc.gross {
				t.Errorf("split does not sum to gross: %d + %d != %d",
					split.PlatformFeeCents, split.VendorCents, tc.gross)
			}
		})
	}
}

func TestComputeSplitRejectsBadInput(t *testing.T) {
	if _, err := ComputeSplit(-1, 1200); err == nil {
		t.Fatal("expected error for negative gross")
	}
	if _, err := ComputeSplit(100, -1); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if _, err := ComputeSplit(100, 10001); err == nil {
		t.Fatal("expected error for rate above 100%")
	}
}

func TestComputeHostingFee(t *testing.T) {
	cases := []struct {
		name         string
		netSales     string
		base         int64
		wantDiscount string
		wantDue      string
	}{
		{name: "no sales full fee", netSales: "0", base: 50, wantDiscount: "0", wantDue: "50"},
		{name: "discount floors", netSales: "237.50", base: 50, wantDiscount: "23", wantDue: "27"},
		{name: "discount caps at base", netSales: "500", base: 50, wantDiscount: "50", wantDue: "0"},
		{name: "discount exceeds base", netSales: "1200", base: 50, wantDiscount: "120", wantDue: "0"},
		{name: "just under a step", netSales: "9.99", base: 50, wantDiscount: "0", wantDue: "50"},
		{name: "negative net clamps", netSales: "-30", base: 50, wantDiscount: "0", wantDue: "50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			net := decimal.RequireFromString(tc.netSales)
			fee := ComputeHostingFee(net, tc.base)
			if got := fee.Discount.String(); got != tc.wantDiscount {
				t.Errorf("expected discount %s, got %s", tc.wantDiscount, got)
			}
			if got := fee.Due.String(); got != tc.wantDue {
				t.Errorf("expected due %s, got %s", tc.wantDue, got)
			}
		})
	}
}

func TestMoneyConversions(t *testing.T) {
	if got := CentsToDecimal(1097); got.String() != "10.97" {
		t.Errorf("expected 10.97, got %s", got)
	}
	if got := DecimalToCents(decimal.RequireFromString("10.97")); got != 1097 {
		t.Errorf("expected 1097, got %d", got)
	}
	if got := DecimalToCents(decimal.RequireFromString("10.975")); got != 1098 {
		t.Errorf("expected half-up rounding to 1098, got %d", got)
	}
	if got := CentsToDecimal(0); !got.IsZero() {
		t.Errorf("expected zero, got %s", got)
	}
}
