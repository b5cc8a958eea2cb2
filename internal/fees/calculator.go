package fees

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRateBps is the marketplace commission applied to every
// destination charge, expressed in basis points.
const DefaultCommissionRateBps int64 = 1200

// Split is the cent-exact division of a charge between the platform and the
// vendor. PlatformFeeCents + VendorCents always equals the gross amount.
type Split struct {
	GrossCents       int64
	PlatformFeeCents int64
	VendorCents      int64
}

// ComputeSplit divides grossCents at the given commission rate. The platform
// fee is rounded half-up; the vendor share is the remainder, so the two always
// sum back to grossCents.
func ComputeSplit(grossCents, rateBps int64) (Split, error) {
	if grossCents < 0 {
		return Split{}, fmt.Errorf("gross amount must not be negative, got %d", grossCents)
	}
	if rateBps < 0 || rateBps > 10000 {
		return Split{}, fmt.Errorf("commission rate must be within [0, 10000] bps, got %d", rateBps)
	}

	// round(gross * rate / 10000) with half-up on the .5 boundary
	numerator := grossCents*rateBps + 5000
	fee := numerator / 10000

	return Split{
		GrossCents:       grossCents,
		PlatformFeeCents: fee,
		VendorCents:      grossCents - fee,
	}, nil
}

// HostingFee is the seasonal hosting charge for one vendor ledger row.
type HostingFee struct {
	Base     decimal.Decimal
	Discount decimal.Decimal
	Due      decimal.Decimal
}

// ComputeHostingFee applies the sales-volume discount to the base seasonal
// fee: one currency unit off per ten units of net sales, floored, never
// pushing the amount due below zero.
func ComputeHostingFee(netSales decimal.Decimal, baseFeeUnits int64) HostingFee {
	base := decimal.NewFromInt(baseFeeUnits)
	if netSales.IsNegative() {
		netSales = decimal.Zero
	}

	discount := netSales.Div(decimal.NewFromInt(10)).Floor()
	due := base.Sub(discount)
	if due.IsNegative() {
		due = decimal.Zero
	}

	return HostingFee{
		Base:     base,
		Discount: discount,
		Due:      due,
	}
}
