package cart

import (
	"fmt"

	"github.com/google/uuid"
)

// Item is a single cart line as submitted by the buyer.
type Item struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	FarmerID       uuid.UUID `json:"farmer_id" validate:"required"`
	Name           string    `json:"name" validate:"required"`
	ImageURL       string    `json:"image_url,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"gte=0"`
	Quantity       int64     `json:"quantity" validate:"gt=0"`
}

// VendorGroup holds one farmer's slice of a mixed cart, in submission order.
type VendorGroup struct {
	FarmerID      uuid.UUID
	Items         []Item
	SubtotalCents int64
}

// PartitionByFarmer splits a mixed cart into per-vendor groups. Groups appear
// in the order each farmer first occurs in the cart, and items keep their
// relative order within a group.
func PartitionByFarmer(items []Item) ([]VendorGroup, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("cart must contain at least one item")
	}

	index := make(map[uuid.UUID]int, len(items))
	groups := make([]VendorGroup, 0, len(items))

	for i, item := range items {
		if item.FarmerID == uuid.Nil {
			return nil, fmt.Errorf("cart item %d missing farmer id", i)
		}
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("cart item %d missing product id", i)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("cart item %d has non-positive quantity %d", i, item.Quantity)
		}
		if item.UnitPriceCents < 0 {
			return nil, fmt.Errorf("cart item %d has negative unit price %d", i, item.UnitPriceCents)
		}

		pos, ok := index[item.FarmerID]
		if !ok {
			pos = len(groups)
			index[item.FarmerID] = pos
			groups = append(groups, VendorGroup{FarmerID: item.FarmerID})
		}
		groups[pos].Items = append(groups[pos].Items, item)
		groups[pos].SubtotalCents += item.UnitPriceCents * item.Quantity
	}

	return groups, nil
}

// SubtotalCents sums the line totals of the provided items.
func SubtotalCents(items []Item) int64 {
	var total int64
	for _, item := range items {
		total += item.UnitPriceCents * item.Quantity
	}
	return total
}
