package catalog

import "context"

// Static serves a fixed variant list. Used by the dev seed and tests when no
// catalog service is configured.
type Static struct {
	items []Variant
	err   error
}

func NewStatic(items []Variant) *Static { return &Static{items: items} }

// NewFailing returns a source whose every call fails with err.
func NewFailing(err error) *Static { return &Static{err: err} }

func (s *Static) Variants(ctx context.Context) ([]Variant, error) {
	if s.err != nil {
		return nil, s.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Variant, len(s.items))
	copy(out, s.items)
	return out, nil
}

// DevVariants is the seed stock used by the in-memory dev setup.
func DevVariants() []Variant {
	return []Variant{
		{ProductID: "p-1001", Title: "Cotton T-Shirt", SKU: "TSHIRT-M", CostMinor: 25000, Quantity: 40},
		{ProductID: "p-1002", Title: "Denim Jeans", SKU: "JEANS-32", CostMinor: 90000, Quantity: 15},
		{ProductID: "p-1003", Title: "Canvas Tote", SKU: "TOTE-STD", CostMinor: 12000, Quantity: 60},
	}
}
