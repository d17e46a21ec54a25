package types

import (
	"github.com/shopspring/decimal"
)

// WholesaleLine is one reserved catalog line on a wholesale order.
type WholesaleLine struct {
	ItemID    string          `json:"item_id"`
	SKU       string          `json:"sku"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// WholesaleLines is stored as a json document on the order row.
type WholesaleLines []WholesaleLine

// Total sums every line total.
func (l WholesaleLines) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range l {
		total = total.Add(line.LineTotal)
	}
	return total
}

// JSONMap stores arbitrary structured details.
type JSONMap map[string]any
