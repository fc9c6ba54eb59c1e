package medicine

import (
	"github.com/shopspring/decimal"
)

type Medicine struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	GenericName   *string         `json:"generic_name,omitempty"`
	Dosage        string          `json:"dosage"`
	Formulation   string          `json:"formulation"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Description   *string         `json:"description,omitempty"`
}

// PriceAndStock is the slice of catalog state the ordering flow cares about.
type PriceAndStock struct {
	Price decimal.Decimal
	Stock int
}
