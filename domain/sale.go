package domain

import "time"

const (
	SaleStatusPending   = "pending"
	SaleStatusShipped   = "shipped"
	SaleStatusDelivered = "delivered"
)

// ValidSaleStatus reports whether s is a known sale status.
func ValidSaleStatus(s string) bool {
	switch s {
	case SaleStatusPending, SaleStatusShipped, SaleStatusDelivered:
		return true
	}
	return false
}

// Sale is a customer transaction.
type Sale struct {
	ID              int64       `db:"id" json:"id"`
	Reference       string      `db:"reference" json:"reference"`
	CustomerName    string      `db:"customer_name" json:"customer_name"`
	Status          string      `db:"status" json:"status"`
	SocialMedia     string      `db:"social_media" json:"social_media"`
	ShippingAddress string      `db:"shipping_address" json:"shipping_address"`
	TotalAmount     float64     `db:"total_amount" json:"total_amount"`
	Discount        float64     `db:"discount" json:"discount"`
	Items           []SaleItem  `db:"-" json:"items"`
	Extras          []SaleExtra `db:"-" json:"extras"`
	CreatedAt       string      `db:"created_at" json:"created_at"`
	UpdatedAt       string      `db:"updated_at" json:"updated_at"`
}

// SaleItem is one sold line; unit_price is snapshotted at write time.
type SaleItem struct {
	ID        int64   `db:"id" json:"id"`
	SaleID    int64   `db:"sale_id" json:"sale_id"`
	ItemID    int64   `db:"item_id" json:"item_id"`
	Quantity  int64   `db:"quantity" json:"quantity"`
	UnitPrice float64 `db:"unit_price" json:"unit_price"`
	Subtotal  float64 `db:"subtotal" json:"subtotal"`
}

// SaleExtra is a flat-fee add-on attached to a sale.
type SaleExtra struct {
	ID          int64   `db:"id" json:"id"`
	SaleID      int64   `db:"sale_id" json:"sale_id"`
	Description string  `db:"description" json:"description"`
	Price       float64 `db:"price" json:"price"`
}

// Now returns the timestamp format stored in the text date columns.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
