package domain

// Order status moves forward only: pending -> ordered -> received.
const (
	OrderStatusPending  = "pending"
	OrderStatusOrdered  = "ordered"
	OrderStatusReceived = "received"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusOrdered, OrderStatusReceived:
		return true
	}
	return false
}

// OrderMaterial is a purchase order for raw materials from a distributor.
type OrderMaterial struct {
	ID             int64        `db:"id" json:"id"`
	Distributor    string       `db:"distributor" json:"distributor"`
	Status         string       `db:"status" json:"status"`
	TrackingNumber string       `db:"tracking_number" json:"tracking_number"`
	Carrier        string       `db:"carrier" json:"carrier"`
	Groups         []OrderGroup `db:"-" json:"groups"`
	CreatedAt      string       `db:"created_at" json:"created_at"`
	UpdatedAt      string       `db:"updated_at" json:"updated_at"`
}

// OrderGroup bundles design requests inside a purchase order.
type OrderGroup struct {
	ID      int64         `db:"id" json:"id"`
	OrderID int64         `db:"order_id" json:"order_id"`
	Label   string        `db:"label" json:"label"`
	Designs []OrderDesign `db:"-" json:"designs"`
}

// OrderDesign is one (material, dimensions, quantity) request.
type OrderDesign struct {
	ID         int64   `db:"id" json:"id"`
	GroupID    int64   `db:"group_id" json:"group_id"`
	MaterialID int64   `db:"material_id" json:"material_id"`
	Width      float64 `db:"width" json:"width"`
	Height     float64 `db:"height" json:"height"`
	Quantity   float64 `db:"quantity" json:"quantity"`
}
