package domain

// RawMaterial is fabric or design stock used to manufacture items.
type RawMaterial struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Width     float64 `db:"width" json:"width"`
	Height    float64 `db:"height" json:"height"`
	Quantity  float64 `db:"quantity" json:"quantity"`
	Unit      string  `db:"unit" json:"unit"`
	Price     float64 `db:"price" json:"price"`
	Supplier  string  `db:"supplier" json:"supplier"`
	ImageURL  *string `db:"image_url" json:"image_url,omitempty"`
	CreatedAt string  `db:"created_at" json:"created_at"`
	UpdatedAt string  `db:"updated_at" json:"updated_at"`
}
