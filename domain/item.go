package domain

// Item categories carried by the shop catalog.
const (
	CategoryCap       = "cap"
	CategoryBouffant  = "bouffant"
	CategoryPonytail  = "ponytail"
	CategoryAccessory = "accessory"
)

// ValidCategory reports whether the category is one the catalog accepts.
func ValidCategory(c string) bool {
	switch c {
	case CategoryCap, CategoryBouffant, CategoryPonytail, CategoryAccessory:
		return true
	}
	return false
}

// Item is a manufactured product held in stock.
type Item struct {
	ID          int64   `db:"id" json:"id"`
	Name        string  `db:"name" json:"name"`
	Category    string  `db:"category" json:"category"`
	Quantity    int64   `db:"quantity" json:"quantity"`
	Price       float64 `db:"price" json:"price"`
	MaterialIDs []int64 `db:"-" json:"material_ids"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
	UpdatedAt   string  `db:"updated_at" json:"updated_at"`
}

// ItemMaterial links an item to one of the raw materials it is made from.
type ItemMaterial struct {
	ID         int64 `db:"id" json:"id"`
	ItemID     int64 `db:"item_id" json:"item_id"`
	MaterialID int64 `db:"material_id" json:"material_id"`
}
