package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"capstock/m/domain"
)

func urlID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

type itemRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	MaterialIDs []int64 `json:"material_ids"`
}

type itemUpdateRequest struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Quantity    *int64   `json:"quantity"`
	Price       *float64 `json:"price"`
	MaterialIDs *[]int64 `json:"material_ids"`
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	var items []domain.Item
	if err := h.db.Select(&items, `SELECT id, name, category, quantity, price, created_at, updated_at FROM items ORDER BY name`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to list items")
		return
	}

	var links []domain.ItemMaterial
	if err := h.db.Select(&links, `SELECT id, item_id, material_id FROM item_materials ORDER BY id`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load item materials")
		return
	}
	byItem := make(map[int64][]int64)
	for _, l := range links {
		byItem[l.ItemID] = append(byItem[l.ItemID], l.MaterialID)
	}
	for i := range items {
		items[i].MaterialIDs = byItem[items[i].ID]
	}
	respondData(w, http.StatusOK, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid item id")
		return
	}
	var item domain.Item
	err = h.db.Get(&item, `SELECT id, name, category, quantity, price, created_at, updated_at FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "item not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch item")
		return
	}
	if err := h.db.Select(&item.MaterialIDs, `SELECT material_id FROM item_materials WHERE item_id = $1 ORDER BY id`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load item materials")
		return
	}
	respondData(w, http.StatusOK, item)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}
	if req.Name == "" || !domain.ValidCategory(req.Category) {
		respondError(w, http.StatusBadRequest, errValidation, "name and a valid category are required")
		return
	}
	if req.Quantity < 0 || req.Price < 0 {
		respondError(w, http.StatusBadRequest, errValidation, "quantity and price must not be negative")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create item")
		return
	}
	defer tx.Rollback()

	now := domain.Now()
	var id int64
	err = tx.QueryRowx(`INSERT INTO items (name, category, quantity, price, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		req.Name, req.Category, req.Quantity, req.Price, now).Scan(&id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create item")
		return
	}
	for _, mid := range req.MaterialIDs {
		if _, err := tx.Exec(`INSERT INTO item_materials (item_id, material_id) VALUES ($1, $2)`, id, mid); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to link materials")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create item")
		return
	}

	respondData(w, http.StatusCreated, domain.Item{
		ID: id, Name: req.Name, Category: req.Category,
		Quantity: req.Quantity, Price: req.Price,
		MaterialIDs: req.MaterialIDs, CreatedAt: now, UpdatedAt: now,
	})
}

// updateItem is a full-record PUT with partial-field omission: omitted
// fields keep their stored values.
func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid item id")
		return
	}
	var req itemUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	var item domain.Item
	err = h.db.Get(&item, `SELECT id, name, category, quantity, price, created_at, updated_at FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "item not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch item")
		return
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Category != nil {
		item.Category = *req.Category
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if item.Name == "" || !domain.ValidCategory(item.Category) || item.Quantity < 0 || item.Price < 0 {
		respondError(w, http.StatusBadRequest, errValidation, "invalid item fields")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update item")
		return
	}
	defer tx.Rollback()

	item.UpdatedAt = domain.Now()
	if _, err := tx.Exec(`UPDATE items SET name = $1, category = $2, quantity = $3, price = $4, updated_at = $5 WHERE id = $6`,
		item.Name, item.Category, item.Quantity, item.Price, item.UpdatedAt, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update item")
		return
	}
	if req.MaterialIDs != nil {
		if _, err := tx.Exec(`DELETE FROM item_materials WHERE item_id = $1`, id); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to update item materials")
			return
		}
		for _, mid := range *req.MaterialIDs {
			if _, err := tx.Exec(`INSERT INTO item_materials (item_id, material_id) VALUES ($1, $2)`, id, mid); err != nil {
				respondError(w, http.StatusInternalServerError, errUpstream, "unable to update item materials")
				return
			}
		}
		item.MaterialIDs = *req.MaterialIDs
	} else if err := tx.Select(&item.MaterialIDs, `SELECT material_id FROM item_materials WHERE item_id = $1 ORDER BY id`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load item materials")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update item")
		return
	}
	respondData(w, http.StatusOK, item)
}

// deleteItem hard-deletes an item unless a sale line still references it.
func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid item id")
		return
	}

	var refs int
	if err := h.db.Get(&refs, `SELECT COUNT(*) FROM sale_items WHERE item_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to check item references")
		return
	}
	if refs > 0 {
		respondError(w, http.StatusConflict, errConflict, "item is referenced by existing sales")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete item")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM item_materials WHERE item_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete item")
		return
	}
	res, err := tx.Exec(`DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete item")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, errNotFound, "item not found")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete item")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
