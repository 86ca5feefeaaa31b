package api

import (
	"database/sql"
	"errors"
	"net/http"

	"capstock/m/domain"
)

type materialRequest struct {
	Name     string  `json:"name"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
	Price    float64 `json:"price"`
	Supplier string  `json:"supplier"`
	ImageURL *string `json:"image_url"`
}

type materialUpdateRequest struct {
	Name     *string  `json:"name"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Price    *float64 `json:"price"`
	Supplier *string  `json:"supplier"`
	ImageURL *string  `json:"image_url"`
}

const materialColumns = `id, name, width, height, quantity, unit, price, supplier, image_url, created_at, updated_at`

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	var materials []domain.RawMaterial
	if err := h.db.Select(&materials, `SELECT `+materialColumns+` FROM raw_materials ORDER BY name`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to list raw materials")
		return
	}
	respondData(w, http.StatusOK, materials)
}

func (h *Handler) getMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid material id")
		return
	}
	var m domain.RawMaterial
	err = h.db.Get(&m, `SELECT `+materialColumns+` FROM raw_materials WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "raw material not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch raw material")
		return
	}
	respondData(w, http.StatusOK, m)
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}
	if req.Name == "" || req.Unit == "" {
		respondError(w, http.StatusBadRequest, errValidation, "name and unit are required")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		respondError(w, http.StatusBadRequest, errValidation, "width and height must be positive")
		return
	}
	if req.Quantity < 0 || req.Price < 0 {
		respondError(w, http.StatusBadRequest, errValidation, "quantity and price must not be negative")
		return
	}

	now := domain.Now()
	var id int64
	err := h.db.QueryRowx(`INSERT INTO raw_materials (name, width, height, quantity, unit, price, supplier, image_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9) RETURNING id`,
		req.Name, req.Width, req.Height, req.Quantity, req.Unit, req.Price, req.Supplier, req.ImageURL, now).Scan(&id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create raw material")
		return
	}
	respondData(w, http.StatusCreated, domain.RawMaterial{
		ID: id, Name: req.Name, Width: req.Width, Height: req.Height,
		Quantity: req.Quantity, Unit: req.Unit, Price: req.Price,
		Supplier: req.Supplier, ImageURL: req.ImageURL,
		CreatedAt: now, UpdatedAt: now,
	})
}

func (h *Handler) updateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid material id")
		return
	}
	var req materialUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	var m domain.RawMaterial
	err = h.db.Get(&m, `SELECT `+materialColumns+` FROM raw_materials WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "raw material not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch raw material")
		return
	}

	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Width != nil {
		m.Width = *req.Width
	}
	if req.Height != nil {
		m.Height = *req.Height
	}
	if req.Quantity != nil {
		m.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		m.Unit = *req.Unit
	}
	if req.Price != nil {
		m.Price = *req.Price
	}
	if req.Supplier != nil {
		m.Supplier = *req.Supplier
	}
	if req.ImageURL != nil {
		m.ImageURL = req.ImageURL
	}
	if m.Name == "" || m.Unit == "" || m.Width <= 0 || m.Height <= 0 || m.Quantity < 0 || m.Price < 0 {
		respondError(w, http.StatusBadRequest, errValidation, "invalid raw material fields")
		return
	}

	m.UpdatedAt = domain.Now()
	if _, err := h.db.Exec(`UPDATE raw_materials SET name = $1, width = $2, height = $3, quantity = $4, unit = $5, price = $6, supplier = $7, image_url = $8, updated_at = $9 WHERE id = $10`,
		m.Name, m.Width, m.Height, m.Quantity, m.Unit, m.Price, m.Supplier, m.ImageURL, m.UpdatedAt, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update raw material")
		return
	}
	respondData(w, http.StatusOK, m)
}

// deleteMaterial hard-deletes a raw material unless an item still links it.
func (h *Handler) deleteMaterial(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid material id")
		return
	}

	var refs int
	if err := h.db.Get(&refs, `SELECT COUNT(*) FROM item_materials WHERE material_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to check material references")
		return
	}
	if refs > 0 {
		respondError(w, http.StatusConflict, errConflict, "raw material is referenced by existing items")
		return
	}

	res, err := h.db.Exec(`DELETE FROM raw_materials WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete raw material")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, errNotFound, "raw material not found")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
