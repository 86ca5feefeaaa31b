package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"capstock/m/domain"
	"capstock/m/internal/stock"
)

type saleLineRequest struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

type saleExtraRequest struct {
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

type saleRequest struct {
	CustomerName    string             `json:"customer_name"`
	Status          string             `json:"status"`
	SocialMedia     string             `json:"social_media"`
	ShippingAddress string             `json:"shipping_address"`
	Discount        float64            `json:"discount"`
	Items           []saleLineRequest  `json:"items"`
	Extras          []saleExtraRequest `json:"extras"`
}

type saleUpdateRequest struct {
	CustomerName    *string             `json:"customer_name"`
	Status          *string             `json:"status"`
	SocialMedia     *string             `json:"social_media"`
	ShippingAddress *string             `json:"shipping_address"`
	Discount        *float64            `json:"discount"`
	Items           *[]saleLineRequest  `json:"items"`
	Extras          *[]saleExtraRequest `json:"extras"`
}

const saleColumns = `id, reference, customer_name, status, social_media, shipping_address, total_amount, discount, created_at, updated_at`

func validateSaleLines(lines []saleLineRequest) string {
	for _, l := range lines {
		if l.ItemID == 0 || l.Quantity <= 0 {
			return "every sale line needs an item_id and a positive quantity"
		}
	}
	return ""
}

func toStockLines(lines []saleLineRequest) []stock.Line {
	out := make([]stock.Line, len(lines))
	for i, l := range lines {
		out[i] = stock.Line{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return out
}

// itemPrices snapshots the current catalog price for every referenced item.
func (h *Handler) itemPrices(lines []saleLineRequest) (map[int64]float64, error) {
	prices := make(map[int64]float64)
	for _, l := range lines {
		if _, ok := prices[l.ItemID]; ok {
			continue
		}
		var p float64
		if err := h.db.Get(&p, `SELECT price FROM items WHERE id = $1`, l.ItemID); err != nil {
			return nil, err
		}
		prices[l.ItemID] = p
	}
	return prices, nil
}

func saleTotal(lines []domain.SaleItem, extras []domain.SaleExtra, discount float64) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal
	}
	for _, e := range extras {
		total += e.Price
	}
	total -= discount
	if total < 0 {
		total = 0
	}
	return total
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	var sales []domain.Sale
	if err := h.db.Select(&sales, `SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to list sales")
		return
	}

	var items []domain.SaleItem
	if err := h.db.Select(&items, `SELECT id, sale_id, item_id, quantity, unit_price, subtotal FROM sale_items ORDER BY id`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load sale items")
		return
	}
	var extras []domain.SaleExtra
	if err := h.db.Select(&extras, `SELECT id, sale_id, description, price FROM sale_extras ORDER BY id`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load sale extras")
		return
	}

	itemsBySale := make(map[int64][]domain.SaleItem)
	for _, it := range items {
		itemsBySale[it.SaleID] = append(itemsBySale[it.SaleID], it)
	}
	extrasBySale := make(map[int64][]domain.SaleExtra)
	for _, e := range extras {
		extrasBySale[e.SaleID] = append(extrasBySale[e.SaleID], e)
	}
	for i := range sales {
		sales[i].Items = itemsBySale[sales[i].ID]
		sales[i].Extras = extrasBySale[sales[i].ID]
	}
	respondData(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid sale id")
		return
	}
	sale, err := h.fetchSale(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "sale not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch sale")
		return
	}
	respondData(w, http.StatusOK, sale)
}

func (h *Handler) fetchSale(id int64) (domain.Sale, error) {
	var sale domain.Sale
	if err := h.db.Get(&sale, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id); err != nil {
		return sale, err
	}
	if err := h.db.Select(&sale.Items, `SELECT id, sale_id, item_id, quantity, unit_price, subtotal FROM sale_items WHERE sale_id = $1 ORDER BY id`, id); err != nil {
		return sale, err
	}
	if err := h.db.Select(&sale.Extras, `SELECT id, sale_id, description, price FROM sale_extras WHERE sale_id = $1 ORDER BY id`, id); err != nil {
		return sale, err
	}
	return sale, nil
}

// createSale decrements stock line by line before inserting the record.
// A failure partway leaves earlier decrements in place and no sale row;
// that is the documented contract, not an oversight.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}
	if req.Status == "" {
		req.Status = domain.SaleStatusPending
	}
	if req.CustomerName == "" || !domain.ValidSaleStatus(req.Status) {
		respondError(w, http.StatusBadRequest, errValidation, "customer_name and a valid status are required")
		return
	}
	if len(req.Items) == 0 && len(req.Extras) == 0 {
		respondError(w, http.StatusBadRequest, errValidation, "a sale needs at least one item or extra")
		return
	}
	if msg := validateSaleLines(req.Items); msg != "" {
		respondError(w, http.StatusBadRequest, errValidation, msg)
		return
	}
	if req.Discount < 0 {
		respondError(w, http.StatusBadRequest, errValidation, "discount must not be negative")
		return
	}

	if err := h.stock.ApplySaleCreate(r.Context(), toStockLines(req.Items)); err != nil {
		respondStockError(w, err, "unable to adjust stock")
		return
	}

	prices, err := h.itemPrices(req.Items)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to price sale items")
		return
	}

	lines := make([]domain.SaleItem, len(req.Items))
	for i, l := range req.Items {
		price := prices[l.ItemID]
		lines[i] = domain.SaleItem{
			ItemID: l.ItemID, Quantity: l.Quantity,
			UnitPrice: price, Subtotal: price * float64(l.Quantity),
		}
	}
	extras := make([]domain.SaleExtra, len(req.Extras))
	for i, e := range req.Extras {
		extras[i] = domain.SaleExtra{Description: e.Description, Price: e.Price}
	}
	total := saleTotal(lines, extras, req.Discount)

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create sale")
		return
	}
	defer tx.Rollback()

	now := domain.Now()
	reference := uuid.NewString()
	var saleID int64
	err = tx.QueryRowx(`INSERT INTO sales (reference, customer_name, status, social_media, shipping_address, total_amount, discount, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8) RETURNING id`,
		reference, req.CustomerName, req.Status, req.SocialMedia, req.ShippingAddress, total, req.Discount, now).Scan(&saleID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create sale")
		return
	}
	for i := range lines {
		lines[i].SaleID = saleID
		if err := tx.QueryRowx(`INSERT INTO sale_items (sale_id, item_id, quantity, unit_price, subtotal) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			saleID, lines[i].ItemID, lines[i].Quantity, lines[i].UnitPrice, lines[i].Subtotal).Scan(&lines[i].ID); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to save sale items")
			return
		}
	}
	for i := range extras {
		extras[i].SaleID = saleID
		if err := tx.QueryRowx(`INSERT INTO sale_extras (sale_id, description, price) VALUES ($1, $2, $3) RETURNING id`,
			saleID, extras[i].Description, extras[i].Price).Scan(&extras[i].ID); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to save sale extras")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to finalize sale")
		return
	}

	respondData(w, http.StatusCreated, domain.Sale{
		ID: saleID, Reference: reference, CustomerName: req.CustomerName,
		Status: req.Status, SocialMedia: req.SocialMedia, ShippingAddress: req.ShippingAddress,
		TotalAmount: total, Discount: req.Discount,
		Items: lines, Extras: extras, CreatedAt: now, UpdatedAt: now,
	})
}

// updateSale reconciles stock against the edited line list (restores first,
// then decrements) and replaces the stored associations.
func (h *Handler) updateSale(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid sale id")
		return
	}
	var req saleUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	sale, err := h.fetchSale(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "sale not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch sale")
		return
	}

	if req.CustomerName != nil {
		sale.CustomerName = *req.CustomerName
	}
	if req.Status != nil {
		sale.Status = *req.Status
	}
	if req.SocialMedia != nil {
		sale.SocialMedia = *req.SocialMedia
	}
	if req.ShippingAddress != nil {
		sale.ShippingAddress = *req.ShippingAddress
	}
	if req.Discount != nil {
		sale.Discount = *req.Discount
	}
	if sale.CustomerName == "" || !domain.ValidSaleStatus(sale.Status) || sale.Discount < 0 {
		respondError(w, http.StatusBadRequest, errValidation, "invalid sale fields")
		return
	}

	newLines := sale.Items
	if req.Items != nil {
		if msg := validateSaleLines(*req.Items); msg != "" {
			respondError(w, http.StatusBadRequest, errValidation, msg)
			return
		}

		before := make([]stock.Line, len(sale.Items))
		for i, l := range sale.Items {
			before[i] = stock.Line{ItemID: l.ItemID, Quantity: l.Quantity}
		}
		if err := h.stock.ApplySaleUpdate(r.Context(), before, toStockLines(*req.Items)); err != nil {
			respondStockError(w, err, "unable to adjust stock")
			return
		}

		prices, err := h.itemPrices(*req.Items)
		if err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to price sale items")
			return
		}
		newLines = make([]domain.SaleItem, len(*req.Items))
		for i, l := range *req.Items {
			price := prices[l.ItemID]
			newLines[i] = domain.SaleItem{
				SaleID: id, ItemID: l.ItemID, Quantity: l.Quantity,
				UnitPrice: price, Subtotal: price * float64(l.Quantity),
			}
		}
	}

	newExtras := sale.Extras
	if req.Extras != nil {
		newExtras = make([]domain.SaleExtra, len(*req.Extras))
		for i, e := range *req.Extras {
			newExtras[i] = domain.SaleExtra{SaleID: id, Description: e.Description, Price: e.Price}
		}
	}

	sale.TotalAmount = saleTotal(newLines, newExtras, sale.Discount)

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update sale")
		return
	}
	defer tx.Rollback()

	sale.UpdatedAt = domain.Now()
	if _, err := tx.Exec(`UPDATE sales SET customer_name = $1, status = $2, social_media = $3, shipping_address = $4, total_amount = $5, discount = $6, updated_at = $7 WHERE id = $8`,
		sale.CustomerName, sale.Status, sale.SocialMedia, sale.ShippingAddress, sale.TotalAmount, sale.Discount, sale.UpdatedAt, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update sale")
		return
	}
	if req.Items != nil {
		if _, err := tx.Exec(`DELETE FROM sale_items WHERE sale_id = $1`, id); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to replace sale items")
			return
		}
		for i := range newLines {
			if err := tx.QueryRowx(`INSERT INTO sale_items (sale_id, item_id, quantity, unit_price, subtotal) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				id, newLines[i].ItemID, newLines[i].Quantity, newLines[i].UnitPrice, newLines[i].Subtotal).Scan(&newLines[i].ID); err != nil {
				respondError(w, http.StatusInternalServerError, errUpstream, "unable to replace sale items")
				return
			}
		}
	}
	if req.Extras != nil {
		if _, err := tx.Exec(`DELETE FROM sale_extras WHERE sale_id = $1`, id); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to replace sale extras")
			return
		}
		for i := range newExtras {
			if err := tx.QueryRowx(`INSERT INTO sale_extras (sale_id, description, price) VALUES ($1, $2, $3) RETURNING id`,
				id, newExtras[i].Description, newExtras[i].Price).Scan(&newExtras[i].ID); err != nil {
				respondError(w, http.StatusInternalServerError, errUpstream, "unable to replace sale extras")
				return
			}
		}
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update sale")
		return
	}

	sale.Items = newLines
	sale.Extras = newExtras
	respondData(w, http.StatusOK, sale)
}

// deleteSale restores every line quantity, then removes the record.
func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid sale id")
		return
	}

	sale, err := h.fetchSale(id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "sale not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch sale")
		return
	}

	lines := make([]stock.Line, len(sale.Items))
	for i, l := range sale.Items {
		lines[i] = stock.Line{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	if err := h.stock.ApplySaleDelete(r.Context(), lines); err != nil {
		respondStockError(w, err, "unable to restore stock")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete sale")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sale_extras WHERE sale_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete sale")
		return
	}
	if _, err := tx.Exec(`DELETE FROM sale_items WHERE sale_id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete sale")
		return
	}
	if _, err := tx.Exec(`DELETE FROM sales WHERE id = $1`, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete sale")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete sale")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "deleted"})
}
