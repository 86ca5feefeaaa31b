package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"

	"capstock/m/domain"
)

type orderDesignRequest struct {
	MaterialID int64   `json:"material_id"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Quantity   float64 `json:"quantity"`
}

type orderGroupRequest struct {
	Label   string               `json:"label"`
	Designs []orderDesignRequest `json:"designs"`
}

type orderRequest struct {
	Distributor    string              `json:"distributor"`
	Status         string              `json:"status"`
	TrackingNumber string              `json:"tracking_number"`
	Carrier        string              `json:"carrier"`
	Groups         []orderGroupRequest `json:"groups"`
}

type orderUpdateRequest struct {
	Distributor    *string              `json:"distributor"`
	Status         *string              `json:"status"`
	TrackingNumber *string              `json:"tracking_number"`
	Carrier        *string              `json:"carrier"`
	Groups         *[]orderGroupRequest `json:"groups"`
}

type deliveryCheckRequest struct {
	IsDelivered bool `json:"is_delivered"`
}

const orderColumns = `id, distributor, status, tracking_number, carrier, created_at, updated_at`

func validateGroups(groups []orderGroupRequest) string {
	for _, g := range groups {
		for _, d := range g.Designs {
			if d.MaterialID == 0 || d.Quantity <= 0 {
				return "every design needs a material_id and a positive quantity"
			}
		}
	}
	return ""
}

func insertGroups(tx *sqlx.Tx, orderID int64, groups []orderGroupRequest) ([]domain.OrderGroup, error) {
	out := make([]domain.OrderGroup, 0, len(groups))
	for _, g := range groups {
		var groupID int64
		if err := tx.QueryRowx(`INSERT INTO order_material_groups (order_id, label) VALUES ($1, $2) RETURNING id`, orderID, g.Label).Scan(&groupID); err != nil {
			return nil, err
		}
		group := domain.OrderGroup{ID: groupID, OrderID: orderID, Label: g.Label}
		for _, d := range g.Designs {
			var designID int64
			if err := tx.QueryRowx(`INSERT INTO order_designs (group_id, material_id, width, height, quantity) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
				groupID, d.MaterialID, d.Width, d.Height, d.Quantity).Scan(&designID); err != nil {
				return nil, err
			}
			group.Designs = append(group.Designs, domain.OrderDesign{
				ID: designID, GroupID: groupID, MaterialID: d.MaterialID,
				Width: d.Width, Height: d.Height, Quantity: d.Quantity,
			})
		}
		out = append(out, group)
	}
	return out, nil
}

func (h *Handler) loadGroups(orderIDs []int64) (map[int64][]domain.OrderGroup, error) {
	byOrder := make(map[int64][]domain.OrderGroup)
	if len(orderIDs) == 0 {
		return byOrder, nil
	}

	var groups []domain.OrderGroup
	if err := h.db.Select(&groups, `SELECT id, order_id, label FROM order_material_groups ORDER BY id`); err != nil {
		return nil, err
	}
	var designs []domain.OrderDesign
	if err := h.db.Select(&designs, `SELECT id, group_id, material_id, width, height, quantity FROM order_designs ORDER BY id`); err != nil {
		return nil, err
	}

	byGroup := make(map[int64][]domain.OrderDesign)
	for _, d := range designs {
		byGroup[d.GroupID] = append(byGroup[d.GroupID], d)
	}
	wanted := make(map[int64]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	for _, g := range groups {
		if !wanted[g.OrderID] {
			continue
		}
		g.Designs = byGroup[g.ID]
		byOrder[g.OrderID] = append(byOrder[g.OrderID], g)
	}
	return byOrder, nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var orders []domain.OrderMaterial
	if err := h.db.Select(&orders, `SELECT `+orderColumns+` FROM order_materials ORDER BY created_at DESC`); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to list orders")
		return
	}
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	byOrder, err := h.loadGroups(ids)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load order groups")
		return
	}
	for i := range orders {
		orders[i].Groups = byOrder[orders[i].ID]
	}
	respondData(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid order id")
		return
	}
	var order domain.OrderMaterial
	err = h.db.Get(&order, `SELECT `+orderColumns+` FROM order_materials WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "order not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch order")
		return
	}
	byOrder, err := h.loadGroups([]int64{id})
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to load order groups")
		return
	}
	order.Groups = byOrder[id]
	respondData(w, http.StatusOK, order)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}
	if req.Status == "" {
		req.Status = domain.OrderStatusPending
	}
	if req.Distributor == "" || !domain.ValidOrderStatus(req.Status) {
		respondError(w, http.StatusBadRequest, errValidation, "distributor and a valid status are required")
		return
	}
	if msg := validateGroups(req.Groups); msg != "" {
		respondError(w, http.StatusBadRequest, errValidation, msg)
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create order")
		return
	}
	defer tx.Rollback()

	now := domain.Now()
	var id int64
	err = tx.QueryRowx(`INSERT INTO order_materials (distributor, status, tracking_number, carrier, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		req.Distributor, req.Status, req.TrackingNumber, req.Carrier, now).Scan(&id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create order")
		return
	}
	groups, err := insertGroups(tx, id, req.Groups)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to save order designs")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to create order")
		return
	}

	respondData(w, http.StatusCreated, domain.OrderMaterial{
		ID: id, Distributor: req.Distributor, Status: req.Status,
		TrackingNumber: req.TrackingNumber, Carrier: req.Carrier,
		Groups: groups, CreatedAt: now, UpdatedAt: now,
	})
}

// updateOrder may set status by hand; the general update path never touches
// raw-material stock. Delivery-triggered replenishment only happens through
// checkDelivery.
func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid order id")
		return
	}
	var req orderUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	var order domain.OrderMaterial
	err = h.db.Get(&order, `SELECT `+orderColumns+` FROM order_materials WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, http.StatusNotFound, errNotFound, "order not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch order")
		return
	}

	if req.Distributor != nil {
		order.Distributor = *req.Distributor
	}
	if req.Status != nil {
		order.Status = *req.Status
	}
	if req.TrackingNumber != nil {
		order.TrackingNumber = *req.TrackingNumber
	}
	if req.Carrier != nil {
		order.Carrier = *req.Carrier
	}
	if order.Distributor == "" || !domain.ValidOrderStatus(order.Status) {
		respondError(w, http.StatusBadRequest, errValidation, "invalid order fields")
		return
	}
	if req.Groups != nil {
		if msg := validateGroups(*req.Groups); msg != "" {
			respondError(w, http.StatusBadRequest, errValidation, msg)
			return
		}
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update order")
		return
	}
	defer tx.Rollback()

	order.UpdatedAt = domain.Now()
	if _, err := tx.Exec(`UPDATE order_materials SET distributor = $1, status = $2, tracking_number = $3, carrier = $4, updated_at = $5 WHERE id = $6`,
		order.Distributor, order.Status, order.TrackingNumber, order.Carrier, order.UpdatedAt, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update order")
		return
	}
	if req.Groups != nil {
		if err := deleteGroups(tx, id); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to replace order designs")
			return
		}
		order.Groups, err = insertGroups(tx, id, *req.Groups)
		if err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to replace order designs")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to update order")
		return
	}
	if req.Groups == nil {
		byOrder, err := h.loadGroups([]int64{id})
		if err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to load order groups")
			return
		}
		order.Groups = byOrder[id]
	}
	respondData(w, http.StatusOK, order)
}

func deleteGroups(tx *sqlx.Tx, orderID int64) error {
	if _, err := tx.Exec(`DELETE FROM order_designs WHERE group_id IN (SELECT id FROM order_material_groups WHERE order_id = $1)`, orderID); err != nil {
		return err
	}
	_, err := tx.Exec(`DELETE FROM order_material_groups WHERE order_id = $1`, orderID)
	return err
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleAdmin) {
		return
	}
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid order id")
		return
	}

	tx, err := h.db.Beginx()
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete order")
		return
	}
	defer tx.Rollback()

	if err := deleteGroups(tx, id); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete order")
		return
	}
	res, err := tx.Exec(`DELETE FROM order_materials WHERE id = $1`, id)
	if err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete order")
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		respondError(w, http.StatusNotFound, errNotFound, "order not found")
		return
	}
	if err := tx.Commit(); err != nil {
		respondError(w, http.StatusInternalServerError, errUpstream, "unable to delete order")
		return
	}
	respondData(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// checkDelivery applies the carrier's delivery verdict to an ordered order.
func (h *Handler) checkDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, errValidation, "invalid order id")
		return
	}
	var req deliveryCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errValidation, err.Error())
		return
	}

	received, err := h.stock.CheckDelivery(r.Context(), id, req.IsDelivered)
	if err != nil {
		respondStockError(w, err, "unable to process delivery")
		return
	}
	status := domain.OrderStatusOrdered
	if received {
		status = domain.OrderStatusReceived
	} else {
		// Report whatever the order currently holds.
		if err := h.db.Get(&status, `SELECT status FROM order_materials WHERE id = $1`, id); err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to fetch order status")
			return
		}
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"received":    received,
		"status":      status,
		"replenished": received,
	})
}
