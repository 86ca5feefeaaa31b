package api

import (
	"net/http"
	"sync"

	"capstock/m/domain"
)

type dashboardStats struct {
	ItemCount     int64   `json:"item_count"`
	ItemUnits     int64   `json:"item_units"`
	MaterialCount int64   `json:"material_count"`
	PendingOrders int64   `json:"pending_orders"`
	OrderedOrders int64   `json:"ordered_orders"`
	SaleCount     int64   `json:"sale_count"`
	SalesRevenue  float64 `json:"sales_revenue"`
	PendingSales  int64   `json:"pending_sales"`
}

// dashboardStats fans out a fixed batch of independent reads. This is the
// only place where queries run in parallel; the reconciliation routines are
// strictly sequential.
func (h *Handler) dashboardStats(w http.ResponseWriter, r *http.Request) {
	var (
		wg    sync.WaitGroup
		stats dashboardStats

		itemsErr, materialsErr, ordersErr, salesErr error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		itemsErr = h.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM items`).
			Scan(&stats.ItemCount, &stats.ItemUnits)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		materialsErr = h.db.QueryRow(`SELECT COUNT(*) FROM raw_materials`).
			Scan(&stats.MaterialCount)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		ordersErr = h.db.QueryRow(`
            SELECT
                COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN status = $2 THEN 1 ELSE 0 END), 0)
            FROM order_materials`, domain.OrderStatusPending, domain.OrderStatusOrdered).
			Scan(&stats.PendingOrders, &stats.OrderedOrders)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		salesErr = h.db.QueryRow(`
            SELECT COUNT(*), COALESCE(SUM(total_amount), 0),
                COALESCE(SUM(CASE WHEN status = $1 THEN 1 ELSE 0 END), 0)
            FROM sales`, domain.SaleStatusPending).
			Scan(&stats.SaleCount, &stats.SalesRevenue, &stats.PendingSales)
	}()

	wg.Wait()

	for _, err := range []error{itemsErr, materialsErr, ordersErr, salesErr} {
		if err != nil {
			respondError(w, http.StatusInternalServerError, errUpstream, "unable to compute dashboard stats")
			return
		}
	}
	respondData(w, http.StatusOK, stats)
}
