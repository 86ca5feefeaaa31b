package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capstock/m/domain"
	"capstock/m/internal/database"
	"capstock/m/internal/migrations"
)

type testEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func newTestHandler(t *testing.T) (*Handler, *sqlx.DB) {
	t.Helper()
	db := database.Connect("sqlite", ":memory:")
	t.Cleanup(func() { _ = db.Close() })
	migrations.Run(db)
	return New(db, "test_secret"), db
}

func doJSON(t *testing.T, h *Handler, method, path, token string, body interface{}) (*httptest.ResponseRecorder, testEnvelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	var env testEnvelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func adminToken(t *testing.T, h *Handler) string {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "gabi",
		"email":    fmt.Sprintf("gabi-%s@capstock.test", t.Name()),
		"password": "secret123",
		"role":     domain.RoleAdmin,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp authResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func createItem(t *testing.T, h *Handler, token, name string, qty int64, price float64, materialIDs ...int64) domain.Item {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/items", token, map[string]interface{}{
		"name":         name,
		"category":     domain.CategoryCap,
		"quantity":     qty,
		"price":        price,
		"material_ids": materialIDs,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var item domain.Item
	require.NoError(t, json.Unmarshal(env.Data, &item))
	return item
}

func createMaterial(t *testing.T, h *Handler, token, name string) domain.RawMaterial {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodPost, "/raw-materials", token, map[string]interface{}{
		"name":     name,
		"width":    1.5,
		"height":   1.0,
		"quantity": 10.0,
		"unit":     "m",
		"price":    8.5,
		"supplier": "Telas Center",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var m domain.RawMaterial
	require.NoError(t, json.Unmarshal(env.Data, &m))
	return m
}

func fetchItem(t *testing.T, h *Handler, token string, id int64) domain.Item {
	t.Helper()
	rec, env := doJSON(t, h, http.MethodGet, fmt.Sprintf("/items/%d", id), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var item domain.Item
	require.NoError(t, json.Unmarshal(env.Data, &item))
	return item
}

func TestAPI_AuthRequired(t *testing.T) {
	h, _ := newTestHandler(t)

	rec, env := doJSON(t, h, http.MethodGet, "/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "unauthorized", env.Error)
}

func TestAPI_RefreshToken(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	rec, env := doJSON(t, h, http.MethodPost, "/auth/refresh", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp["token"])

	// The refreshed token must be usable.
	rec, _ = doJSON(t, h, http.MethodGet, "/items", resp["token"], nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_ItemCRUD(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	m := createMaterial(t, h, token, "printed cotton")
	item := createItem(t, h, token, "leopard cap", 5, 12.0, m.ID)
	assert.Equal(t, []int64{m.ID}, item.MaterialIDs)

	// Partial PUT: only the price changes, everything else is kept.
	rec, env := doJSON(t, h, http.MethodPut, fmt.Sprintf("/items/%d", item.ID), token, map[string]interface{}{
		"price": 14.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Item
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "leopard cap", updated.Name)
	assert.Equal(t, int64(5), updated.Quantity)
	assert.InDelta(t, 14.5, updated.Price, 1e-9)
	assert.Equal(t, []int64{m.ID}, updated.MaterialIDs)

	rec, _ = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/items/%d", item.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/items/%d", item.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_DeleteItem_ConflictWhenReferenced(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	item := createItem(t, h, token, "leopard cap", 5, 12.0)
	rec, _ := doJSON(t, h, http.MethodPost, "/sales", token, map[string]interface{}{
		"customer_name": "Maru",
		"items":         []map[string]interface{}{{"item_id": item.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/items/%d", item.ID), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error)

	// The refused delete left the row untouched.
	got := fetchItem(t, h, token, item.ID)
	assert.Equal(t, int64(4), got.Quantity)
}

func TestAPI_DeleteMaterial_ConflictWhenLinked(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	m := createMaterial(t, h, token, "printed cotton")
	createItem(t, h, token, "leopard cap", 5, 12.0, m.ID)

	rec, env := doJSON(t, h, http.MethodDelete, fmt.Sprintf("/raw-materials/%d", m.ID), token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error)

	rec, _ = doJSON(t, h, http.MethodGet, fmt.Sprintf("/raw-materials/%d", m.ID), token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_CreateSale_ComputesTotals(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	item := createItem(t, h, token, "leopard cap", 5, 12.0)

	rec, env := doJSON(t, h, http.MethodPost, "/sales", token, map[string]interface{}{
		"customer_name":    "Maru",
		"social_media":     "@maru.caps",
		"shipping_address": "Av. Siempreviva 742",
		"discount":         4.0,
		"items":            []map[string]interface{}{{"item_id": item.ID, "quantity": 2}},
		"extras":           []map[string]interface{}{{"description": "gift wrap", "price": 5.0}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var sale domain.Sale
	require.NoError(t, json.Unmarshal(env.Data, &sale))
	assert.NotEmpty(t, sale.Reference)
	assert.InDelta(t, 25.0, sale.TotalAmount, 1e-9) // 2*12 + 5 - 4
	require.Len(t, sale.Items, 1)
	assert.InDelta(t, 24.0, sale.Items[0].Subtotal, 1e-9)

	assert.Equal(t, int64(3), fetchItem(t, h, token, item.ID).Quantity)
}

func TestAPI_CreateSale_OutOfStock(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	item := createItem(t, h, token, "leopard cap", 0, 12.0)

	rec, env := doJSON(t, h, http.MethodPost, "/sales", token, map[string]interface{}{
		"customer_name": "Maru",
		"items":         []map[string]interface{}{{"item_id": item.ID, "quantity": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "out_of_stock", env.Error)
	assert.Equal(t, int64(0), fetchItem(t, h, token, item.ID).Quantity)
}

func TestAPI_SaleLifecycle_EndToEnd(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	item := createItem(t, h, token, "leopard cap", 5, 12.0)

	rec, env := doJSON(t, h, http.MethodPost, "/sales", token, map[string]interface{}{
		"customer_name": "Maru",
		"items":         []map[string]interface{}{{"item_id": item.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sale domain.Sale
	require.NoError(t, json.Unmarshal(env.Data, &sale))
	assert.Equal(t, int64(4), fetchItem(t, h, token, item.ID).Quantity)

	rec, _ = doJSON(t, h, http.MethodPut, fmt.Sprintf("/sales/%d", sale.ID), token, map[string]interface{}{
		"items": []map[string]interface{}{{"item_id": item.ID, "quantity": 2}},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), fetchItem(t, h, token, item.ID).Quantity)

	rec, _ = doJSON(t, h, http.MethodDelete, fmt.Sprintf("/sales/%d", sale.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), fetchItem(t, h, token, item.ID).Quantity)
}

func TestAPI_CheckDelivery(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	m := createMaterial(t, h, token, "printed cotton")

	rec, env := doJSON(t, h, http.MethodPost, "/order-materials", token, map[string]interface{}{
		"distributor":     "Telas Center",
		"status":          domain.OrderStatusOrdered,
		"tracking_number": "TRK-42",
		"carrier":         "correo",
		"groups": []map[string]interface{}{{
			"label": "restock",
			"designs": []map[string]interface{}{{
				"material_id": m.ID, "width": 1.5, "height": 1.0, "quantity": 4,
			}},
		}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order domain.OrderMaterial
	require.NoError(t, json.Unmarshal(env.Data, &order))

	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/order-materials/%d/check-delivery", order.ID), token, map[string]interface{}{
		"is_delivered": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, true, result["received"])
	assert.Equal(t, domain.OrderStatusReceived, result["status"])

	rec, env = doJSON(t, h, http.MethodGet, fmt.Sprintf("/raw-materials/%d", m.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var gotMaterial domain.RawMaterial
	require.NoError(t, json.Unmarshal(env.Data, &gotMaterial))
	assert.InDelta(t, 14.0, gotMaterial.Quantity, 1e-9)

	// Second report: no-op, no double credit.
	rec, env = doJSON(t, h, http.MethodPost, fmt.Sprintf("/order-materials/%d/check-delivery", order.ID), token, map[string]interface{}{
		"is_delivered": true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, false, result["received"])

	rec, env = doJSON(t, h, http.MethodGet, fmt.Sprintf("/raw-materials/%d", m.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &gotMaterial))
	assert.InDelta(t, 14.0, gotMaterial.Quantity, 1e-9)
}

func TestAPI_ManualStatusEdit_NoReplenishment(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	m := createMaterial(t, h, token, "printed cotton")

	rec, env := doJSON(t, h, http.MethodPost, "/order-materials", token, map[string]interface{}{
		"distributor": "Telas Center",
		"status":      domain.OrderStatusOrdered,
		"groups": []map[string]interface{}{{
			"designs": []map[string]interface{}{{"material_id": m.ID, "quantity": 4}},
		}},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var order domain.OrderMaterial
	require.NoError(t, json.Unmarshal(env.Data, &order))

	// The general update path flips status without touching stock.
	rec, _ = doJSON(t, h, http.MethodPut, fmt.Sprintf("/order-materials/%d", order.ID), token, map[string]interface{}{
		"status": domain.OrderStatusReceived,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = doJSON(t, h, http.MethodGet, fmt.Sprintf("/raw-materials/%d", m.ID), token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var gotMaterial domain.RawMaterial
	require.NoError(t, json.Unmarshal(env.Data, &gotMaterial))
	assert.InDelta(t, 10.0, gotMaterial.Quantity, 1e-9)
}

func TestAPI_DashboardStats(t *testing.T) {
	h, _ := newTestHandler(t)
	token := adminToken(t, h)

	createItem(t, h, token, "leopard cap", 5, 12.0)
	createItem(t, h, token, "skull cap", 3, 12.0)
	createMaterial(t, h, token, "printed cotton")

	rec, env := doJSON(t, h, http.MethodGet, "/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats dashboardStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, int64(2), stats.ItemCount)
	assert.Equal(t, int64(8), stats.ItemUnits)
	assert.Equal(t, int64(1), stats.MaterialCount)
	assert.Equal(t, int64(0), stats.SaleCount)
}
