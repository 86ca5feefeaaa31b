package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"capstock/m/domain"
)

func TestService_CheckDelivery_ReplenishesMaterials(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	m := insertMaterial(t, db, "printed cotton", 10)
	order := insertOrder(t, db, domain.OrderStatusOrdered, testDesign{materialID: m, quantity: 4})

	received, err := svc.CheckDelivery(ctx, order, true)
	require.NoError(t, err)
	assert.True(t, received)
	assert.Equal(t, domain.OrderStatusReceived, orderStatus(t, db, order))
	assert.InDelta(t, 14.0, materialQty(t, db, m), 1e-9)
}

func TestService_CheckDelivery_Idempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	m := insertMaterial(t, db, "printed cotton", 10)
	order := insertOrder(t, db, domain.OrderStatusOrdered, testDesign{materialID: m, quantity: 4})

	received, err := svc.CheckDelivery(ctx, order, true)
	require.NoError(t, err)
	require.True(t, received)

	// A second delivery report must not double-credit the material.
	received, err = svc.CheckDelivery(ctx, order, true)
	require.NoError(t, err)
	assert.False(t, received)
	assert.Equal(t, domain.OrderStatusReceived, orderStatus(t, db, order))
	assert.InDelta(t, 14.0, materialQty(t, db, m), 1e-9)
}

func TestService_CheckDelivery_NotDelivered(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	m := insertMaterial(t, db, "printed cotton", 10)
	order := insertOrder(t, db, domain.OrderStatusOrdered, testDesign{materialID: m, quantity: 4})

	received, err := svc.CheckDelivery(ctx, order, false)
	require.NoError(t, err)
	assert.False(t, received)
	assert.Equal(t, domain.OrderStatusOrdered, orderStatus(t, db, order))
	assert.InDelta(t, 10.0, materialQty(t, db, m), 1e-9)
}

func TestService_CheckDelivery_PendingOrderIsNoOp(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	m := insertMaterial(t, db, "printed cotton", 10)
	order := insertOrder(t, db, domain.OrderStatusPending, testDesign{materialID: m, quantity: 4})

	received, err := svc.CheckDelivery(ctx, order, true)
	require.NoError(t, err)
	assert.False(t, received)
	assert.Equal(t, domain.OrderStatusPending, orderStatus(t, db, order))
	assert.InDelta(t, 10.0, materialQty(t, db, m), 1e-9)
}

func TestService_CheckDelivery_UnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CheckDelivery(context.Background(), 9999, true)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestService_CheckDelivery_PartialFailureKeepsAppliedCredits(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	m := insertMaterial(t, db, "printed cotton", 10)
	// Second design points at a material that no longer exists: the loop
	// aborts there and the first credit stays.
	order := insertOrder(t, db, domain.OrderStatusOrdered,
		testDesign{materialID: m, quantity: 4},
		testDesign{materialID: 9999, quantity: 2})

	received, err := svc.CheckDelivery(ctx, order, true)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, received)
	assert.Equal(t, domain.OrderStatusReceived, orderStatus(t, db, order))
	assert.InDelta(t, 14.0, materialQty(t, db, m), 1e-9)
}
