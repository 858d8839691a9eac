package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/models"
)

func TestReservedQuantityIdempotent(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})
	item := createTestItem(t, svc, ownerViewer, list, "Headphones", 5)

	_, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), guestViewer, ReserveRequest{Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Reserve(context.Background(), models.InternalRef(item.ID), thirdViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		reserved, err := svc.Reconciler().ReservedQuantity(context.Background(), item.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, reserved)
	}
}

// Shrinking an item's quantity below its confirmed sum must never surface a
// negative availability.
func TestAvailabilityClampsOvercommit(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})
	item := createTestItem(t, svc, ownerViewer, list, "Headphones", 3)

	_, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), guestViewer, ReserveRequest{Quantity: 3})
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), ownerViewer, models.InternalRef(item.ID), ItemParams{
		Name:     item.Name,
		Quantity: 2,
	})
	require.NoError(t, err)

	avail, err := svc.Availability(context.Background(), guestViewer, models.InternalRef(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, avail.TotalQuantity)
	assert.Equal(t, 3, avail.ReservedQuantity)
	assert.Equal(t, 0, avail.AvailableQuantity)
	assert.False(t, avail.IsAvailable)
}

func TestAvailabilitySnapshot(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})
	item := createTestItem(t, svc, ownerViewer, list, "Headphones", 4)

	_, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), guestViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)

	avail, err := svc.Availability(context.Background(), guestViewer, models.InternalRef(item.ID))
	require.NoError(t, err)
	assert.Equal(t, Availability{
		TotalQuantity:     4,
		ReservedQuantity:  1,
		AvailableQuantity: 3,
		IsAvailable:       true,
	}, avail)
}
