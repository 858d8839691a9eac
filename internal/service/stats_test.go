package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/models"
)

func TestListStats(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})

	price := 10.0
	reservedItem, err := svc.AddItem(context.Background(), ownerViewer, models.InternalRef(list.ID), ItemParams{
		Name:     "Reserved",
		Quantity: 2,
		Price:    &price,
	})
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), ownerViewer, models.InternalRef(list.ID), ItemParams{
		Name:     "Untouched",
		Quantity: 1,
		Price:    &price,
	})
	require.NoError(t, err)

	_, err = svc.Reserve(context.Background(), models.InternalRef(reservedItem.ID), guestViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.FollowList(context.Background(), guestViewer, models.InternalRef(list.ID)))

	stats, err := svc.ListStats(context.Background(), ownerViewer, models.InternalRef(list.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalItems)
	assert.Equal(t, 1, stats.ReservedItems)
	assert.Equal(t, 50, stats.ReservationRate)
	assert.Equal(t, 1, stats.Followers)
	assert.Equal(t, 30.0, stats.TotalValue)
	assert.Equal(t, 10.0, stats.ReservedValue)
	require.Len(t, stats.PopularItems, 1)
	assert.Equal(t, reservedItem.ID, stats.PopularItems[0].ID)
}

func TestListStatsOwnerOnly(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})

	_, err := svc.ListStats(context.Background(), guestViewer, models.InternalRef(list.ID))
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))
}

func TestOwnerStats(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	first := createTestList(t, svc, ownerViewer, ListParams{Name: "First"})
	createTestList(t, svc, ownerViewer, ListParams{Name: "Second"})
	item := createTestItem(t, svc, ownerViewer, first, "Gift", 1)

	_, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), guestViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)

	stats, err := svc.OwnerStats(context.Background(), ownerViewer)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.TotalLists)
	assert.Equal(t, 1, stats.TotalItems)
	assert.Equal(t, 1, stats.ReservedItems)
	assert.Equal(t, 100, stats.ReservationRate)
	assert.Len(t, stats.PopularLists, 2)

	_, err = svc.OwnerStats(context.Background(), Viewer{})
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))
}
