package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/models"
)

func TestSweepExpiredRemovesOnlyExpiredPending(t *testing.T) {
	svc, _ := newTestService(t, Config{Mode: ModeConfirm, ConfirmationTTL: time.Millisecond})
	list := createTestList(t, svc, ownerViewer, ListParams{})
	item := createTestItem(t, svc, ownerViewer, list, "Puzzle", 3)

	// One reservation confirmed before its window closes, one left to expire.
	confirmed, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), guestViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)
	_, err = svc.ConfirmReservation(context.Background(), confirmed.ConfirmationToken)
	require.NoError(t, err)

	stale, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), thirdViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	svc.SweepExpired(context.Background())

	// The expired pending row is gone; its token no longer redeems.
	_, err = svc.ConfirmReservation(context.Background(), stale.ConfirmationToken)
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	// The confirmed row survives the sweep untouched.
	reserved, err := svc.Reconciler().ReservedQuantity(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reserved)
}

func TestSweepExpiredKeepsUnexpiredPending(t *testing.T) {
	svc, _ := newTestService(t, Config{Mode: ModeConfirm, ConfirmationTTL: time.Hour})
	list := createTestList(t, svc, ownerViewer, ListParams{})
	item := createTestItem(t, svc, ownerViewer, list, "Puzzle", 1)

	pending, err := svc.Reserve(context.Background(), models.InternalRef(item.ID), guestViewer, ReserveRequest{Quantity: 1})
	require.NoError(t, err)

	svc.SweepExpired(context.Background())

	_, err = svc.ConfirmReservation(context.Background(), pending.ConfirmationToken)
	require.NoError(t, err)
}
