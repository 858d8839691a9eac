package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

func seed(t *testing.T) (*Store, *models.GiftItem) {
	t.Helper()
	store := NewStore()

	list, err := store.Lists().Create(context.Background(), &models.GiftList{CreatorID: 1, Name: "L"})
	require.NoError(t, err)
	item, err := store.Items().Create(context.Background(), &models.GiftItem{ListID: list.ID, Name: "I", Quantity: 3})
	require.NoError(t, err)
	return store, item
}

// A failed transaction callback must leave no trace: neither the inserted
// reservation nor the cache write may survive.
func TestWithTxRollsBackOnError(t *testing.T) {
	store, item := seed(t)
	boom := errors.New("boom")

	err := store.Ledger().WithTx(context.Background(), func(tx repository.LedgerTx) error {
		_, err := tx.InsertReservation(context.Background(), &models.Reservation{
			ItemID:     item.ID,
			ListID:     item.ListID,
			Quantity:   2,
			ReservedBy: "bob@example.com",
			Status:     models.ReservationConfirmed,
		})
		require.NoError(t, err)
		require.NoError(t, tx.SetReservedQuantity(context.Background(), item.ID, 2))
		return boom
	})
	require.ErrorIs(t, err, boom)

	reserved, err := store.Reservations().ConfirmedQuantity(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, reserved)

	fresh, err := store.Items().GetByRef(context.Background(), models.InternalRef(item.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, fresh.ReservedQuantity)
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	store, item := seed(t)

	err := store.Ledger().WithTx(context.Background(), func(tx repository.LedgerTx) error {
		if _, err := tx.InsertReservation(context.Background(), &models.Reservation{
			ItemID:     item.ID,
			ListID:     item.ListID,
			Quantity:   2,
			ReservedBy: "bob@example.com",
			Status:     models.ReservationConfirmed,
		}); err != nil {
			return err
		}
		return tx.SetReservedQuantity(context.Background(), item.ID, 2)
	})
	require.NoError(t, err)

	reserved, err := store.Reservations().ConfirmedQuantity(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reserved)
}

// The staged sum must see rows inserted earlier in the same transaction.
func TestConfirmedQuantitySeesStagedRows(t *testing.T) {
	store, item := seed(t)

	err := store.Ledger().WithTx(context.Background(), func(tx repository.LedgerTx) error {
		if _, err := tx.InsertReservation(context.Background(), &models.Reservation{
			ItemID:     item.ID,
			ListID:     item.ListID,
			Quantity:   1,
			ReservedBy: "bob@example.com",
			Status:     models.ReservationConfirmed,
		}); err != nil {
			return err
		}
		sum, err := tx.ConfirmedQuantity(context.Background(), item.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, 1, sum)
		return nil
	})
	require.NoError(t, err)
}
