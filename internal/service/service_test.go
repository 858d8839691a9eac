package service

import (
	"context"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/metrics"
	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository/memory"
)

var (
	ownerViewer = Viewer{ID: 1, Email: "alice@example.com", Username: "alice"}
	guestViewer = Viewer{ID: 2, Email: "bob@example.com", Username: "bob"}
	thirdViewer = Viewer{ID: 3, Email: "carol@example.com", Username: "carol"}
)

// newTestService builds a service over the in-memory store. The returned
// store can be used to inspect state the public API does not expose.
func newTestService(t *testing.T, cfg Config) (*Service, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	l := logrus.New()
	l.SetOutput(io.Discard)

	svc := New(cfg, l, metrics.New(),
		store.Lists(), store.Items(), store.Reservations(),
		store.Comments(), store.Notifications(), store.Ledger(), nil)
	return svc, store
}

func createTestList(t *testing.T, svc *Service, viewer Viewer, params ListParams) *models.GiftList {
	t.Helper()
	if params.Name == "" {
		params.Name = "Birthday"
	}
	list, err := svc.CreateList(context.Background(), viewer, params)
	require.NoError(t, err)
	return list
}

func createTestItem(t *testing.T, svc *Service, viewer Viewer, list *models.GiftList, name string, quantity int) *models.GiftItem {
	t.Helper()
	item, err := svc.AddItem(context.Background(), viewer, models.InternalRef(list.ID), ItemParams{
		Name:     name,
		Quantity: quantity,
	})
	require.NoError(t, err)
	return item
}

func TestServiceDefaults(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	require.Equal(t, ModeImmediate, svc.cfg.Mode)
	require.Positive(t, svc.cfg.ConfirmationTTL)
	require.Positive(t, svc.cfg.SweepInterval)
	require.NotNil(t, svc.notifier)
	require.NotNil(t, svc.Reconciler())
}
