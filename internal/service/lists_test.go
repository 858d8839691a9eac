package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/models"
)

func TestCreateListDefaults(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	list, err := svc.CreateList(context.Background(), ownerViewer, ListParams{Name: "  Birthday  "})
	require.NoError(t, err)

	assert.Equal(t, "Birthday", list.Name)
	assert.Equal(t, models.VisibilityPublic, list.Visibility)
	assert.NotEmpty(t, list.PublicToken)
	assert.Equal(t, ownerViewer.ID, list.CreatorID)
}

func TestCreateListValidation(t *testing.T) {
	svc, _ := newTestService(t, Config{})

	_, err := svc.CreateList(context.Background(), ownerViewer, ListParams{Name: "   "})
	assert.True(t, IsValidation(err))

	_, err = svc.CreateList(context.Background(), ownerViewer, ListParams{Name: "x", Visibility: "secret"})
	assert.True(t, IsValidation(err))

	_, err = svc.CreateList(context.Background(), Viewer{}, ListParams{Name: "x"})
	assert.True(t, IsAuthorization(err))
}

func TestUpdateListOwnerOnly(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})

	_, err := svc.UpdateList(context.Background(), guestViewer, models.InternalRef(list.ID), ListParams{Name: "Hijacked"})
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))

	updated, err := svc.UpdateList(context.Background(), ownerViewer, models.InternalRef(list.ID), ListParams{
		Name:       "Christmas",
		Visibility: models.VisibilityUnlisted,
		ShowPrices: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Christmas", updated.Name)
	assert.Equal(t, models.VisibilityUnlisted, updated.Visibility)
	assert.True(t, updated.ShowPrices)
}

func TestDeleteListCascades(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})
	item := createTestItem(t, svc, ownerViewer, list, "Mug", 1)

	require.NoError(t, svc.DeleteList(context.Background(), ownerViewer, models.InternalRef(list.ID)))

	_, err := svc.GetList(context.Background(), ownerViewer, models.InternalRef(list.ID))
	assert.True(t, IsNotFound(err))

	_, err = svc.Availability(context.Background(), ownerViewer, models.InternalRef(item.ID))
	assert.True(t, IsNotFound(err))
}

func TestViewCounter(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})

	// The owner's own views do not count.
	detail, err := svc.GetList(context.Background(), ownerViewer, models.InternalRef(list.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 0, detail.List.Views)

	detail, err = svc.GetList(context.Background(), guestViewer, models.InternalRef(list.ID))
	require.NoError(t, err)
	assert.EqualValues(t, 1, detail.List.Views)
}

func TestFollowList(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{})

	err := svc.FollowList(context.Background(), ownerViewer, models.InternalRef(list.ID))
	assert.True(t, IsValidation(err), "owner cannot follow own list")

	require.NoError(t, svc.FollowList(context.Background(), guestViewer, models.InternalRef(list.ID)))

	detail, err := svc.GetList(context.Background(), guestViewer, models.InternalRef(list.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, detail.Followers)

	require.NoError(t, svc.UnfollowList(context.Background(), guestViewer, models.InternalRef(list.ID)))

	err = svc.UnfollowList(context.Background(), guestViewer, models.InternalRef(list.ID))
	assert.True(t, IsNotFound(err))
}

func TestFollowPrivateListRejected(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	list := createTestList(t, svc, ownerViewer, ListParams{Visibility: models.VisibilityPrivate})

	err := svc.FollowList(context.Background(), guestViewer, models.InternalRef(list.ID))
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))
}

func TestAccessibleLists(t *testing.T) {
	svc, _ := newTestService(t, Config{})
	public := createTestList(t, svc, ownerViewer, ListParams{Name: "Public"})
	private := createTestList(t, svc, ownerViewer, ListParams{Name: "Private", Visibility: models.VisibilityPrivate})

	lists, err := svc.AccessibleLists(context.Background(), guestViewer)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.Equal(t, public.ID, lists[0].ID)

	require.NoError(t, svc.AddMember(context.Background(), ownerViewer, models.InternalRef(private.ID), guestViewer.ID))

	lists, err = svc.AccessibleLists(context.Background(), guestViewer)
	require.NoError(t, err)
	assert.Len(t, lists, 2)
}
