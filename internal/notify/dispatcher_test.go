package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository/memory"
)

type fakeSender struct {
	messages []string
	err      error
}

func (f *fakeSender) Send(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, text)
	return nil
}

type fakeMailer struct {
	to     []string
	tokens []string
	err    error
}

func (f *fakeMailer) SendConfirmation(ctx context.Context, to, token string) error {
	if f.err != nil {
		return f.err
	}
	f.to = append(f.to, to)
	f.tokens = append(f.tokens, token)
	return nil
}

func newTestDispatcher(t *testing.T, sender Sender) (*Dispatcher, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	l := logrus.New()
	l.SetOutput(io.Discard)
	return NewDispatcher(store.Notifications(), store.Lists(), sender, nil, l), store
}

func seedList(t *testing.T, store *memory.Store, creatorID int64) *models.GiftList {
	t.Helper()
	list, err := store.Lists().Create(context.Background(), &models.GiftList{
		CreatorID:  creatorID,
		Name:       "Birthday",
		Visibility: models.VisibilityPublic,
	})
	require.NoError(t, err)
	return list
}

func TestReservationConfirmedNotifiesCreator(t *testing.T) {
	sender := &fakeSender{}
	d, store := newTestDispatcher(t, sender)
	list := seedList(t, store, 1)

	name := "Bob"
	item := &models.GiftItem{ID: 7, ListID: list.ID, Name: "Mug"}
	d.ReservationConfirmed(context.Background(), &models.Reservation{
		ItemID:         item.ID,
		ReservedByName: &name,
	}, item, list)

	feed, err := store.Notifications().GetByUser(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, models.NotificationReservation, feed[0].Type)
	assert.Contains(t, feed[0].Message, "Bob")
	// Contact details never reach the creator.
	assert.NotContains(t, feed[0].Message, "@")
	assert.EqualValues(t, 1, d.Sent())
	require.Len(t, sender.messages, 1)
}

func TestReservationConfirmedAnonymous(t *testing.T) {
	d, store := newTestDispatcher(t, nil)
	list := seedList(t, store, 1)

	name := "Bob"
	item := &models.GiftItem{ID: 7, ListID: list.ID, Name: "Mug"}
	d.ReservationConfirmed(context.Background(), &models.Reservation{
		ItemID:         item.ID,
		ReservedByName: &name,
		IsAnonymous:    true,
	}, item, list)

	feed, err := store.Notifications().GetByUser(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.NotContains(t, feed[0].Message, "Bob")
	assert.Contains(t, feed[0].Message, "Someone")
}

// The pending path delivers the single-use token to the reserver's address
// and writes nothing to the creator's feed.
func TestReservationPendingMailsTokenToReserver(t *testing.T) {
	mailer := &fakeMailer{}
	d, store := newTestDispatcher(t, nil)
	d.mailer = mailer
	list := seedList(t, store, 1)

	item := &models.GiftItem{ID: 7, ListID: list.ID, Name: "Mug"}
	d.ReservationPending(context.Background(), &models.Reservation{
		ID:                42,
		ItemID:            item.ID,
		ReservedBy:        "bob@example.com",
		ConfirmationToken: "deadbeef",
	}, item, list)

	require.Equal(t, []string{"bob@example.com"}, mailer.to)
	require.Equal(t, []string{"deadbeef"}, mailer.tokens)
	assert.EqualValues(t, 1, d.Sent())

	feed, err := store.Notifications().GetByUser(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestReservationPendingWithoutMailerIsDropped(t *testing.T) {
	d, store := newTestDispatcher(t, nil)
	list := seedList(t, store, 1)

	item := &models.GiftItem{ID: 7, ListID: list.ID, Name: "Mug"}
	d.ReservationPending(context.Background(), &models.Reservation{
		ID:                42,
		ItemID:            item.ID,
		ReservedBy:        "bob@example.com",
		ConfirmationToken: "deadbeef",
	}, item, list)

	assert.EqualValues(t, 0, d.Sent())
	assert.EqualValues(t, 1, d.Dropped())
}

func TestItemAddedFansOutToFollowers(t *testing.T) {
	d, store := newTestDispatcher(t, nil)
	list := seedList(t, store, 1)

	require.NoError(t, store.Lists().AddFollower(context.Background(), list.ID, 2))
	require.NoError(t, store.Lists().AddFollower(context.Background(), list.ID, 3))

	d.ItemAdded(context.Background(), &models.GiftItem{ID: 7, ListID: list.ID, Name: "Mug"}, list)

	for _, userID := range []int64{2, 3} {
		feed, err := store.Notifications().GetByUser(context.Background(), userID, 0)
		require.NoError(t, err)
		require.Len(t, feed, 1)
		assert.Equal(t, models.NotificationNewItem, feed[0].Type)
	}
	assert.EqualValues(t, 2, d.Sent())
}

func TestSenderFailureIsCountedNotPropagated(t *testing.T) {
	sender := &fakeSender{err: errors.New("telegram down")}
	d, store := newTestDispatcher(t, sender)
	list := seedList(t, store, 1)

	d.FollowerAdded(context.Background(), 2, "bob", list)

	// The feed row is still written even when out-of-band delivery fails.
	feed, err := store.Notifications().GetByUser(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.EqualValues(t, 1, d.Dropped())
}
