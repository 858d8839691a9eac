// Package memory provides an in-memory implementation of the repository
// interfaces. It backs the service and API tests, where transactionality is
// modeled by a single mutex: WithTx holds the lock for the whole callback,
// which gives the same serialization the row lock provides in postgres.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/repository"
)

// Store holds all entities in memory and implements every repository
// interface plus LedgerStore.
type Store struct {
	mu sync.Mutex

	nextID        int64
	lists         map[int64]*models.GiftList
	items         map[int64]*models.GiftItem
	reservations  map[int64]*models.Reservation
	comments      map[int64]*models.Comment
	notifications map[int64]*models.Notification
	followers     map[int64]map[int64]time.Time // list id -> user id -> added at
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		nextID:        0,
		lists:         make(map[int64]*models.GiftList),
		items:         make(map[int64]*models.GiftItem),
		reservations:  make(map[int64]*models.Reservation),
		comments:      make(map[int64]*models.Comment),
		notifications: make(map[int64]*models.Notification),
		followers:     make(map[int64]map[int64]time.Time),
	}
}

func (s *Store) nextid() int64 {
	s.nextID++
	return s.nextID
}

func copyList(l *models.GiftList) *models.GiftList {
	c := *l
	c.Items = nil
	return &c
}

func copyItem(i *models.GiftItem) *models.GiftItem {
	c := *i
	return &c
}

func copyReservation(r *models.Reservation) *models.Reservation {
	c := *r
	return &c
}

// ---------------------------------------------------------------------------
// ListRepository
// ---------------------------------------------------------------------------

func (s *Store) Create(ctx context.Context, list *models.GiftList) (*models.GiftList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	list.ID = s.nextid()
	if list.PublicToken == "" {
		list.PublicToken = models.NewPublicToken()
	}
	list.CreatedAt = now
	list.UpdatedAt = now
	s.lists[list.ID] = copyList(list)
	return list, nil
}

func (s *Store) GetByRef(ctx context.Context, ref models.Ref) (*models.GiftList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findList(ref), nil
}

func (s *Store) findList(ref models.Ref) *models.GiftList {
	if ref.Kind == models.RefInternalID {
		if l, ok := s.lists[ref.ID]; ok {
			return copyList(l)
		}
		return nil
	}
	for _, l := range s.lists {
		if l.PublicToken == ref.Token {
			return copyList(l)
		}
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.GiftList, error) {
	return s.GetByRef(ctx, models.InternalRef(id))
}

func (s *Store) GetByCreator(ctx context.Context, userID int64) ([]*models.GiftList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lists []*models.GiftList
	for _, l := range s.lists {
		if l.CreatorID == userID {
			lists = append(lists, copyList(l))
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].ID < lists[j].ID })
	return lists, nil
}

func (s *Store) GetAccessible(ctx context.Context, userID int64) ([]*models.GiftList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lists []*models.GiftList
	for _, l := range s.lists {
		if l.Visibility == models.VisibilityPublic || l.CreatorID == userID || s.isFollower(l.ID, userID) {
			lists = append(lists, copyList(l))
		}
	}
	sort.Slice(lists, func(i, j int) bool { return lists[i].ID < lists[j].ID })
	return lists, nil
}

func (s *Store) Update(ctx context.Context, list *models.GiftList) (*models.GiftList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[list.ID]; !ok {
		return nil, fmt.Errorf("gift list with ID %d not found", list.ID)
	}
	list.UpdatedAt = time.Now()
	s.lists[list.ID] = copyList(list)
	return list, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lists[id]; !ok {
		return fmt.Errorf("gift list with ID %d not found", id)
	}
	delete(s.lists, id)
	delete(s.followers, id)
	for itemID, item := range s.items {
		if item.ListID == id {
			delete(s.items, itemID)
		}
	}
	for resID, res := range s.reservations {
		if res.ListID == id {
			delete(s.reservations, resID)
		}
	}
	for cID, c := range s.comments {
		if c.ListID == id {
			delete(s.comments, cID)
		}
	}
	return nil
}

func (s *Store) IncrementViews(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.lists[id]; ok {
		l.Views++
	}
	return nil
}

func (s *Store) AddFollower(ctx context.Context, listID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.followers[listID] == nil {
		s.followers[listID] = make(map[int64]time.Time)
	}
	if _, ok := s.followers[listID][userID]; !ok {
		s.followers[listID][userID] = time.Now()
	}
	return nil
}

func (s *Store) RemoveFollower(ctx context.Context, listID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.followers[listID][userID]; !ok {
		return false, nil
	}
	delete(s.followers[listID], userID)
	return true, nil
}

func (s *Store) GetFollowers(ctx context.Context, listID int64) ([]*models.Follower, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var followers []*models.Follower
	for userID, addedAt := range s.followers[listID] {
		followers = append(followers, &models.Follower{ListID: listID, UserID: userID, AddedAt: addedAt})
	}
	sort.Slice(followers, func(i, j int) bool { return followers[i].UserID < followers[j].UserID })
	return followers, nil
}

func (s *Store) IsFollower(ctx context.Context, listID, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isFollower(listID, userID), nil
}

func (s *Store) isFollower(listID, userID int64) bool {
	_, ok := s.followers[listID][userID]
	return ok
}

// ---------------------------------------------------------------------------
// ItemRepository
// ---------------------------------------------------------------------------

// Items returns the item repository view of the store.
func (s *Store) Items() repository.ItemRepository { return (*itemStore)(s) }

// Lists returns the list repository view of the store.
func (s *Store) Lists() repository.ListRepository { return s }

type itemStore Store

func (s *itemStore) Create(ctx context.Context, item *models.GiftItem) (*models.GiftItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	item.ID = (*Store)(s).nextid()
	if item.PublicToken == "" {
		item.PublicToken = models.NewPublicToken()
	}
	item.IsActive = true
	item.CreatedAt = now
	item.UpdatedAt = now
	s.items[item.ID] = copyItem(item)
	return item, nil
}

func (s *itemStore) GetByRef(ctx context.Context, ref models.Ref) (*models.GiftItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ref.Kind == models.RefInternalID {
		if i, ok := s.items[ref.ID]; ok {
			return copyItem(i), nil
		}
		return nil, nil
	}
	for _, i := range s.items {
		if i.PublicToken == ref.Token {
			return copyItem(i), nil
		}
	}
	return nil, nil
}

func (s *itemStore) GetByList(ctx context.Context, listID int64) ([]*models.GiftItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*models.GiftItem
	for _, i := range s.items {
		if i.ListID == listID && i.IsActive {
			items = append(items, copyItem(i))
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (s *itemStore) Update(ctx context.Context, item *models.GiftItem) (*models.GiftItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.items[item.ID]
	if !ok {
		return nil, fmt.Errorf("gift item with ID %d not found", item.ID)
	}
	item.ReservedQuantity = existing.ReservedQuantity
	item.UpdatedAt = time.Now()
	s.items[item.ID] = copyItem(item)
	return item, nil
}

func (s *itemStore) UpdatePosition(ctx context.Context, itemID int64, position int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("gift item with ID %d not found", itemID)
	}
	item.Position = position
	item.UpdatedAt = time.Now()
	return nil
}

func (s *itemStore) MaxPosition(ctx context.Context, listID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	max := 0
	for _, i := range s.items {
		if i.ListID == listID && i.Position > max {
			max = i.Position
		}
	}
	return max, nil
}

func (s *itemStore) SoftDelete(ctx context.Context, itemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[itemID]
	if !ok {
		return fmt.Errorf("gift item with ID %d not found", itemID)
	}
	item.IsActive = false
	item.UpdatedAt = time.Now()
	return nil
}

// ---------------------------------------------------------------------------
// ReservationRepository
// ---------------------------------------------------------------------------

// Reservations returns the reservation read repository view of the store.
func (s *Store) Reservations() repository.ReservationRepository { return (*reservationStore)(s) }

type reservationStore Store

func (s *reservationStore) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r, ok := s.reservations[id]; ok {
		return copyReservation(r), nil
	}
	return nil, nil
}

func (s *reservationStore) GetConfirmedByItem(ctx context.Context, itemID int64) ([]*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Reservation
	for _, r := range s.reservations {
		if r.ItemID == itemID && r.Status == models.ReservationConfirmed {
			out = append(out, copyReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *reservationStore) GetConfirmedByList(ctx context.Context, listID int64) ([]*models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Reservation
	for _, r := range s.reservations {
		if r.ListID == listID && r.Status == models.ReservationConfirmed {
			out = append(out, copyReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *reservationStore) ConfirmedQuantity(ctx context.Context, itemID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*Store)(s).confirmedQuantity(itemID), nil
}

func (s *Store) confirmedQuantity(itemID int64) int {
	total := 0
	for _, r := range s.reservations {
		if r.ItemID == itemID && r.Status == models.ReservationConfirmed {
			total += r.Quantity
		}
	}
	return total
}

func (s *reservationStore) DeleteExpiredPending(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, r := range s.reservations {
		if r.Status == models.ReservationPending && r.ExpiresAt != nil && r.ExpiresAt.Before(now) {
			delete(s.reservations, id)
			deleted++
		}
	}
	return deleted, nil
}

// ---------------------------------------------------------------------------
// CommentRepository
// ---------------------------------------------------------------------------

// Comments returns the comment repository view of the store.
func (s *Store) Comments() repository.CommentRepository { return (*commentStore)(s) }

type commentStore Store

func (s *commentStore) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return (*Store)(s).insertComment(comment), nil
}

func (s *Store) insertComment(comment *models.Comment) *models.Comment {
	comment.ID = s.nextid()
	comment.CreatedAt = time.Now()
	c := *comment
	s.comments[comment.ID] = &c
	return comment
}

func (s *commentStore) GetByItem(ctx context.Context, itemID int64) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Comment
	for _, c := range s.comments {
		if c.ItemID != nil && *c.ItemID == itemID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *commentStore) GetByList(ctx context.Context, listID int64) ([]*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Comment
	for _, c := range s.comments {
		if c.ListID == listID {
			cc := *c
			out = append(out, &cc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *commentStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment with ID %d not found", id)
	}
	delete(s.comments, id)
	return nil
}

// ---------------------------------------------------------------------------
// NotificationRepository
// ---------------------------------------------------------------------------

// Notifications returns the notification repository view of the store.
func (s *Store) Notifications() repository.NotificationRepository { return (*notificationStore)(s) }

type notificationStore Store

func (s *notificationStore) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = (*Store)(s).nextid()
	n.CreatedAt = time.Now()
	nn := *n
	s.notifications[n.ID] = &nn
	return n, nil
}

func (s *notificationStore) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			nn := *n
			out = append(out, &nn)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *notificationStore) MarkRead(ctx context.Context, id, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

// ---------------------------------------------------------------------------
// LedgerStore
// ---------------------------------------------------------------------------

// Ledger returns the transactional ledger view of the store.
func (s *Store) Ledger() repository.LedgerStore { return (*ledgerMem)(s) }

type ledgerMem Store

// WithTx serializes callers on the store mutex and applies changes to a
// staged copy, committing only when fn succeeds.
func (s *ledgerMem) WithTx(ctx context.Context, fn func(tx repository.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:        (*Store)(s),
		items:        make(map[int64]*models.GiftItem),
		reservations: make(map[int64]*models.Reservation),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

// memTx stages writes so a failed callback leaves no partial state behind.
type memTx struct {
	store        *Store
	items        map[int64]*models.GiftItem
	reservations map[int64]*models.Reservation
	comments     []*models.Comment
}

func (t *memTx) commit() {
	for id, item := range t.items {
		t.store.items[id] = item
	}
	for id, r := range t.reservations {
		t.store.reservations[id] = r
	}
	for _, c := range t.comments {
		t.store.insertComment(c)
	}
}

func (t *memTx) item(id int64) *models.GiftItem {
	if i, ok := t.items[id]; ok {
		return i
	}
	if i, ok := t.store.items[id]; ok {
		staged := copyItem(i)
		t.items[id] = staged
		return staged
	}
	return nil
}

func (t *memTx) reservation(id int64) *models.Reservation {
	if r, ok := t.reservations[id]; ok {
		return r
	}
	if r, ok := t.store.reservations[id]; ok {
		staged := copyReservation(r)
		t.reservations[id] = staged
		return staged
	}
	return nil
}

func (t *memTx) ItemForUpdate(ctx context.Context, itemID int64) (*models.GiftItem, error) {
	item := t.item(itemID)
	if item == nil {
		return nil, nil
	}
	return copyItem(item), nil
}

func (t *memTx) ConfirmedQuantity(ctx context.Context, itemID int64) (int, error) {
	total := 0
	seen := make(map[int64]bool)
	for id, r := range t.reservations {
		seen[id] = true
		if r.ItemID == itemID && r.Status == models.ReservationConfirmed {
			total += r.Quantity
		}
	}
	for id, r := range t.store.reservations {
		if seen[id] {
			continue
		}
		if r.ItemID == itemID && r.Status == models.ReservationConfirmed {
			total += r.Quantity
		}
	}
	return total, nil
}

func (t *memTx) InsertReservation(ctx context.Context, r *models.Reservation) (*models.Reservation, error) {
	r.ID = t.store.nextid()
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	t.reservations[r.ID] = copyReservation(r)
	return r, nil
}

func (t *memTx) ReservationByID(ctx context.Context, id int64) (*models.Reservation, error) {
	r := t.reservation(id)
	if r == nil {
		return nil, nil
	}
	return copyReservation(r), nil
}

func (t *memTx) PendingByToken(ctx context.Context, token string) (*models.Reservation, error) {
	for _, r := range t.store.reservations {
		if r.ConfirmationToken == token && r.Status == models.ReservationPending {
			return t.ReservationByID(ctx, r.ID)
		}
	}
	return nil, nil
}

func (t *memTx) SetReservationStatus(ctx context.Context, id int64, status models.ReservationStatus) error {
	r := t.reservation(id)
	if r == nil {
		return fmt.Errorf("reservation with ID %d not found", id)
	}
	r.Status = status
	r.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) SetReservedQuantity(ctx context.Context, itemID int64, quantity int) error {
	item := t.item(itemID)
	if item == nil {
		return fmt.Errorf("gift item with ID %d not found", itemID)
	}
	item.ReservedQuantity = quantity
	item.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) InsertComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	t.comments = append(t.comments, c)
	c.CreatedAt = time.Now()
	return c, nil
}
