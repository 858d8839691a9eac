package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lheureux/giftwish/internal/auth"
	"github.com/lheureux/giftwish/internal/metrics"
	"github.com/lheureux/giftwish/internal/repository/memory"
	"github.com/lheureux/giftwish/internal/service"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	l := logrus.New()
	l.SetOutput(io.Discard)

	svc := service.New(service.Config{}, l, metrics.New(),
		store.Lists(), store.Items(), store.Reservations(),
		store.Comments(), store.Notifications(), store.Ledger(), nil)

	ts := httptest.NewServer(NewServer(svc, testSecret, l).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func bearerFor(t *testing.T, userID int64, email, username string) string {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, email, username, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, ts *httptest.Server, method, path, authz string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var raw any
	if len(bytes.TrimSpace(data)) > 0 {
		require.NoError(t, json.Unmarshal(data, &raw))
	}
	decoded, _ := raw.(map[string]any)
	return resp, decoded
}

func TestUnauthenticatedAccess(t *testing.T) {
	ts := newTestServer(t)

	resp, body := doJSON(t, ts, http.MethodPost, "/api/lists", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/notifications", "Bearer garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListAndReserveFlow(t *testing.T) {
	ts := newTestServer(t)
	owner := bearerFor(t, 1, "alice@example.com", "alice")
	guest := bearerFor(t, 2, "bob@example.com", "bob")

	resp, list := doJSON(t, ts, http.MethodPost, "/api/lists", owner, map[string]any{"name": "Birthday"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	listID := int64(list["id"].(float64))

	resp, item := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", listID), owner, map[string]any{
		"name":     "Mug",
		"quantity": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	itemID := int64(item["id"].(float64))

	// Anyone can read the list through its public token without auth.
	resp, detail := doJSON(t, ts, http.MethodGet, "/api/lists/"+list["public_token"].(string), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, detail["is_owner"])

	resp, reserved := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/items/%d/reserve", itemID), guest, map[string]any{
		"quantity": 1,
		"name":     "Bob",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, reserved["success"])
	assert.EqualValues(t, 1, reserved["newReservedQuantity"])
	assert.EqualValues(t, 1, reserved["availableQuantity"])

	resp, avail := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/items/%d/availability", itemID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, avail["totalQuantity"])
	assert.EqualValues(t, 1, avail["reservedQuantity"])
	assert.Equal(t, true, avail["isAvailable"])

	// Over-asking reports the remaining quantity in the error.
	resp, conflict := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/items/%d/reserve", itemID), guest, map[string]any{
		"quantity": 2,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, conflict["error"], "only 1 left")

	// Cancel restores availability.
	resp, cancelled := doJSON(t, ts, http.MethodPost,
		fmt.Sprintf("/api/reservations/%d/cancel", int64(reserved["reservationId"].(float64))), guest, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, cancelled["availableQuantity"])
}

func TestServerErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	owner := bearerFor(t, 1, "alice@example.com", "alice")

	resp, _ := doJSON(t, ts, http.MethodGet, "/api/lists/404", owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodGet, "/api/lists/not-a-ref", owner, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodPost, "/api/lists", owner, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A non-creator editing a list is forbidden, not hidden.
	respCreate, list := doJSON(t, ts, http.MethodPost, "/api/lists", owner, map[string]any{"name": "Mine"})
	require.Equal(t, http.StatusCreated, respCreate.StatusCode)

	stranger := bearerFor(t, 2, "bob@example.com", "bob")
	resp, _ = doJSON(t, ts, http.MethodPut, fmt.Sprintf("/api/lists/%d", int64(list["id"].(float64))), stranger,
		map[string]any{"name": "Hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestFollowAndCommentEndpoints(t *testing.T) {
	ts := newTestServer(t)
	owner := bearerFor(t, 1, "alice@example.com", "alice")
	guest := bearerFor(t, 2, "bob@example.com", "bob")

	_, list := doJSON(t, ts, http.MethodPost, "/api/lists", owner, map[string]any{
		"name":           "Birthday",
		"allow_comments": true,
	})
	listID := int64(list["id"].(float64))

	resp, _ := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/lists/%d/follow", listID), guest, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, item := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", listID), owner, map[string]any{
		"name": "Mug",
	})
	itemID := int64(item["id"].(float64))

	resp, comment := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/items/%d/comments", itemID), guest, map[string]any{
		"content": "great idea",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "bob", comment["author"])

	// The follower notification feed picked up the new item.
	resp, _ = doJSON(t, ts, http.MethodGet, "/api/notifications", guest, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, ts, http.MethodDelete, fmt.Sprintf("/api/lists/%d/follow", listID), guest, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	owner := bearerFor(t, 1, "alice@example.com", "alice")

	_, list := doJSON(t, ts, http.MethodPost, "/api/lists", owner, map[string]any{"name": "Birthday"})
	listID := int64(list["id"].(float64))

	resp, stats := doJSON(t, ts, http.MethodGet, fmt.Sprintf("/api/lists/%d/stats", listID), owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, stats["total_items"])

	resp, ownerStats := doJSON(t, ts, http.MethodGet, "/api/stats", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, ownerStats["total_lists"])
}

// Read endpoints on a private list's items are membership-gated like the
// write endpoints: comments and availability return 403 to outsiders and
// to unauthenticated callers.
func TestPrivateListReadEndpointsGated(t *testing.T) {
	ts := newTestServer(t)
	owner := bearerFor(t, 1, "alice@example.com", "alice")
	member := bearerFor(t, 2, "bob@example.com", "bob")
	stranger := bearerFor(t, 3, "carol@example.com", "carol")

	_, list := doJSON(t, ts, http.MethodPost, "/api/lists", owner, map[string]any{
		"name":           "Surprise",
		"visibility":     "private",
		"allow_comments": true,
	})
	listID := int64(list["id"].(float64))

	resp, _ := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/lists/%d/members", listID), owner, map[string]any{
		"user_id": 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, item := doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/lists/%d/items", listID), owner, map[string]any{
		"name": "Mug",
	})
	itemID := int64(item["id"].(float64))

	resp, _ = doJSON(t, ts, http.MethodPost, fmt.Sprintf("/api/items/%d/comments", itemID), member, map[string]any{
		"content": "members only",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	for _, path := range []string{
		fmt.Sprintf("/api/items/%d/comments", itemID),
		fmt.Sprintf("/api/items/%d/availability", itemID),
	} {
		resp, _ = doJSON(t, ts, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)

		resp, _ = doJSON(t, ts, http.MethodGet, path, stranger, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)

		resp, _ = doJSON(t, ts, http.MethodGet, path, member, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}
