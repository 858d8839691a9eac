package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lheureux/giftwish/internal/auth"
	"github.com/lheureux/giftwish/internal/models"
	"github.com/lheureux/giftwish/internal/service"
)

// Server provides the HTTP API.
type Server struct {
	svc       *service.Service
	logger    *logrus.Logger
	jwtSecret string
	mux       *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, jwtSecret string, logger *logrus.Logger) *Server {
	s := &Server{svc: svc, logger: logger, jwtSecret: jwtSecret, mux: http.NewServeMux()}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// API – Lists
	s.mux.HandleFunc("POST /api/lists", s.handleCreateList)
	s.mux.HandleFunc("GET /api/lists", s.handleGetLists)
	s.mux.HandleFunc("GET /api/lists/{ref}", s.handleGetList)
	s.mux.HandleFunc("PUT /api/lists/{ref}", s.handleUpdateList)
	s.mux.HandleFunc("DELETE /api/lists/{ref}", s.handleDeleteList)
	s.mux.HandleFunc("POST /api/lists/{ref}/follow", s.handleFollowList)
	s.mux.HandleFunc("DELETE /api/lists/{ref}/follow", s.handleUnfollowList)
	s.mux.HandleFunc("POST /api/lists/{ref}/members", s.handleAddMember)
	s.mux.HandleFunc("GET /api/lists/{ref}/stats", s.handleListStats)
	s.mux.HandleFunc("GET /api/stats", s.handleOwnerStats)

	// API – Items
	s.mux.HandleFunc("POST /api/lists/{ref}/items", s.handleAddItem)
	s.mux.HandleFunc("GET /api/lists/{ref}/items", s.handleGetItems)
	s.mux.HandleFunc("PUT /api/items/{ref}", s.handleUpdateItem)
	s.mux.HandleFunc("DELETE /api/items/{ref}", s.handleDeleteItem)
	s.mux.HandleFunc("PUT /api/items/{ref}/position", s.handleMoveItem)

	// API – Reservations
	s.mux.HandleFunc("POST /api/items/{ref}/reserve", s.handleReserve)
	s.mux.HandleFunc("GET /api/items/{ref}/availability", s.handleAvailability)
	s.mux.HandleFunc("GET /api/items/{ref}/quantity", s.handleAvailability)
	s.mux.HandleFunc("GET /api/reservations/confirm/{token}", s.handleConfirmReservation)
	s.mux.HandleFunc("POST /api/reservations/{id}/cancel", s.handleCancelReservation)

	// API – Comments
	s.mux.HandleFunc("GET /api/items/{ref}/comments", s.handleGetComments)
	s.mux.HandleFunc("POST /api/items/{ref}/comments", s.handleAddComment)

	// API – Notifications
	s.mux.HandleFunc("GET /api/notifications", s.handleGetNotifications)
	s.mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkNotificationRead)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Storage failures are logged with full context and surfaced as a plain 500.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case service.IsValidation(err), service.IsQuantityUnavailable(err):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case service.IsNotFound(err):
		s.respondError(w, http.StatusNotFound, err.Error())
	case service.IsAuthorization(err):
		s.respondError(w, http.StatusForbidden, err.Error())
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathRef extracts the {ref} path value and parses it into a typed
// identifier (internal id or public token) once, here at the boundary.
func pathRef(r *http.Request) (models.Ref, error) {
	return models.ParseRef(r.PathValue("ref"))
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

// viewer resolves the bearer token into a viewer identity. An absent or
// invalid token yields the anonymous viewer; endpoints that need a real
// identity use requireViewer.
func (s *Server) viewer(r *http.Request) service.Viewer {
	header := r.Header.Get("Authorization")
	if header == "" {
		return service.Viewer{}
	}
	tokenStr, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return service.Viewer{}
	}

	claims, err := auth.ValidateToken(s.jwtSecret, tokenStr)
	if err != nil {
		s.logger.WithError(err).Debug("rejected bearer token")
		return service.Viewer{}
	}
	return service.Viewer{ID: claims.UserID, Email: claims.Email, Username: claims.Username}
}

// requireViewer writes a 401 and returns false when no authenticated
// viewer is present.
func (s *Server) requireViewer(w http.ResponseWriter, r *http.Request) (service.Viewer, bool) {
	viewer := s.viewer(r)
	if viewer.IsAnonymous() {
		s.respondError(w, http.StatusUnauthorized, "authentication required")
		return service.Viewer{}, false
	}
	return viewer, true
}

// ---------------------------------------------------------------------------
// Lists
// ---------------------------------------------------------------------------

type listRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	Visibility        string `json:"visibility"`
	ShowPrices        bool   `json:"show_prices"`
	AllowComments     bool   `json:"allow_comments"`
	HideReservedItems bool   `json:"hide_reserved_items"`
}

func (r listRequest) params() service.ListParams {
	return service.ListParams{
		Name:              r.Name,
		Description:       r.Description,
		Visibility:        models.ListVisibility(r.Visibility),
		ShowPrices:        r.ShowPrices,
		AllowComments:     r.AllowComments,
		HideReservedItems: r.HideReservedItems,
	}
}

func (s *Server) handleCreateList(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}

	var req listRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.svc.CreateList(r.Context(), viewer, req.params())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetLists(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}

	lists, err := s.svc.AccessibleLists(r.Context(), viewer)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, lists)
}

func (s *Server) handleGetList(w http.ResponseWriter, r *http.Request) {
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	detail, err := s.svc.GetList(r.Context(), s.viewer(r), ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleUpdateList(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	var req listRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.UpdateList(r.Context(), viewer, ref, req.params())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	if err := s.svc.DeleteList(r.Context(), viewer, ref); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleFollowList(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	if err := s.svc.FollowList(r.Context(), viewer, ref); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "following"})
}

func (s *Server) handleUnfollowList(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	if err := s.svc.UnfollowList(r.Context(), viewer, ref); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

type addMemberRequest struct {
	UserID int64 `json:"user_id"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	var req addMemberRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.AddMember(r.Context(), viewer, ref, req.UserID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, map[string]string{"status": "member added"})
}

func (s *Server) handleListStats(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	stats, err := s.svc.ListStats(r.Context(), viewer, ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleOwnerStats(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}

	stats, err := s.svc.OwnerStats(r.Context(), viewer)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, stats)
}

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

type itemRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"url"`
	Price       *float64 `json:"price"`
	Image       string   `json:"image"`
	Quantity    int      `json:"quantity"`
	Priority    string   `json:"priority"`
}

func (r itemRequest) params() service.ItemParams {
	return service.ItemParams{
		Name:        r.Name,
		Description: r.Description,
		URL:         r.URL,
		Price:       r.Price,
		Image:       r.Image,
		Quantity:    r.Quantity,
		Priority:    models.ItemPriority(r.Priority),
	}
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	var req itemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.svc.AddItem(r.Context(), viewer, ref, req.params())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetItems(w http.ResponseWriter, r *http.Request) {
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid list reference")
		return
	}

	items, err := s.svc.ListItems(r.Context(), s.viewer(r), ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, items)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	var req itemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := s.svc.UpdateItem(r.Context(), viewer, ref, req.params())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	if err := s.svc.DeleteItem(r.Context(), viewer, ref); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

type moveItemRequest struct {
	Position int `json:"position"`
}

func (s *Server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	var req moveItemRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.MoveItem(r.Context(), viewer, ref, req.Position); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// ---------------------------------------------------------------------------
// Reservations
// ---------------------------------------------------------------------------

type reserveRequest struct {
	Quantity    int    `json:"quantity"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	IsAnonymous bool   `json:"isAnonymous"`
	Message     string `json:"message"`
}

type reserveResponse struct {
	Success             bool   `json:"success"`
	Message             string `json:"message"`
	Status              string `json:"status"`
	ReservationID       int64  `json:"reservationId"`
	NewReservedQuantity int    `json:"newReservedQuantity"`
	AvailableQuantity   int    `json:"availableQuantity"`
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	var req reserveRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.svc.Reserve(r.Context(), ref, viewer, service.ReserveRequest{
		Quantity:    req.Quantity,
		Email:       req.Email,
		Name:        req.Name,
		IsAnonymous: req.IsAnonymous,
		Message:     req.Message,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	message := "Reservation confirmed."
	if result.Status == models.ReservationPending {
		message = "Reservation recorded. A confirmation email is on its way."
	}

	s.respondJSON(w, http.StatusCreated, reserveResponse{
		Success:             true,
		Message:             message,
		Status:              string(result.Status),
		ReservationID:       result.ReservationID,
		NewReservedQuantity: result.NewReservedQuantity,
		AvailableQuantity:   result.AvailableQuantity,
	})
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	availability, err := s.svc.Availability(r.Context(), s.viewer(r), ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, availability)
}

func (s *Server) handleConfirmReservation(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	result, err := s.svc.ConfirmReservation(r.Context(), token)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, reserveResponse{
		Success:             true,
		Message:             "Reservation confirmed.",
		Status:              string(result.Status),
		ReservationID:       result.ReservationID,
		NewReservedQuantity: result.NewReservedQuantity,
		AvailableQuantity:   result.AvailableQuantity,
	})
}

func (s *Server) handleCancelReservation(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	result, err := s.svc.CancelReservation(r.Context(), id, viewer)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, reserveResponse{
		Success:             true,
		Message:             "Reservation cancelled.",
		Status:              string(result.Status),
		ReservationID:       result.ReservationID,
		NewReservedQuantity: result.NewReservedQuantity,
		AvailableQuantity:   result.AvailableQuantity,
	})
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

type commentRequest struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

func (s *Server) handleGetComments(w http.ResponseWriter, r *http.Request) {
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	comments, err := s.svc.ItemComments(r.Context(), s.viewer(r), ref)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	ref, err := pathRef(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid item reference")
		return
	}

	var req commentRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := s.svc.AddComment(r.Context(), viewer, ref, service.CommentParams{
		Content:     req.Content,
		IsAnonymous: req.IsAnonymous,
	})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, created)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}

	notifications, err := s.svc.NotificationFeed(r.Context(), viewer, limit)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, notifications)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	viewer, ok := s.requireViewer(w, r)
	if !ok {
		return
	}
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := s.svc.MarkNotificationRead(r.Context(), viewer, id); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
