package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/vrtelolleva/platform/internal/auth"
	"github.com/vrtelolleva/platform/internal/bus"
	"github.com/vrtelolleva/platform/internal/catalog"
	"github.com/vrtelolleva/platform/internal/domain"
	"github.com/vrtelolleva/platform/internal/lifecycle"
	"github.com/vrtelolleva/platform/internal/messages"
	"github.com/vrtelolleva/platform/internal/store"
	"github.com/vrtelolleva/platform/internal/telemetry"
	"github.com/vrtelolleva/platform/internal/tracking"
)

type Handler struct {
	orders    store.OrderStore
	catalog   catalog.Catalog
	lifecycle *lifecycle.Service
	channel   *messages.Channel
	auth      *auth.Service
	users     auth.UserStore
	bus       *bus.Bus
	logger    *slog.Logger
}

func NewHandler(
	orders store.OrderStore,
	cat catalog.Catalog,
	lc *lifecycle.Service,
	channel *messages.Channel,
	authSvc *auth.Service,
	users auth.UserStore,
	b *bus.Bus,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		orders:    orders,
		catalog:   cat,
		lifecycle: lc,
		channel:   channel,
		auth:      authSvc,
		users:     users,
		bus:       b,
		logger:    logger,
	}
}

// Register wires all routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(h.HandleCreateOrder))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(h.HandleListOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(h.HandleGetOrder))
	mux.HandleFunc("POST /orders/{id}/transition", telemetry.WithHTTPRoute(h.HandleTransition))
	mux.HandleFunc("POST /orders/{id}/messages", telemetry.WithHTTPRoute(h.HandleSendMessage))
	mux.HandleFunc("POST /orders/{id}/rate", telemetry.WithHTTPRoute(h.HandleRate))
	mux.HandleFunc("GET /orders/{id}/track", telemetry.WithHTTPRoute(h.HandleTrack))
	mux.HandleFunc("GET /events", h.HandleEvents)
	mux.HandleFunc("POST /auth/register", telemetry.WithHTTPRoute(h.HandleRegister))
	mux.HandleFunc("POST /auth/login", telemetry.WithHTTPRoute(h.HandleLogin))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

type createOrderRequest struct {
	ClientID         string                `json:"client_id"`
	BusinessID       string                `json:"business_id"`
	Items            []catalog.ItemRequest `json:"items"`
	DeliveryAddress  string                `json:"delivery_address"`
	DeliveryLocation domain.Location       `json:"delivery_location"`
	SpecialNotes     string                `json:"special_notes,omitempty"`
}

func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, total, err := catalog.Price(r.Context(), h.catalog, req.BusinessID, req.Items)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	business, err := h.catalog.GetBusiness(r.Context(), req.BusinessID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	order := &domain.Order{
		ClientID:         req.ClientID,
		BusinessID:       req.BusinessID,
		BusinessName:     business.Name,
		Items:            items,
		TotalPrice:       total,
		DeliveryAddress:  req.DeliveryAddress,
		DeliveryLocation: req.DeliveryLocation,
		SpecialNotes:     req.SpecialNotes,
	}

	created, err := h.lifecycle.CreateOrder(r.Context(), order)
	if err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, err := h.orders.GetByID(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListOrders(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		BusinessID: r.URL.Query().Get("business_id"),
		ClientID:   r.URL.Query().Get("client_id"),
		Status:     domain.OrderStatus(r.URL.Query().Get("status")),
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

type transitionRequest struct {
	TargetStatus           domain.OrderStatus     `json:"target_status"`
	PreparationTimeMinutes int                    `json:"preparation_time_minutes,omitempty"`
	ActorName              string                 `json:"actor_name,omitempty"`
	DeliveryPerson         *domain.DeliveryPerson `json:"delivery_person,omitempty"`
}

func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TargetStatus == "" {
		h.writeError(w, http.StatusBadRequest, "missing target_status")
		return
	}

	order, err := h.lifecycle.Transition(r.Context(), id, req.TargetStatus, lifecycle.Metadata{
		PreparationTimeMinutes: req.PreparationTimeMinutes,
		ActorName:              req.ActorName,
		DeliveryPerson:         req.DeliveryPerson,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type sendMessageRequest struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" {
		h.writeError(w, http.StatusBadRequest, "missing message text")
		return
	}

	sender, err := h.participant(r, req.SenderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	recipient, err := h.participant(r, req.RecipientID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	order, err := h.channel.Send(r.Context(), id, sender, recipient, req.Text)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) participant(r *http.Request, userID string) (messages.Participant, error) {
	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		return messages.Participant{}, err
	}
	return messages.Participant{ID: user.ID, Name: user.Name, Role: user.Role}, nil
}

func (h *Handler) HandleRate(w http.ResponseWriter, r *http.Request) {
	order, err := h.lifecycle.MarkRated(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// defaultViewport centers on the CDMX Zócalo, the demo's home location.
var defaultViewport = tracking.Viewport{
	Center: domain.Location{Lat: 19.4326, Lng: -99.1332},
	Zoom:   13,
}

type trackResponse struct {
	OrderID          string             `json:"order_id"`
	Status           domain.OrderStatus `json:"status"`
	ClientLocation   *domain.Location   `json:"client_location,omitempty"`
	BusinessLocation *domain.Location   `json:"business_location,omitempty"`
	DeliveryLocation *domain.Location   `json:"delivery_location,omitempty"`
	Viewport         tracking.Viewport  `json:"viewport"`
}

func (h *Handler) HandleTrack(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	resp := trackResponse{OrderID: order.ID, Status: order.Status}

	client := order.DeliveryLocation
	resp.ClientLocation = &client

	if business, err := h.catalog.GetBusiness(r.Context(), order.BusinessID); err == nil {
		loc := business.Location
		resp.BusinessLocation = &loc
	}
	if order.DeliveryPerson != nil {
		loc := order.DeliveryPerson.Location
		resp.DeliveryLocation = &loc
	}

	resp.Viewport = tracking.FitBounds(resp.ClientLocation, resp.BusinessLocation, resp.DeliveryLocation, defaultViewport)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidTransition):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStatusConflict):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPreconditionFailed), errors.Is(err, domain.ErrNoDeliveryPerson):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		h.writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, domain.ErrAuthFailure):
		h.writeError(w, http.StatusUnauthorized, "invalid credentials")
	default:
		h.logger.Error("internal error", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
