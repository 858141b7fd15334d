package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// OrderService reads and cancels orders
type OrderService interface {
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListClientOrders(ctx context.Context, clientID int) ([]models.Order, error)
	Cancel(ctx context.Context, orderID string) (*models.OperationResult, error)
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	service OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(service OrderService) *OrderHandler {
	return &OrderHandler{service: service}
}

// HandleOrders handles GET /api/orders and GET /api/orders?client=<id>
func (h *OrderHandler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		orders []models.Order
		err    error
	)
	if client := r.URL.Query().Get("client"); client != "" {
		clientID, convErr := strconv.Atoi(client)
		if convErr != nil || clientID < 0 {
			writeBadRequestResponse(w, "client must be a non-negative integer")
			return
		}
		orders, err = h.service.ListClientOrders(r.Context(), clientID)
	} else {
		orders, err = h.service.ListOrders(r.Context())
	}
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"orders": orders,
		"count":  len(orders),
	})
}

// HandleOrder handles individual order operations
// GET /api/orders/{id} - Order with its lines
// POST /api/orders/{id}/cancel - Cancel the order
func (h *OrderHandler) HandleOrder(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/orders/")
	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		h.handleGet(w, r, segments[0])
	case len(segments) == 2 && segments[1] == "cancel" && r.Method == http.MethodPost:
		h.handleCancel(w, r, segments[0])
	case len(segments) == 1 || len(segments) == 2 && segments[1] == "cancel":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// handleGet handles GET /api/orders/{id}
func (h *OrderHandler) handleGet(w http.ResponseWriter, r *http.Request, orderID string) {
	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	if order == nil {
		writeErrorResponse(w, http.StatusNotFound, "Order not found")
		return
	}
	writeJSONResponse(w, http.StatusOK, order)
}

// handleCancel handles POST /api/orders/{id}/cancel
func (h *OrderHandler) handleCancel(w http.ResponseWriter, r *http.Request, orderID string) {
	res, err := h.service.Cancel(r.Context(), orderID)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeOperationResponse(w, res.Code, res.Success, res)
}
