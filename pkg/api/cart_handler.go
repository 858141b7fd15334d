package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// CartService manages carts and checkout
type CartService interface {
	GetCart(ctx context.Context, clientID int) (*models.Cart, error)
	Add(ctx context.Context, clientID int, product string, quantity int) (*models.OperationResult, error)
	UpdateQuantity(ctx context.Context, clientID int, product string, quantity int) (*models.OperationResult, error)
	Remove(ctx context.Context, clientID int, product string) (*models.OperationResult, error)
	Clear(ctx context.Context, clientID int) (*models.OperationResult, error)
	Checkout(ctx context.Context, clientID int, details models.CustomerDetails) (*models.CheckoutResult, error)
}

// CartItemRequest is the body of the cart item routes
type CartItemRequest struct {
	ProductURI string `json:"product_uri"`
	Quantity   *int   `json:"quantity,omitempty"`
}

// CartHandler handles cart HTTP requests
type CartHandler struct {
	service CartService
}

// NewCartHandler creates a new cart handler
func NewCartHandler(service CartService) *CartHandler {
	return &CartHandler{service: service}
}

// HandleCart handles cart operations
// GET /api/cart/{client} - Cart items and summary
// DELETE /api/cart/{client} - Clear the cart
// POST /api/cart/{client}/items - Add a product
// PUT /api/cart/{client}/items - Set a product quantity
// DELETE /api/cart/{client}/items?product_uri=<uri> - Remove a product
// POST /api/cart/{client}/checkout - Create an order from the cart
func (h *CartHandler) HandleCart(w http.ResponseWriter, r *http.Request) {
	segments := pathSegments(r.URL.Path, "/api/cart/")
	if len(segments) == 0 || len(segments) > 2 {
		http.NotFound(w, r)
		return
	}
	clientID, err := strconv.Atoi(segments[0])
	if err != nil || clientID < 0 {
		writeBadRequestResponse(w, "Client ID must be a non-negative integer")
		return
	}

	action := ""
	if len(segments) == 2 {
		action = segments[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, clientID)
	case action == "" && r.Method == http.MethodDelete:
		h.handleClear(w, r, clientID)
	case action == "items" && r.Method == http.MethodPost:
		h.handleAdd(w, r, clientID)
	case action == "items" && r.Method == http.MethodPut:
		h.handleUpdate(w, r, clientID)
	case action == "items" && r.Method == http.MethodDelete:
		h.handleRemove(w, r, clientID)
	case action == "checkout" && r.Method == http.MethodPost:
		h.handleCheckout(w, r, clientID)
	case action == "" || action == "items" || action == "checkout":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

// handleGet handles GET /api/cart/{client}
func (h *CartHandler) handleGet(w http.ResponseWriter, r *http.Request, clientID int) {
	cart, err := h.service.GetCart(r.Context(), clientID)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, cart)
}

// handleAdd handles POST /api/cart/{client}/items
func (h *CartHandler) handleAdd(w http.ResponseWriter, r *http.Request, clientID int) {
	var req CartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequestResponse(w, err.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := h.service.Add(r.Context(), clientID, req.ProductURI, quantity)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeOperationResponse(w, res.Code, res.Success, res)
}

// handleUpdate handles PUT /api/cart/{client}/items
func (h *CartHandler) handleUpdate(w http.ResponseWriter, r *http.Request, clientID int) {
	var req CartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequestResponse(w, err.Error())
		return
	}
	if req.Quantity == nil {
		writeBadRequestResponse(w, "quantity is required")
		return
	}

	res, err := h.service.UpdateQuantity(r.Context(), clientID, req.ProductURI, *req.Quantity)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeOperationResponse(w, res.Code, res.Success, res)
}

// handleRemove handles DELETE /api/cart/{client}/items
func (h *CartHandler) handleRemove(w http.ResponseWriter, r *http.Request, clientID int) {
	product := r.URL.Query().Get("product_uri")
	if product == "" {
		writeBadRequestResponse(w, "product_uri query parameter is required")
		return
	}

	res, err := h.service.Remove(r.Context(), clientID, product)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeOperationResponse(w, res.Code, res.Success, res)
}

// handleClear handles DELETE /api/cart/{client}
func (h *CartHandler) handleClear(w http.ResponseWriter, r *http.Request, clientID int) {
	res, err := h.service.Clear(r.Context(), clientID)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	writeOperationResponse(w, res.Code, res.Success, res)
}

// handleCheckout handles POST /api/cart/{client}/checkout
func (h *CartHandler) handleCheckout(w http.ResponseWriter, r *http.Request, clientID int) {
	var details models.CustomerDetails
	if err := decodeJSON(w, r, &details); err != nil {
		writeBadRequestResponse(w, err.Error())
		return
	}

	res, err := h.service.Checkout(r.Context(), clientID, details)
	if err != nil {
		writeStoreErrorResponse(w, err)
		return
	}
	if res.Success {
		writeJSONResponse(w, http.StatusCreated, res)
		return
	}
	writeOperationResponse(w, res.Code, false, res)
}
