package models

import "time"

// CartItem is one product line of a client's cart
type CartItem struct {
	IRI         string  `json:"cart_item"`
	Product     string  `json:"produit"`
	Name        string  `json:"nom,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"prix"`
	Image       string  `json:"image,omitempty"`
	Description string  `json:"description,omitempty"`
}

// CartSummary aggregates a cart
type CartSummary struct {
	TotalItems  int     `json:"totalItems"`
	TotalAmount float64 `json:"totalAmount"`
}

// Cart is the read model returned to clients
type Cart struct {
	ClientID int         `json:"client_id"`
	Items    []CartItem  `json:"items"`
	Summary  CartSummary `json:"summary"`
}

// CustomerDetails are the shipping and contact fields supplied at checkout
type CustomerDetails struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	DeliveryAddress string `json:"delivery_address"`
}

// OrderLine is one product line frozen into an order
type OrderLine struct {
	IRI       string  `json:"article"`
	Product   string  `json:"produit"`
	Name      string  `json:"nom,omitempty"`
	Quantity  int     `json:"quantite"`
	UnitPrice float64 `json:"prix_unitaire"`
	Subtotal  float64 `json:"sous_total"`
}

// Order is a placed order
type Order struct {
	ID              string      `json:"order_id"`
	IRI             string      `json:"commande"`
	Client          string      `json:"client"`
	Date            string      `json:"date"`
	TotalAmount     float64     `json:"total_amount"`
	TotalItems      int         `json:"total_items"`
	Status          string      `json:"statut"`
	ShippingAddress string      `json:"adresse_livraison,omitempty"`
	Phone           string      `json:"telephone,omitempty"`
	Email           string      `json:"email,omitempty"`
	CustomerName    string      `json:"nom_client,omitempty"`
	Lines           []OrderLine `json:"articles,omitempty"`
}

// FailureCode classifies a rejected cart or order operation
type FailureCode string

const (
	FailureInvalidQuantity    FailureCode = "invalid_quantity"
	FailureInvalidProduct     FailureCode = "invalid_product"
	FailureItemNotFound       FailureCode = "item_not_found"
	FailureCartEmpty          FailureCode = "cart_empty"
	FailureOrderNotFound      FailureCode = "order_not_found"
	FailureOrderNotCancelable FailureCode = "order_not_cancelable"
)

// OperationResult is the outcome of a cart or order mutation.
// A rejected operation has Success false and a Code; it is not an error.
type OperationResult struct {
	Success bool        `json:"success"`
	Code    FailureCode `json:"code,omitempty"`
	Message string      `json:"message"`
}

// CheckoutResult is the outcome of converting a cart into an order
type CheckoutResult struct {
	OperationResult
	OrderID     string  `json:"order_id,omitempty"`
	TotalAmount float64 `json:"total_amount"`
	TotalItems  int     `json:"total_items"`
}

// CheckoutStatus is the journal state of a checkout attempt
type CheckoutStatus string

const (
	CheckoutPending   CheckoutStatus = "pending"
	CheckoutCommitted CheckoutStatus = "committed"
	CheckoutFailed    CheckoutStatus = "failed"
)

// CheckoutRecord journals one checkout so a half-applied one can be repaired
type CheckoutRecord struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	ClientID  int            `json:"client_id"`
	CartItems []string       `json:"cart_items"`
	Status    CheckoutStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
