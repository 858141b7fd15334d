package cart

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/sparql"
	"github.com/smartcom/smartcom-go/pkg/triplestore"
)

// Checkout outcome labels.
const (
	checkoutCommitted = "committed"
	checkoutEmpty     = "empty"
	checkoutError     = "error"
)

var orderIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var cancelableStatuses = map[string]bool{
	"en cours":  true,
	"pending":   true,
	"confirmée": true,
	"confirmed": true,
}

type checkoutLine struct {
	item     string
	product  string
	quantity int
	price    float64
}

// liveItems reads the cart items with the current price of their product.
func (s *Service) liveItems(ctx context.Context, clientID int) ([]checkoutLine, error) {
	produit, quantity := sparql.Var("produit"), sparql.Var("quantity")
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars: []sparql.Term{
			sparql.Var("cartItem"), produit, quantity,
			sparql.Aggregate("SAMPLE", sparql.Var("prix"), "price"),
		},
		Where:   itemPattern(cartTerm(clientID), produit, quantity),
		GroupBy: []sparql.Term{sparql.Var("cartItem"), produit, quantity},
		OrderBy: []sparql.OrderKey{{Term: sparql.Var("cartItem")}},
	}
	q.Add(sparql.Optional(sparql.Triple(produit, ns(ontology.PredPrice), sparql.Var("prix"))))

	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}
	lines := make([]checkoutLine, 0, len(result.Bindings))
	for _, row := range result.Bindings {
		line := checkoutLine{
			item:     row.String("cartItem"),
			product:  row.String("produit"),
			quantity: row.Int("quantity"),
		}
		price, ok := row.Float("price")
		if !ok {
			s.logger.Warn("Product has no price, ordering at 0", "client_id", clientID, "product", line.product)
		}
		line.price = price
		lines = append(lines, line)
	}
	return lines, nil
}

// Checkout converts the client's cart into an order. Totals are computed from
// the live cart items, so later price changes do not affect the order. The
// order, its lines and the removal of the cart items go to the store as one
// update request.
func (s *Service) Checkout(ctx context.Context, clientID int, details models.CustomerDetails) (*models.CheckoutResult, error) {
	unlock := s.locks.lock(clientID)
	defer unlock()

	lines, err := s.liveItems(ctx, clientID)
	if err != nil {
		s.metrics.CountCheckout(checkoutError)
		return nil, err
	}

	totalItems, totalAmount := 0, 0.0
	for _, l := range lines {
		totalItems += l.quantity
		totalAmount += float64(l.quantity) * l.price
	}
	totalAmount = roundCents(totalAmount)
	if totalItems == 0 {
		s.metrics.CountCheckout(checkoutEmpty)
		return &models.CheckoutResult{OperationResult: *failure(models.FailureCartEmpty, "Cart is empty")}, nil
	}

	orderID := s.newID()
	order := sparql.IRI(ontology.OrderIRI(orderID))
	triples := []sparql.Fragment{
		sparql.Triple(order, sparql.A, ns(ontology.ClassOrder)),
		sparql.Triple(order, ns(ontology.PredOrderClient), clientTerm(clientID)),
		sparql.Triple(order, ns(ontology.PredOrderDate), sparql.Typed(s.now().Format("2006-01-02"), sparql.QName("xsd", "date"))),
		sparql.Triple(order, ns(ontology.PredOrderTotal), sparql.Decimal(totalAmount)),
		sparql.Triple(order, ns(ontology.PredOrderItemCount), sparql.Integer(totalItems)),
		sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.String(ontology.StatusInProgress)),
		sparql.Triple(order, ns(ontology.PredShippingAddress), sparql.String(details.DeliveryAddress)),
		sparql.Triple(order, ns(ontology.PredCustomerPhone), sparql.String(details.Phone)),
		sparql.Triple(order, ns(ontology.PredCustomerEmail), sparql.String(details.Email)),
		sparql.Triple(order, ns(ontology.PredCustomerName), sparql.String(details.FullName)),
	}
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		article := sparql.IRI(ontology.IRI("ArticleCommande_" + s.newID()))
		triples = append(triples,
			sparql.Triple(article, sparql.A, ns(ontology.ClassOrderLine)),
			sparql.Triple(article, ns(ontology.PredLineOrder), order),
			sparql.Triple(article, ns(ontology.PredLineProduct), sparql.IRI(l.product)),
			sparql.Triple(article, ns(ontology.PredLineQuantity), sparql.Integer(l.quantity)),
			sparql.Triple(article, ns(ontology.PredLineUnitPrice), sparql.Decimal(l.price)),
			sparql.Triple(article, ns(ontology.PredLineSubtotal), sparql.Decimal(roundCents(float64(l.quantity)*l.price))),
		)
		items = append(items, l.item)
	}

	record := &models.CheckoutRecord{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		ClientID:  clientID,
		CartItems: items,
	}
	if s.journal != nil {
		if err := s.journal.BeginCheckout(ctx, record); err != nil {
			s.metrics.CountCheckout(checkoutError)
			return nil, fmt.Errorf("failed to journal checkout: %w", err)
		}
	}

	ops := append([]sparql.Operation{sparql.InsertData{Triples: triples}}, consumeItems(cartTerm(clientID), items)...)
	if err := s.store.Update(ctx, sparql.Update(ontology.Prefix, ops...)); err != nil {
		s.metrics.CountCheckout(checkoutError)
		if errors.Is(err, triplestore.ErrMalformedQuery) {
			// rejected before anything was applied
			s.failJournal(ctx, record.ID, err.Error())
		} else {
			s.logger.Warn("Checkout outcome unknown, left pending for reconciliation", "checkout_id", record.ID, "order_id", orderID, "error", err)
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	if s.journal != nil {
		if err := s.journal.CompleteCheckout(ctx, record.ID); err != nil {
			s.logger.Error("Failed to commit checkout journal", "checkout_id", record.ID, "error", err)
		}
	}
	s.metrics.CountCheckout(checkoutCommitted)
	s.logger.Info("Order created", "client_id", clientID, "order_id", orderID, "total_amount", totalAmount, "total_items", totalItems)

	return &models.CheckoutResult{
		OperationResult: *success("Order created successfully"),
		OrderID:         orderID,
		TotalAmount:     totalAmount,
		TotalItems:      totalItems,
	}, nil
}

func (s *Service) failJournal(ctx context.Context, id, reason string) {
	if s.journal == nil {
		return
	}
	if err := s.journal.FailCheckout(ctx, id, reason); err != nil {
		s.logger.Error("Failed to mark checkout failed", "checkout_id", id, "error", err)
	}
}

// Reconcile settles journaled checkouts still pending after olderThan. When
// the order reached the store its cart items are consumed again, which is a
// no-op if the original request applied them. Otherwise the checkout is
// marked failed and the cart is left as it was.
func (s *Service) Reconcile(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	pending, err := s.journal.ListPending(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to list pending checkouts: %w", err)
	}

	settled := 0
	for _, record := range pending {
		if err := ctx.Err(); err != nil {
			return settled, err
		}
		if err := s.reconcileOne(ctx, record); err != nil {
			s.logger.Error("Failed to reconcile checkout", "checkout_id", record.ID, "order_id", record.OrderID, "error", err)
			continue
		}
		settled++
	}
	if settled > 0 {
		s.logger.Info("Reconciled pending checkouts", "count", settled, "pending", len(pending))
	}
	return settled, nil
}

func (s *Service) reconcileOne(ctx context.Context, record *models.CheckoutRecord) error {
	unlock := s.locks.lock(record.ClientID)
	defer unlock()

	exists := &sparql.Ask{Prefixes: ontology.Prefix, Where: []sparql.Fragment{
		sparql.Triple(sparql.IRI(ontology.OrderIRI(record.OrderID)), sparql.A, ns(ontology.ClassOrder)),
	}}
	ok, err := s.store.Ask(ctx, exists.String())
	if err != nil {
		return fmt.Errorf("failed to check order: %w", err)
	}
	if !ok {
		s.logger.Warn("Order of pending checkout not found, marking failed", "checkout_id", record.ID, "order_id", record.OrderID)
		return s.journal.FailCheckout(ctx, record.ID, "order not found in store")
	}

	if len(record.CartItems) > 0 {
		update := sparql.Update(ontology.Prefix, consumeItems(cartTerm(record.ClientID), record.CartItems)...)
		if err := s.store.Update(ctx, update); err != nil {
			return fmt.Errorf("failed to consume cart items: %w", err)
		}
	}
	s.logger.Info("Checkout reconciled", "checkout_id", record.ID, "order_id", record.OrderID)
	return s.journal.CompleteCheckout(ctx, record.ID)
}

// Cancel sets an order's status to Annulée. Only orders whose status is
// en cours, pending, confirmée or confirmed (any case) can be cancelled.
func (s *Service) Cancel(ctx context.Context, orderID string) (*models.OperationResult, error) {
	if !orderIDPattern.MatchString(orderID) {
		return failure(models.FailureOrderNotFound, "Order not found"), nil
	}
	order := sparql.IRI(ontology.OrderIRI(orderID))

	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{sparql.Var("statut")},
		Where:    []sparql.Fragment{sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.Var("statut"))},
		Limit:    1,
	}
	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read order status: %w", err)
	}
	if len(result.Bindings) == 0 {
		return failure(models.FailureOrderNotFound, "Order not found"), nil
	}
	status := result.Bindings[0].String("statut")
	if !cancelableStatuses[strings.ToLower(strings.TrimSpace(status))] {
		return failure(models.FailureOrderNotCancelable, fmt.Sprintf("Order cannot be cancelled in status %q", status)), nil
	}

	update := sparql.Update(ontology.Prefix, sparql.Modify{
		Delete: []sparql.Fragment{sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.Var("oldStatus"))},
		Insert: []sparql.Fragment{sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.String(ontology.StatusCancelled))},
		Where:  []sparql.Fragment{sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.Var("oldStatus"))},
	})
	if err := s.store.Update(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to cancel order: %w", err)
	}
	s.logger.Info("Order cancelled", "order_id", orderID, "previous_status", status)
	return success("Order cancelled successfully"), nil
}

// GetOrder returns an order with its lines, or nil when it does not exist.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if !orderIDPattern.MatchString(orderID) {
		return nil, nil
	}
	iri := ontology.OrderIRI(orderID)
	order := sparql.IRI(iri)

	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars: []sparql.Term{
			sparql.Var("client"), sparql.Var("date"), sparql.Var("montant"), sparql.Var("articles"), sparql.Var("statut"),
			sparql.Var("adresse"), sparql.Var("telephone"), sparql.Var("email"), sparql.Var("nom"),
		},
		Where: []sparql.Fragment{
			sparql.Triple(order, ns(ontology.PredOrderClient), sparql.Var("client")),
			sparql.Triple(order, ns(ontology.PredOrderDate), sparql.Var("date")),
			sparql.Triple(order, ns(ontology.PredOrderTotal), sparql.Var("montant")),
			sparql.Triple(order, ns(ontology.PredOrderItemCount), sparql.Var("articles")),
			sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.Var("statut")),
		},
		Limit: 1,
	}
	q.Add(contactFields(order)...)

	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read order: %w", err)
	}
	if len(result.Bindings) == 0 {
		return nil, nil
	}
	o := orderFromRow(result.Bindings[0])
	o.ID, o.IRI = orderID, iri

	lines, err := s.orderLines(ctx, order)
	if err != nil {
		return nil, err
	}
	o.Lines = lines
	return o, nil
}

func contactFields(order sparql.Term) []sparql.Fragment {
	return []sparql.Fragment{
		sparql.Optional(sparql.Triple(order, ns(ontology.PredShippingAddress), sparql.Var("adresse"))),
		sparql.Optional(sparql.Triple(order, ns(ontology.PredCustomerPhone), sparql.Var("telephone"))),
		sparql.Optional(sparql.Triple(order, ns(ontology.PredCustomerEmail), sparql.Var("email"))),
		sparql.Optional(sparql.Triple(order, ns(ontology.PredCustomerName), sparql.Var("nom"))),
	}
}

func orderFromRow(row triplestore.BindingRow) *models.Order {
	total, _ := row.Float("montant")
	return &models.Order{
		Client:          row.String("client"),
		Date:            row.String("date"),
		TotalAmount:     total,
		TotalItems:      row.Int("articles"),
		Status:          row.String("statut"),
		ShippingAddress: row.String("adresse"),
		Phone:           row.String("telephone"),
		Email:           row.String("email"),
		CustomerName:    row.String("nom"),
	}
}

func (s *Service) orderLines(ctx context.Context, order sparql.Term) ([]models.OrderLine, error) {
	article, produit := sparql.Var("article"), sparql.Var("produit")
	keys := []sparql.Term{article, produit, sparql.Var("quantite"), sparql.Var("prixUnitaire"), sparql.Var("sousTotal")}
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     append(append([]sparql.Term{}, keys...), sparql.Aggregate("SAMPLE", sparql.Var("nomProduit"), "nom")),
		Where: []sparql.Fragment{
			sparql.Triple(article, ns(ontology.PredLineOrder), order),
			sparql.Triple(article, ns(ontology.PredLineProduct), produit),
			sparql.Triple(article, ns(ontology.PredLineQuantity), sparql.Var("quantite")),
			sparql.Triple(article, ns(ontology.PredLineUnitPrice), sparql.Var("prixUnitaire")),
			sparql.Triple(article, ns(ontology.PredLineSubtotal), sparql.Var("sousTotal")),
			sparql.Optional(sparql.Triple(produit, ns(ontology.PredName), sparql.Var("nomProduit"))),
		},
		GroupBy: keys,
		OrderBy: []sparql.OrderKey{{Term: article}},
	}
	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}
	lines := make([]models.OrderLine, 0, len(result.Bindings))
	for _, row := range result.Bindings {
		unit, _ := row.Float("prixUnitaire")
		sub, _ := row.Float("sousTotal")
		lines = append(lines, models.OrderLine{
			IRI:       row.String("article"),
			Product:   row.String("produit"),
			Name:      row.String("nom"),
			Quantity:  row.Int("quantite"),
			UnitPrice: unit,
			Subtotal:  sub,
		})
	}
	return lines, nil
}

// ListClientOrders returns the orders of a client, newest first. Lines are not loaded.
func (s *Service) ListClientOrders(ctx context.Context, clientID int) ([]models.Order, error) {
	return s.listOrders(ctx, clientTerm(clientID))
}

// ListOrders returns every order, newest first. Lines are not loaded.
func (s *Service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return s.listOrders(ctx, sparql.Var("client"))
}

func (s *Service) listOrders(ctx context.Context, client sparql.Term) ([]models.Order, error) {
	order := sparql.Var("commande")
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars: []sparql.Term{
			order, sparql.Var("date"), sparql.Var("montant"), sparql.Var("articles"), sparql.Var("statut"),
			sparql.Var("adresse"), sparql.Var("telephone"), sparql.Var("email"), sparql.Var("nom"),
		},
		Where: []sparql.Fragment{
			sparql.Triple(order, sparql.A, ns(ontology.ClassOrder)),
			sparql.Triple(order, ns(ontology.PredOrderClient), client),
			sparql.Triple(order, ns(ontology.PredOrderDate), sparql.Var("date")),
			sparql.Triple(order, ns(ontology.PredOrderTotal), sparql.Var("montant")),
			sparql.Triple(order, ns(ontology.PredOrderItemCount), sparql.Var("articles")),
			sparql.Triple(order, ns(ontology.PredOrderStatus), sparql.Var("statut")),
		},
		OrderBy: []sparql.OrderKey{{Term: sparql.Var("date"), Desc: true}, {Term: order}},
	}
	if strings.HasPrefix(string(client), "?") {
		q.Vars = append(q.Vars, client)
	}
	q.Add(contactFields(order)...)

	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	orders := make([]models.Order, 0, len(result.Bindings))
	for _, row := range result.Bindings {
		o := orderFromRow(row)
		o.IRI = row.String("commande")
		o.ID = strings.TrimPrefix(ontology.LocalName(o.IRI), "Commande_")
		if o.Client == "" {
			o.Client = strings.Trim(string(client), "<>")
		}
		orders = append(orders, *o)
	}
	return orders, nil
}
