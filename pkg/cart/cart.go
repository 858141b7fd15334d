package cart

import (
	"context"
	"fmt"
	"math"

	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/sparql"
)

// itemPattern matches the CartItem ?cartItem of cart with product and quantity.
func itemPattern(cart, product, quantity sparql.Term) []sparql.Fragment {
	return []sparql.Fragment{
		sparql.Triple(sparql.Var("cartItem"), ns(ontology.PredInCart), cart),
		sparql.Triple(sparql.Var("cartItem"), ns(ontology.PredRefersToProduct), product),
		sparql.Triple(sparql.Var("cartItem"), ns(ontology.PredHasQuantity), quantity),
	}
}

// GetCart returns the items of a client's cart and their totals. A client
// without a cart gets an empty one.
func (s *Service) GetCart(ctx context.Context, clientID int) (*models.Cart, error) {
	cart := cartTerm(clientID)
	produit, quantity := sparql.Var("produit"), sparql.Var("quantity")

	items := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars: []sparql.Term{
			sparql.Var("cartItem"), produit, quantity,
			sparql.Aggregate("SAMPLE", sparql.Var("nom"), "name"),
			sparql.Aggregate("SAMPLE", sparql.Var("description"), "desc"),
			sparql.Aggregate("SAMPLE", sparql.Var("prix"), "price"),
			sparql.Aggregate("SAMPLE", sparql.Var("image"), "img"),
		},
		Where:   itemPattern(cart, produit, quantity),
		GroupBy: []sparql.Term{sparql.Var("cartItem"), produit, quantity},
		OrderBy: []sparql.OrderKey{{Term: sparql.Var("cartItem")}},
	}
	items.Add(
		sparql.Optional(sparql.Triple(produit, ns(ontology.PredName), sparql.Var("nom"))),
		sparql.Optional(sparql.Triple(produit, ns(ontology.PredDescription), sparql.Var("description"))),
		sparql.Optional(sparql.Triple(produit, ns(ontology.PredPrice), sparql.Var("prix"))),
		sparql.Optional(sparql.Triple(produit, ns(ontology.PredImage), sparql.Var("image"))),
	)

	result, err := s.store.Select(ctx, items.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read cart items: %w", err)
	}

	out := &models.Cart{ClientID: clientID, Items: make([]models.CartItem, 0, len(result.Bindings))}
	for _, row := range result.Bindings {
		price, _ := row.Float("price")
		out.Items = append(out.Items, models.CartItem{
			IRI:         row.String("cartItem"),
			Product:     row.String("produit"),
			Name:        row.String("name"),
			Quantity:    row.Int("quantity"),
			Price:       price,
			Image:       row.String("img"),
			Description: row.String("desc"),
		})
	}

	summary, err := s.summary(ctx, clientID)
	if err != nil {
		return nil, err
	}
	out.Summary = *summary
	return out, nil
}

// summary totals a cart in the store. Items whose product has no price
// count towards the quantity but add nothing to the amount.
func (s *Service) summary(ctx context.Context, clientID int) (*models.CartSummary, error) {
	produit, quantity, prix, line := sparql.Var("produit"), sparql.Var("quantity"), sparql.Var("prix"), sparql.Var("line")
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars: []sparql.Term{
			sparql.Aggregate("SUM", quantity, "totalItems"),
			sparql.Aggregate("SUM", line, "totalAmount"),
		},
		Where: itemPattern(cartTerm(clientID), produit, quantity),
	}
	q.Add(
		sparql.Optional(sparql.Triple(produit, ns(ontology.PredPrice), prix)),
		sparql.Bind(sparql.Coalesce(sparql.Mul(quantity, prix), sparql.Integer(0)), line),
	)

	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read cart summary: %w", err)
	}
	summary := &models.CartSummary{}
	if len(result.Bindings) > 0 {
		row := result.Bindings[0]
		summary.TotalItems = row.Int("totalItems")
		summary.TotalAmount, _ = row.Float("totalAmount")
		summary.TotalAmount = roundCents(summary.TotalAmount)
	}
	return summary, nil
}

// Add puts quantity units of product in the client's cart, creating the cart
// on first use. A product already in the cart has its quantity raised.
func (s *Service) Add(ctx context.Context, clientID int, product string, quantity int) (*models.OperationResult, error) {
	if quantity < 1 {
		return failure(models.FailureInvalidQuantity, "Quantity must be at least 1"), nil
	}
	productIRI, ok := NormalizeProduct(product)
	if !ok {
		return failure(models.FailureInvalidProduct, fmt.Sprintf("Invalid product reference: %q", product)), nil
	}

	unlock := s.locks.lock(clientID)
	defer unlock()

	if err := s.ensureCart(ctx, clientID); err != nil {
		return nil, err
	}

	cart, prod := cartTerm(clientID), sparql.IRI(productIRI)
	existing, err := s.findItem(ctx, cart, prod)
	if err != nil {
		return nil, err
	}

	var update string
	if existing != nil {
		item := sparql.IRI(existing.IRI)
		update = sparql.Update(ontology.Prefix, sparql.Modify{
			Delete: []sparql.Fragment{sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Integer(existing.Quantity))},
			Insert: []sparql.Fragment{sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Integer(existing.Quantity+quantity))},
			Where:  []sparql.Fragment{sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Integer(existing.Quantity))},
		})
	} else {
		item := sparql.IRI(ontology.IRI("CartItem_" + s.newID()))
		update = sparql.Update(ontology.Prefix, sparql.InsertData{Triples: []sparql.Fragment{
			sparql.Triple(cart, ns(ontology.PredContainsProduct), prod),
			sparql.Triple(item, sparql.A, ns(ontology.ClassCartItem)),
			sparql.Triple(item, ns(ontology.PredRefersToProduct), prod),
			sparql.Triple(item, ns(ontology.PredInCart), cart),
			sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Integer(quantity)),
		}})
	}
	if err := s.store.Update(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to add product to cart: %w", err)
	}

	s.logger.Debug("Product added to cart", "client_id", clientID, "product", productIRI, "quantity", quantity, "merged", existing != nil)
	return success("Product added to cart"), nil
}

// ensureCart creates the cart resource and its client link when missing.
func (s *Service) ensureCart(ctx context.Context, clientID int) error {
	cart, client := cartTerm(clientID), clientTerm(clientID)
	exists := &sparql.Ask{Prefixes: ontology.Prefix, Where: []sparql.Fragment{
		sparql.Triple(client, ns(ontology.PredPlacesOrder), cart),
		sparql.Triple(cart, sparql.A, ns(ontology.ClassCart)),
	}}
	ok, err := s.store.Ask(ctx, exists.String())
	if err != nil {
		return fmt.Errorf("failed to check cart: %w", err)
	}
	if ok {
		return nil
	}

	create := sparql.Update(ontology.Prefix, sparql.InsertData{Triples: []sparql.Fragment{
		sparql.Triple(cart, sparql.A, ns(ontology.ClassCart)),
		sparql.Triple(client, ns(ontology.PredPlacesOrder), cart),
	}})
	if err := s.store.Update(ctx, create); err != nil {
		return fmt.Errorf("failed to create cart: %w", err)
	}
	s.logger.Info("Cart created", "client_id", clientID)
	return nil
}

type storedItem struct {
	IRI      string
	Quantity int
}

// findItem returns the CartItem of product in cart, or nil.
func (s *Service) findItem(ctx context.Context, cart, product sparql.Term) (*storedItem, error) {
	q := &sparql.Select{
		Prefixes: ontology.Prefix,
		Vars:     []sparql.Term{sparql.Var("cartItem"), sparql.Var("quantity")},
		Where:    itemPattern(cart, product, sparql.Var("quantity")),
		Limit:    1,
	}
	result, err := s.store.Select(ctx, q.String())
	if err != nil {
		return nil, fmt.Errorf("failed to read cart item: %w", err)
	}
	if len(result.Bindings) == 0 {
		return nil, nil
	}
	row := result.Bindings[0]
	return &storedItem{IRI: row.String("cartItem"), Quantity: row.Int("quantity")}, nil
}

// consumeItems deletes every triple of the cart items and their contains
// links. Items already gone match nothing, so the operations can be replayed.
func consumeItems(cart sparql.Term, items []string) []sparql.Operation {
	ops := make([]sparql.Operation, 0, len(items))
	for _, iri := range items {
		item := sparql.IRI(iri)
		ops = append(ops, sparql.Modify{
			Delete: []sparql.Fragment{
				sparql.Triple(cart, ns(ontology.PredContainsProduct), sparql.Var("produit")),
				sparql.Triple(item, sparql.Var("pred"), sparql.Var("obj")),
			},
			Where: []sparql.Fragment{
				sparql.Triple(item, ns(ontology.PredRefersToProduct), sparql.Var("produit")),
				sparql.Triple(item, sparql.Var("pred"), sparql.Var("obj")),
			},
		})
	}
	return ops
}

// Remove takes product out of the client's cart. The CartItem node is
// deleted together with the contains link.
func (s *Service) Remove(ctx context.Context, clientID int, product string) (*models.OperationResult, error) {
	productIRI, ok := NormalizeProduct(product)
	if !ok {
		return failure(models.FailureInvalidProduct, fmt.Sprintf("Invalid product reference: %q", product)), nil
	}

	unlock := s.locks.lock(clientID)
	defer unlock()

	cart := cartTerm(clientID)
	existing, err := s.findItem(ctx, cart, sparql.IRI(productIRI))
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return failure(models.FailureItemNotFound, "Product is not in the cart"), nil
	}

	if err := s.store.Update(ctx, sparql.Update(ontology.Prefix, consumeItems(cart, []string{existing.IRI})...)); err != nil {
		return nil, fmt.Errorf("failed to remove product from cart: %w", err)
	}
	s.logger.Debug("Product removed from cart", "client_id", clientID, "product", productIRI)
	return success("Product removed from cart"), nil
}

// UpdateQuantity sets the quantity of a product already in the cart.
func (s *Service) UpdateQuantity(ctx context.Context, clientID int, product string, quantity int) (*models.OperationResult, error) {
	if quantity < 1 {
		return failure(models.FailureInvalidQuantity, "Quantity must be at least 1"), nil
	}
	productIRI, ok := NormalizeProduct(product)
	if !ok {
		return failure(models.FailureInvalidProduct, fmt.Sprintf("Invalid product reference: %q", product)), nil
	}

	unlock := s.locks.lock(clientID)
	defer unlock()

	cart, prod := cartTerm(clientID), sparql.IRI(productIRI)
	existing, err := s.findItem(ctx, cart, prod)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return failure(models.FailureItemNotFound, "Product is not in the cart"), nil
	}

	item := sparql.IRI(existing.IRI)
	update := sparql.Update(ontology.Prefix, sparql.Modify{
		Delete: []sparql.Fragment{sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Var("oldQuantity"))},
		Insert: []sparql.Fragment{sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Integer(quantity))},
		Where: []sparql.Fragment{
			sparql.Triple(item, ns(ontology.PredInCart), cart),
			sparql.Triple(item, ns(ontology.PredRefersToProduct), prod),
			sparql.Triple(item, ns(ontology.PredHasQuantity), sparql.Var("oldQuantity")),
		},
	})
	if err := s.store.Update(ctx, update); err != nil {
		return nil, fmt.Errorf("failed to update cart quantity: %w", err)
	}
	return success("Cart quantity updated"), nil
}

// Clear empties the client's cart. The cart resource itself is kept.
func (s *Service) Clear(ctx context.Context, clientID int) (*models.OperationResult, error) {
	unlock := s.locks.lock(clientID)
	defer unlock()

	if err := s.store.Update(ctx, clearCart(cartTerm(clientID))); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}
	s.logger.Info("Cart cleared", "client_id", clientID)
	return success("Cart cleared"), nil
}

func clearCart(cart sparql.Term) string {
	item := sparql.Var("cartItem")
	return sparql.Update(ontology.Prefix,
		sparql.Modify{
			Delete: []sparql.Fragment{sparql.Triple(item, sparql.Var("pred"), sparql.Var("obj"))},
			Where: []sparql.Fragment{
				sparql.Triple(item, ns(ontology.PredInCart), cart),
				sparql.Triple(item, sparql.Var("pred"), sparql.Var("obj")),
			},
		},
		sparql.DeleteWhere{Where: []sparql.Fragment{
			sparql.Triple(cart, ns(ontology.PredContainsProduct), sparql.Var("produit")),
		}},
	)
}

func roundCents(f float64) float64 {
	return math.Round(f*100) / 100
}
