package cart

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartcom/smartcom-go/pkg/metadatastore"
	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/triplestore"
)

type fakeStore struct {
	mu       sync.Mutex
	selects  []string
	asks     []string
	updates  []string
	onSelect func(query string) (*triplestore.QueryResult, error)
	onAsk    func(query string) (bool, error)
	onUpdate func(update string) error
}

func (f *fakeStore) Select(ctx context.Context, query string) (*triplestore.QueryResult, error) {
	f.mu.Lock()
	f.selects = append(f.selects, query)
	fn := f.onSelect
	f.mu.Unlock()
	if fn == nil {
		return &triplestore.QueryResult{}, nil
	}
	return fn(query)
}

func (f *fakeStore) Ask(ctx context.Context, query string) (bool, error) {
	f.mu.Lock()
	f.asks = append(f.asks, query)
	fn := f.onAsk
	f.mu.Unlock()
	if fn == nil {
		return false, nil
	}
	return fn(query)
}

func (f *fakeStore) Update(ctx context.Context, update string) error {
	f.mu.Lock()
	f.updates = append(f.updates, update)
	fn := f.onUpdate
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(update)
}

func (f *fakeStore) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.selects) + len(f.asks) + len(f.updates)
}

// rows builds a result whose bindings are literals.
func rows(values ...map[string]string) *triplestore.QueryResult {
	res := &triplestore.QueryResult{}
	for _, v := range values {
		row := triplestore.BindingRow{}
		for name, value := range v {
			row[name] = triplestore.BindingValue{Type: "literal", Value: value}
		}
		res.Bindings = append(res.Bindings, row)
	}
	return res
}

type fakeJournal struct {
	mu       sync.Mutex
	records  map[string]*models.CheckoutRecord
	beginErr error
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{records: make(map[string]*models.CheckoutRecord)}
}

func (j *fakeJournal) BeginCheckout(ctx context.Context, record *models.CheckoutRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.beginErr != nil {
		return j.beginErr
	}
	record.Status = models.CheckoutPending
	copied := *record
	j.records[record.ID] = &copied
	return nil
}

func (j *fakeJournal) CompleteCheckout(ctx context.Context, id string) error {
	return j.set(id, models.CheckoutCommitted, "")
}

func (j *fakeJournal) FailCheckout(ctx context.Context, id, reason string) error {
	return j.set(id, models.CheckoutFailed, reason)
}

func (j *fakeJournal) set(id string, status models.CheckoutStatus, reason string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.records[id]
	if !ok {
		return metadatastore.ErrNotFound
	}
	r.Status, r.Error = status, reason
	return nil
}

func (j *fakeJournal) GetCheckout(ctx context.Context, id string) (*models.CheckoutRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	r, ok := j.records[id]
	if !ok {
		return nil, metadatastore.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (j *fakeJournal) ListPending(ctx context.Context, cutoff time.Time) ([]*models.CheckoutRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []*models.CheckoutRecord
	for _, r := range j.records {
		if r.Status == models.CheckoutPending && r.CreatedAt.Before(cutoff) {
			copied := *r
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (j *fakeJournal) only(t *testing.T) *models.CheckoutRecord {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	require.Len(t, j.records, 1)
	for _, r := range j.records {
		return r
	}
	return nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%08x", n)
	}
}

func newTestService(store Store, journal metadatastore.CheckoutJournal) *Service {
	return NewService(store, Options{
		Journal: journal,
		Now:     func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) },
		NewID:   sequentialIDs(),
	})
}

var insertedQuantity = regexp.MustCompile(`INSERT (?:DATA )?\{[^}]*ns:hasQuantity (\d+) \.`)

func TestNormalizeProduct(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		want string
		ok   bool
	}{
		{"angle brackets", "<" + ontology.IRI("Produit_1") + ">", ontology.IRI("Produit_1"), true},
		{"prefixed", "ns:Produit_1", ontology.IRI("Produit_1"), true},
		{"absolute http", "http://example.org/p/1", "http://example.org/p/1", true},
		{"absolute https", "https://example.org/p/1", "https://example.org/p/1", true},
		{"bare local name", "Réfrigérateur_LG", ontology.IRI("Réfrigérateur_LG"), true},
		{"whitespace", "Produit 1", "", false},
		{"injection", "x> . } ; DROP ALL ; #", "", false},
		{"bad prefixed", "ns:a{b}", "", false},
		{"empty", "", "", false},
		{"quote in iri", `<http://x/a"b>`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeProduct(tt.ref)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdd_SameProductTwiceMergesQuantities(t *testing.T) {
	var (
		cartExists bool
		itemIRI    string
		quantity   int
	)
	store := &fakeStore{}
	store.onAsk = func(query string) (bool, error) {
		return cartExists, nil
	}
	store.onSelect = func(query string) (*triplestore.QueryResult, error) {
		if itemIRI == "" {
			return rows(), nil
		}
		return rows(map[string]string{"cartItem": itemIRI, "quantity": strconv.Itoa(quantity)}), nil
	}
	store.onUpdate = func(update string) error {
		if strings.Contains(update, "a ns:Panier .") {
			cartExists = true
		}
		if strings.Contains(update, "a ns:CartItem .") {
			itemIRI = ontology.IRI("CartItem_00000001")
		}
		if m := insertedQuantity.FindStringSubmatch(update); m != nil {
			quantity, _ = strconv.Atoi(m[1])
		}
		return nil
	}
	svc := newTestService(store, nil)
	ctx := context.Background()

	res, err := svc.Add(ctx, 1, "ns:Produit_A", 2)
	require.NoError(t, err)
	assert.True(t, res.Success)

	res, err = svc.Add(ctx, 1, "ns:Produit_A", 3)
	require.NoError(t, err)
	assert.True(t, res.Success)

	assert.Equal(t, 5, quantity)

	created, carts := 0, 0
	for _, u := range store.updates {
		if strings.Contains(u, "a ns:CartItem .") {
			created++
		}
		if strings.Contains(u, "a ns:Panier .") {
			carts++
		}
	}
	assert.Equal(t, 1, created, "second add must not create another CartItem")
	assert.Equal(t, 1, carts, "cart is created once")

	last := store.updates[len(store.updates)-1]
	assert.Contains(t, last, "DELETE {\n  <"+itemIRI+"> ns:hasQuantity 2 .\n}")
	assert.Contains(t, last, "INSERT {\n  <"+itemIRI+"> ns:hasQuantity 5 .\n}")
}

func TestAdd_NewItemLinksCartAndProduct(t *testing.T) {
	store := &fakeStore{onAsk: func(string) (bool, error) { return true, nil }}
	svc := newTestService(store, nil)

	res, err := svc.Add(context.Background(), 7, "Produit_B", 1)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, store.updates, 1)

	cart := "<" + ontology.CartIRI(7) + ">"
	product := "<" + ontology.IRI("Produit_B") + ">"
	item := "<" + ontology.IRI("CartItem_00000001") + ">"
	u := store.updates[0]
	assert.Contains(t, u, cart+" ns:aContientProduit "+product+" .")
	assert.Contains(t, u, item+" ns:refersToProduct "+product+" .")
	assert.Contains(t, u, item+" ns:inCart "+cart+" .")
	assert.Contains(t, u, item+" ns:hasQuantity 1 .")
}

func TestAdd_RejectsInvalidInput(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil)

	res, err := svc.Add(context.Background(), 1, "ns:Produit_A", 0)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.FailureInvalidQuantity, res.Code)

	res, err = svc.Add(context.Background(), 1, "not a product", 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, models.FailureInvalidProduct, res.Code)

	assert.Zero(t, store.calls())
}

func TestAdd_PropagatesStoreErrors(t *testing.T) {
	store := &fakeStore{onAsk: func(string) (bool, error) { return false, triplestore.ErrUnavailable }}
	svc := newTestService(store, nil)

	_, err := svc.Add(context.Background(), 1, "ns:Produit_A", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, triplestore.ErrUnavailable))
	assert.Empty(t, store.updates)
}

func TestRemove(t *testing.T) {
	t.Run("missing item", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store, nil)

		res, err := svc.Remove(context.Background(), 1, "ns:Produit_A")
		require.NoError(t, err)
		assert.Equal(t, models.FailureItemNotFound, res.Code)
		assert.Empty(t, store.updates)
	})

	t.Run("deletes item node and link", func(t *testing.T) {
		item := ontology.IRI("CartItem_abc")
		store := &fakeStore{onSelect: func(string) (*triplestore.QueryResult, error) {
			return rows(map[string]string{"cartItem": item, "quantity": "2"}), nil
		}}
		svc := newTestService(store, nil)

		res, err := svc.Remove(context.Background(), 1, "ns:Produit_A")
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.Len(t, store.updates, 1)
		u := store.updates[0]
		assert.Contains(t, u, "<"+ontology.CartIRI(1)+"> ns:aContientProduit ?produit .")
		assert.Contains(t, u, "<"+item+"> ?pred ?obj .")
		assert.Contains(t, u, "<"+item+"> ns:refersToProduct ?produit .")
	})
}

func TestUpdateQuantity(t *testing.T) {
	t.Run("rejects below one", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store, nil)

		res, err := svc.UpdateQuantity(context.Background(), 1, "ns:Produit_A", 0)
		require.NoError(t, err)
		assert.Equal(t, models.FailureInvalidQuantity, res.Code)
		assert.Zero(t, store.calls())
	})

	t.Run("replaces quantity", func(t *testing.T) {
		item := ontology.IRI("CartItem_abc")
		store := &fakeStore{onSelect: func(string) (*triplestore.QueryResult, error) {
			return rows(map[string]string{"cartItem": item, "quantity": "2"}), nil
		}}
		svc := newTestService(store, nil)

		res, err := svc.UpdateQuantity(context.Background(), 1, "ns:Produit_A", 4)
		require.NoError(t, err)
		assert.True(t, res.Success)
		require.Len(t, store.updates, 1)
		assert.Contains(t, store.updates[0], "INSERT {\n  <"+item+"> ns:hasQuantity 4 .\n}")
		assert.Contains(t, store.updates[0], "<"+item+"> ns:hasQuantity ?oldQuantity .")
	})

	t.Run("missing item", func(t *testing.T) {
		store := &fakeStore{}
		svc := newTestService(store, nil)

		res, err := svc.UpdateQuantity(context.Background(), 1, "ns:Produit_A", 4)
		require.NoError(t, err)
		assert.Equal(t, models.FailureItemNotFound, res.Code)
	})
}

func TestClear(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, nil)

	res, err := svc.Clear(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.Len(t, store.updates, 1)
	u := store.updates[0]
	assert.Contains(t, u, "?cartItem ns:inCart <"+ontology.CartIRI(3)+"> .")
	assert.Contains(t, u, "?cartItem ?pred ?obj .")
	assert.Contains(t, u, "DELETE WHERE {\n  <"+ontology.CartIRI(3)+"> ns:aContientProduit ?produit .")
}

func TestGetCart(t *testing.T) {
	store := &fakeStore{onSelect: func(query string) (*triplestore.QueryResult, error) {
		if strings.Contains(query, "SUM(") {
			return rows(map[string]string{"totalItems": "3", "totalAmount": "250.0"}), nil
		}
		return rows(
			map[string]string{"cartItem": ontology.IRI("CartItem_1"), "produit": ontology.IRI("A"), "quantity": "2", "price": "100", "name": "Produit A"},
			map[string]string{"cartItem": ontology.IRI("CartItem_2"), "produit": ontology.IRI("B"), "quantity": "1"},
		), nil
	}}
	svc := newTestService(store, nil)

	cart, err := svc.GetCart(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 100.0, cart.Items[0].Price)
	assert.Equal(t, "Produit A", cart.Items[0].Name)
	assert.Zero(t, cart.Items[1].Price)
	assert.Equal(t, models.CartSummary{TotalItems: 3, TotalAmount: 250}, cart.Summary)

	require.Len(t, store.selects, 2)
	assert.Contains(t, store.selects[1], "BIND (COALESCE(?quantity * ?prix, 0) AS ?line)")
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.lock(1)
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	k.mu.Lock()
	assert.Empty(t, k.locks)
	k.mu.Unlock()
}
