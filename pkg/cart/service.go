// Package cart manages shopping carts and orders stored in the triplestore.
//
// Every cart of a client is the resource Panier_Client{id}. A cart holds one
// CartItem per product; adding a product already in the cart raises its
// quantity. Checkout freezes the live cart items into a Commande with one
// ArticleCommande per item and consumes the cart in the same update request.
//
// Mutations on one client's cart are serialized in process. Two processes
// writing the same cart can still interleave their read-modify-write cycles.
package cart

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smartcom/smartcom-go/pkg/metadatastore"
	"github.com/smartcom/smartcom-go/pkg/metrics"
	"github.com/smartcom/smartcom-go/pkg/models"
	"github.com/smartcom/smartcom-go/pkg/ontology"
	"github.com/smartcom/smartcom-go/pkg/sparql"
	"github.com/smartcom/smartcom-go/pkg/triplestore"
)

// Store is the part of the triplestore gateway the engine needs.
type Store interface {
	Select(ctx context.Context, query string) (*triplestore.QueryResult, error)
	Ask(ctx context.Context, query string) (bool, error)
	Update(ctx context.Context, update string) error
}

// Options configures a Service. Every field is optional.
type Options struct {
	Journal metadatastore.CheckoutJournal // nil disables checkout journaling
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
	NewID   func() string // 8 character resource ids
}

// Service is the cart and order engine.
type Service struct {
	store   Store
	journal metadatastore.CheckoutJournal
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
	locks   *keyedMutex
}

// NewService creates a new cart service backed by store.
func NewService(store Store, opts Options) *Service {
	s := &Service{
		store:   store,
		journal: opts.Journal,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Now,
		newID:   opts.NewID,
		locks:   newKeyedMutex(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = shortID
	}
	return s
}

// shortID returns the first 8 hex digits of a random UUID.
func shortID() string {
	return uuid.NewString()[:8]
}

func ns(local string) sparql.Term {
	return sparql.QName("ns", local)
}

func cartTerm(clientID int) sparql.Term {
	return sparql.IRI(ontology.CartIRI(clientID))
}

func clientTerm(clientID int) sparql.Term {
	return sparql.IRI(ontology.ClientIRI(clientID))
}

var localNamePattern = regexp.MustCompile(`^[\p{L}\p{N}_\-.]+$`)

// NormalizeProduct turns the product references accepted by the cart API
// into a full IRI: "<iri>", "ns:Local", "http(s)://..." or a bare local
// name. ok is false for anything else.
func NormalizeProduct(ref string) (iri string, ok bool) {
	ref = strings.TrimSpace(ref)
	switch {
	case strings.HasPrefix(ref, "<") && strings.HasSuffix(ref, ">"):
		iri = ref[1 : len(ref)-1]
	case strings.HasPrefix(ref, "ns:"):
		local := strings.TrimPrefix(ref, "ns:")
		if !localNamePattern.MatchString(local) {
			return "", false
		}
		iri = ontology.IRI(local)
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		iri = ref
	case localNamePattern.MatchString(ref):
		iri = ontology.IRI(ref)
	default:
		return "", false
	}
	if !sparql.ValidIRI(iri) {
		return "", false
	}
	return iri, true
}

func failure(code models.FailureCode, message string) *models.OperationResult {
	return &models.OperationResult{Code: code, Message: message}
}

func success(message string) *models.OperationResult {
	return &models.OperationResult{Success: true, Message: message}
}
