package metadatastore

import (
	"context"
	"errors"
	"time"

	"github.com/smartcom/smartcom-go/pkg/models"
)

// ErrNotFound is returned when a checkout record does not exist.
var ErrNotFound = errors.New("checkout record not found")

// CheckoutJournal persists checkout attempts so a checkout whose triplestore
// update was interrupted can be reconciled later.
// This is NOT the system of record for carts and orders, which live in the triplestore.
type CheckoutJournal interface {
	// BeginCheckout records a pending checkout before its update is sent.
	BeginCheckout(ctx context.Context, record *models.CheckoutRecord) error
	// CompleteCheckout marks a checkout committed.
	CompleteCheckout(ctx context.Context, id string) error
	// FailCheckout marks a checkout failed with a reason.
	FailCheckout(ctx context.Context, id, reason string) error
	// GetCheckout retrieves a checkout record by ID.
	GetCheckout(ctx context.Context, id string) (*models.CheckoutRecord, error)
	// ListPending lists pending checkouts created before cutoff, oldest first.
	ListPending(ctx context.Context, cutoff time.Time) ([]*models.CheckoutRecord, error)
}
