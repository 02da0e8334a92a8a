// Package store defines storage interfaces for the local order journal and
// portfolio snapshots.
package store

import (
	"context"
	"errors"
	"time"

	"degiro/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// OrderStore persists and retrieves order records.
type OrderStore interface {
	// SaveOrder inserts a new order into storage.
	SaveOrder(ctx context.Context, order *domain.Order) error

	// GetOrder retrieves a single order by its ID.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// ListOrders returns all orders matching the given status, newest first.
	// An empty status lists every order.
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)

	// UpdateOrder persists changes to an existing order.
	UpdateOrder(ctx context.Context, order *domain.Order) error
}

// SnapshotStore persists point-in-time copies of the portfolio.
type SnapshotStore interface {
	// WriteSnapshot stores the positions held at the given time.
	WriteSnapshot(ctx context.Context, at time.Time, positions []domain.Position) error

	// ReadSnapshot returns the positions stored for the given day.
	ReadSnapshot(ctx context.Context, day time.Time) ([]domain.Position, error)
}
