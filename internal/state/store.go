// Package state persists saved dashboards between sessions.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapdash/pkg/dashboard"
)

// ErrNotFound is returned when a saved dashboard does not exist.
var ErrNotFound = errors.New("saved dashboard not found")

// SavedDashboard is a named snapshot of a dashboard state.
type SavedDashboard struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Template    string          `json:"template,omitempty"`
	State       dashboard.State `json:"state"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Summary is the listing view of a saved dashboard.
type Summary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Template    string    `json:"template,omitempty"`
	Items       int       `json:"items"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store is the persistence boundary used by the CLI and HTTP server.
type Store interface {
	Save(ctx context.Context, d *SavedDashboard) error
	Get(ctx context.Context, id string) (*SavedDashboard, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
