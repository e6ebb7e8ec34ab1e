package repository

import (
	"context"
	"errors"

	"raffle-board-backend/internal/features/ticket/models"
)

var ErrTicketNotFound = errors.New("ticket not found")

// TicketRepository is the remote-store surface for the tickets table. All
// writes are expected to emit change-feed events for the touched rows after
// they commit.
type TicketRepository interface {
	// List returns every ticket ordered by id ascending.
	List(ctx context.Context) ([]models.Ticket, error)

	// BulkInsert persists a fresh board. First-run only.
	BulkInsert(ctx context.Context, tickets []models.Ticket) error

	// Upsert inserts or replaces the given rows by id.
	Upsert(ctx context.Context, tickets []models.Ticket) error

	// UpdateFields applies a partial update to all given ids and returns the
	// resulting rows.
	UpdateFields(ctx context.Context, ids []string, patch models.Patch) ([]models.Ticket, error)

	// GetStatuses reads the current status of the given ids. Missing ids are
	// absent from the result.
	GetStatuses(ctx context.Context, ids []string) (map[string]models.Status, error)

	// ClaimAvailable atomically moves every id from AVAILABLE to REVISANDO
	// with the given participant and optional seller attribution. It is
	// all-or-nothing: when any id is missing or no longer available, nothing
	// changes and the conflicting ids are returned.
	ClaimAvailable(ctx context.Context, ids []string, participant models.Participant, sellerID string) (taken []string, err error)

	// DeleteBeyond removes every ticket that does not belong on a board of
	// count tickets padded to width digits: rows numbered at or above count
	// and stale rows carrying a different padding width.
	DeleteBeyond(ctx context.Context, width, count int) error

	// DeleteAll clears the board.
	DeleteAll(ctx context.Context) error
}
