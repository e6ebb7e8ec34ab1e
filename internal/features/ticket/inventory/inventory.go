// Package inventory keeps the per-instance in-memory mirror of the tickets
// table. The mirror is updated optimistically ahead of remote writes and
// reconciled by change-feed events, which may arrive late, reordered across
// ids, or duplicated (own writes echo back). Every mutation keeps the
// collection sorted by id; ids share a fixed padding width, so lexicographic
// order is numeric order.
package inventory

import (
	"sort"
	"sync"

	"raffle-board-backend/internal/common/logger"
	"raffle-board-backend/internal/feed"
	"raffle-board-backend/internal/features/ticket/models"
)

type Inventory struct {
	mu      sync.RWMutex
	tickets []models.Ticket
}

func New() *Inventory {
	return &Inventory{}
}

// Load replaces the mirror with the given rows, sorting them by id.
func (inv *Inventory) Load(tickets []models.Ticket) {
	sorted := make([]models.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.tickets = sorted
}

// Snapshot returns a copy of the current board.
func (inv *Inventory) Snapshot() []models.Ticket {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	out := make([]models.Ticket, len(inv.tickets))
	copy(out, inv.tickets)
	return out
}

// Get returns the ticket with the given id.
func (inv *Inventory) Get(id string) (models.Ticket, bool) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	i, found := inv.locate(id)
	if !found {
		return models.Ticket{}, false
	}
	return inv.tickets[i], true
}

func (inv *Inventory) Len() int {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	return len(inv.tickets)
}

// locate returns the sorted position of id. Callers hold the lock.
func (inv *Inventory) locate(id string) (int, bool) {
	i := sort.Search(len(inv.tickets), func(i int) bool { return inv.tickets[i].ID >= id })
	return i, i < len(inv.tickets) && inv.tickets[i].ID == id
}

// Upsert inserts the ticket at its sorted position or replaces it in place.
// Applying the same row twice is a no-op, which makes feed replays safe.
func (inv *Inventory) Upsert(t models.Ticket) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	i, found := inv.locate(t.ID)
	if found {
		inv.tickets[i] = t
		return
	}
	inv.tickets = append(inv.tickets, models.Ticket{})
	copy(inv.tickets[i+1:], inv.tickets[i:])
	inv.tickets[i] = t
}

// Delete removes the ticket with the given id, if present.
func (inv *Inventory) Delete(id string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	i, found := inv.locate(id)
	if !found {
		return
	}
	inv.tickets = append(inv.tickets[:i], inv.tickets[i+1:]...)
}

// ApplyLocal applies a partial update to the given ids before the remote
// write confirms, so callers see the change immediately. Ids not present in
// the mirror are skipped.
func (inv *Inventory) ApplyLocal(ids []string, patch models.Patch) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	for _, id := range ids {
		i, found := inv.locate(id)
		if !found {
			continue
		}
		patch.Apply(&inv.tickets[i])
	}
}

// ApplyRemoteEvent reconciles one change-feed event into the mirror. Each
// event carries the full row and is treated as the newest known state for
// that id regardless of arrival order.
func (inv *Inventory) ApplyRemoteEvent(event feed.Event) {
	var t models.Ticket
	if err := event.DecodeRow(&t); err != nil {
		logger.Error().Err(err).Msg("Failed to decode ticket feed event")
		return
	}
	if t.ID == "" {
		logger.Warn().Str("type", string(event.Type)).Msg("Ticket feed event without id")
		return
	}

	switch event.Type {
	case feed.EventInsert, feed.EventUpdate:
		inv.Upsert(t)
	case feed.EventDelete:
		inv.Delete(t.ID)
	}
}
