package models

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus       = errors.New("invalid ticket status")
	ErrParticipantRequired = errors.New("occupied ticket must have a participant")
	ErrParticipantOnFree   = errors.New("available ticket cannot have a participant")
	ErrSellerWithoutSale   = errors.New("seller can only be attributed to an occupied ticket")
)

// Status is the ticket lifecycle state.
type Status string

const (
	StatusAvailable Status = "AVAILABLE" // on sale
	StatusReviewing Status = "REVISANDO" // held, payment proof pending
	StatusPaid      Status = "PAGADO"    // payment confirmed

	// Legacy alias for held tickets, accepted on input only.
	statusHeldAlias = "APARTADO"
)

// ParseStatus normalizes a raw status string, mapping the legacy APARTADO
// alias to StatusReviewing. Stored statuses never use the alias.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case string(StatusAvailable):
		return StatusAvailable, nil
	case string(StatusReviewing), statusHeldAlias:
		return StatusReviewing, nil
	case string(StatusPaid):
		return StatusPaid, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
}

func (s Status) Valid() bool {
	return s == StatusAvailable || s == StatusReviewing || s == StatusPaid
}

// Occupied reports whether the ticket is held or paid.
func (s Status) Occupied() bool {
	return s == StatusReviewing || s == StatusPaid
}

// Participant is the buyer holding a ticket.
type Participant struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds of the reservation
	ReceiptID string `json:"receipt_id,omitempty"`
}

// Ticket is one numbered raffle entry.
type Ticket struct {
	ID          string       `json:"id"`
	Status      Status       `json:"status"`
	Participant *Participant `json:"participant,omitempty"`
	SellerID    string       `json:"seller_id,omitempty"`
}

// Validate enforces the core invariant: a participant is attached exactly
// when the ticket is occupied, and seller attribution requires a participant.
func (t *Ticket) Validate() error {
	if !t.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.Status.Occupied() && t.Participant == nil {
		return fmt.Errorf("ticket %s: %w", t.ID, ErrParticipantRequired)
	}
	if !t.Status.Occupied() {
		if t.Participant != nil {
			return fmt.Errorf("ticket %s: %w", t.ID, ErrParticipantOnFree)
		}
		if t.SellerID != "" {
			return fmt.Errorf("ticket %s: %w", t.ID, ErrSellerWithoutSale)
		}
	}
	return nil
}

// Patch is a partial ticket update. Nil fields are left unchanged. Setting
// status to AVAILABLE always clears participant and seller attribution so the
// invariant survives any patch.
type Patch struct {
	Status      *Status      `json:"status,omitempty"`
	Participant *Participant `json:"participant,omitempty"`
	SellerID    *string      `json:"seller_id,omitempty"`
}

// Apply merges the patch into the ticket.
func (p Patch) Apply(t *Ticket) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Participant != nil {
		t.Participant = p.Participant
	}
	if p.SellerID != nil {
		t.SellerID = *p.SellerID
	}
	if t.Status == StatusAvailable {
		t.Participant = nil
		t.SellerID = ""
	}
}

// PadWidth is the zero-padding width for ticket ids on a board of the given
// size: 2 digits under 100, 3 under 1000, 4 otherwise.
func PadWidth(total int) int {
	switch {
	case total < 100:
		return 2
	case total < 1000:
		return 3
	default:
		return 4
	}
}

// FormatID renders the i-th ticket id for a board of the given size.
func FormatID(i, total int) string {
	return fmt.Sprintf("%0*d", PadWidth(total), i)
}

// GenerateBoard builds a fresh board of count available tickets with
// sequential zero-padded ids, already sorted.
func GenerateBoard(count int) []Ticket {
	board := make([]Ticket, count)
	for i := 0; i < count; i++ {
		board[i] = Ticket{ID: FormatID(i, count), Status: StatusAvailable}
	}
	return board
}
