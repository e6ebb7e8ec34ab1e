package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPadWidth(t *testing.T) {
	tests := []struct {
		total int
		want  int
	}{
		{1, 2},
		{50, 2},
		{99, 2},
		{100, 3},
		{500, 3},
		{999, 3},
		{1000, 4},
		{10000, 4},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PadWidth(tt.total), "total=%d", tt.total)
	}
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "00", FormatID(0, 50))
	assert.Equal(t, "007", FormatID(7, 100))
	assert.Equal(t, "099", FormatID(99, 100))
	assert.Equal(t, "0123", FormatID(123, 1000))
}

func TestGenerateBoard(t *testing.T) {
	board := GenerateBoard(100)

	require.Len(t, board, 100)
	assert.Equal(t, "000", board[0].ID)
	assert.Equal(t, "099", board[99].ID)
	for _, ticket := range board {
		assert.Equal(t, StatusAvailable, ticket.Status)
		assert.Nil(t, ticket.Participant)
		assert.Empty(t, ticket.SellerID)
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    Status
		wantErr bool
	}{
		{"AVAILABLE", StatusAvailable, false},
		{"REVISANDO", StatusReviewing, false},
		{"PAGADO", StatusPaid, false},
		{"APARTADO", StatusReviewing, false}, // legacy held alias
		{"SOLD", "", true},
		{"", "", true},
		{"available", "", true},
	}

	for _, tt := range tests {
		got, err := ParseStatus(tt.raw)
		if tt.wantErr {
			assert.Error(t, err, "raw=%q", tt.raw)
			continue
		}
		require.NoError(t, err, "raw=%q", tt.raw)
		assert.Equal(t, tt.want, got, "raw=%q", tt.raw)
	}
}

func TestTicketValidate(t *testing.T) {
	participant := &Participant{Name: "Ana", Phone: "555-0001", Timestamp: 1}

	tests := []struct {
		name    string
		ticket  Ticket
		wantErr error
	}{
		{"available clean", Ticket{ID: "000", Status: StatusAvailable}, nil},
		{"held with participant", Ticket{ID: "001", Status: StatusReviewing, Participant: participant}, nil},
		{"paid with participant and seller", Ticket{ID: "002", Status: StatusPaid, Participant: participant, SellerID: "s1"}, nil},
		{"held without participant", Ticket{ID: "003", Status: StatusReviewing}, ErrParticipantRequired},
		{"available with participant", Ticket{ID: "004", Status: StatusAvailable, Participant: participant}, ErrParticipantOnFree},
		{"available with seller", Ticket{ID: "005", Status: StatusAvailable, SellerID: "s1"}, ErrSellerWithoutSale},
		{"bad status", Ticket{ID: "006", Status: "SOLD"}, ErrInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ticket.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPatchApply(t *testing.T) {
	participant := &Participant{Name: "Ana", Phone: "555-0001", Timestamp: 1}

	t.Run("reserve", func(t *testing.T) {
		ticket := Ticket{ID: "001", Status: StatusAvailable}
		status := StatusReviewing
		seller := "s1"
		Patch{Status: &status, Participant: participant, SellerID: &seller}.Apply(&ticket)

		assert.Equal(t, StatusReviewing, ticket.Status)
		assert.Equal(t, participant, ticket.Participant)
		assert.Equal(t, "s1", ticket.SellerID)
		assert.NoError(t, ticket.Validate())
	})

	t.Run("confirm payment keeps participant", func(t *testing.T) {
		ticket := Ticket{ID: "001", Status: StatusReviewing, Participant: participant, SellerID: "s1"}
		status := StatusPaid
		Patch{Status: &status}.Apply(&ticket)

		assert.Equal(t, StatusPaid, ticket.Status)
		assert.Equal(t, participant, ticket.Participant)
		assert.Equal(t, "s1", ticket.SellerID)
	})

	t.Run("release clears attribution", func(t *testing.T) {
		ticket := Ticket{ID: "001", Status: StatusPaid, Participant: participant, SellerID: "s1"}
		status := StatusAvailable
		Patch{Status: &status}.Apply(&ticket)

		assert.Equal(t, StatusAvailable, ticket.Status)
		assert.Nil(t, ticket.Participant)
		assert.Empty(t, ticket.SellerID)
		assert.NoError(t, ticket.Validate())
	})

	t.Run("nil fields leave ticket unchanged", func(t *testing.T) {
		ticket := Ticket{ID: "001", Status: StatusReviewing, Participant: participant}
		Patch{}.Apply(&ticket)

		assert.Equal(t, StatusReviewing, ticket.Status)
		assert.Equal(t, participant, ticket.Participant)
	})
}
