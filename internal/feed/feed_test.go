package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventDecodeRow(t *testing.T) {
	event := Event{
		Table: TableTickets,
		Type:  EventUpdate,
		Row:   json.RawMessage(`{"id":"042","status":"PAGADO"}`),
	}

	var row struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, event.DecodeRow(&row))
	assert.Equal(t, "042", row.ID)
	assert.Equal(t, "PAGADO", row.Status)

	bad := Event{Row: json.RawMessage(`{broken`)}
	assert.Error(t, bad.DecodeRow(&row))
}

func TestDispatchRoutesByTable(t *testing.T) {
	sub := &Subscriber{handlers: make(map[string]Handler)}

	var got []Event
	sub.Handle(TableTickets, func(event Event) { got = append(got, event) })

	ticketPayload, err := json.Marshal(Event{Table: TableTickets, Type: EventInsert, Row: json.RawMessage(`{"id":"001"}`)})
	require.NoError(t, err)
	sellerPayload, err := json.Marshal(Event{Table: TableSellers, Type: EventInsert, Row: json.RawMessage(`{"id":"s1"}`)})
	require.NoError(t, err)

	sub.dispatch(string(ticketPayload))
	sub.dispatch(string(sellerPayload)) // no handler registered, dropped
	sub.dispatch("{not json")           // malformed, dropped

	require.Len(t, got, 1)
	assert.Equal(t, TableTickets, got[0].Table)
	assert.Equal(t, EventInsert, got[0].Type)
}

func TestChannelNaming(t *testing.T) {
	assert.Equal(t, "feed:tickets", channelFor(TableTickets))
	assert.Equal(t, "feed:sellers", channelFor(TableSellers))
	assert.Equal(t, "feed:raffle_config", channelFor(TableConfig))
}
