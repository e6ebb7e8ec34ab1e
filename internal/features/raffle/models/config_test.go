package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeDefaults(t *testing.T) {
	merged := RaffleConfig{}.MergeDefaults()
	assert.Equal(t, Default(), merged)

	partial := RaffleConfig{
		DrawTitle:      "RIFA NAVIDEÑA",
		TicketPriceUSD: 25,
	}.MergeDefaults()

	assert.Equal(t, "RIFA NAVIDEÑA", partial.DrawTitle)
	assert.Equal(t, 25.0, partial.TicketPriceUSD)
	assert.Equal(t, Default().TickerMessage, partial.TickerMessage)
	assert.Equal(t, Default().CommissionPct, partial.CommissionPct)
	require.NotNil(t, partial.Winners, "winners must serialize as an array, not null")
	require.NotNil(t, partial.Prizes)
}

func TestCommissionRate(t *testing.T) {
	cfg := RaffleConfig{CommissionPct: 15}
	assert.InDelta(t, 0.15, cfg.CommissionRate(), 1e-9)
}

func TestDrawTime(t *testing.T) {
	cfg := RaffleConfig{DrawTimestamp: "2026-12-31T20:00"}
	parsed := cfg.DrawTime()
	assert.Equal(t, 2026, parsed.Year())
	assert.Equal(t, time.December, parsed.Month())
	assert.Equal(t, 20, parsed.Hour())

	assert.True(t, RaffleConfig{}.DrawTime().IsZero())
	assert.True(t, RaffleConfig{DrawTimestamp: "soon"}.DrawTime().IsZero())
}

func TestCountdownAt(t *testing.T) {
	cfg := RaffleConfig{DrawTimestamp: "2026-12-31T20:00"}

	now := time.Date(2026, 12, 30, 18, 30, 15, 0, time.UTC)
	cd := cfg.CountdownAt(now)
	assert.False(t, cd.Expired)
	assert.Equal(t, 1, cd.Days)
	assert.Equal(t, 1, cd.Hours)
	assert.Equal(t, 29, cd.Mins)
	assert.Equal(t, 45, cd.Secs)

	cd = cfg.CountdownAt(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, cd.Expired)

	cd = RaffleConfig{}.CountdownAt(now)
	assert.True(t, cd.Expired, "unset draw date reads as expired")
}
