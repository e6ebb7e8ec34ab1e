package models

import (
	"time"
)

// DrawTimestampLayout is the wall-clock format the config stores, matching
// what datetime-local form inputs produce.
const DrawTimestampLayout = "2006-01-02T15:04"

// Prize is one item on the prize list.
type Prize struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Subtitle string `json:"subtitle"`
	Image    string `json:"image"`
}

// Winner is a published draw result.
type Winner struct {
	Number string `json:"number"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Prize  string `json:"prize"`
}

// RaffleConfig is the shared singleton configuration row (id=1). All clients
// read and write the same row; concurrent edits are last-write-wins.
type RaffleConfig struct {
	DrawTitle        string   `json:"draw_title"`
	TickerMessage    string   `json:"ticker_message"`
	Prizes           []Prize  `json:"prizes"`
	TicketPriceUSD   float64  `json:"ticket_price_usd"`
	TicketPriceLocal float64  `json:"ticket_price_local"`
	DrawTimestamp    string   `json:"draw_timestamp"`
	WhatsApp         string   `json:"whatsapp"`
	CommissionPct    float64  `json:"commission_pct"`
	AlertMessage     string   `json:"alert_message,omitempty"`
	Winners          []Winner `json:"winners"`
}

// Default returns the configuration used until an administrator saves one,
// and the fallback for fields a stored row is missing.
func Default() RaffleConfig {
	return RaffleConfig{
		DrawTitle:        "GRAN RIFA",
		TickerMessage:    "La suerte te espera hoy",
		TicketPriceUSD:   10,
		TicketPriceLocal: 360,
		DrawTimestamp:    "2026-12-31T20:00",
		WhatsApp:         "584120000000",
		CommissionPct:    10,
		Winners:          []Winner{},
		Prizes:           []Prize{},
	}
}

// MergeDefaults fills zero-valued fields from the default config, so a row
// written by an older client still reads as a complete configuration.
func (c RaffleConfig) MergeDefaults() RaffleConfig {
	def := Default()
	if c.DrawTitle == "" {
		c.DrawTitle = def.DrawTitle
	}
	if c.TickerMessage == "" {
		c.TickerMessage = def.TickerMessage
	}
	if c.TicketPriceUSD == 0 {
		c.TicketPriceUSD = def.TicketPriceUSD
	}
	if c.TicketPriceLocal == 0 {
		c.TicketPriceLocal = def.TicketPriceLocal
	}
	if c.DrawTimestamp == "" {
		c.DrawTimestamp = def.DrawTimestamp
	}
	if c.WhatsApp == "" {
		c.WhatsApp = def.WhatsApp
	}
	if c.CommissionPct == 0 {
		c.CommissionPct = def.CommissionPct
	}
	if c.Winners == nil {
		c.Winners = []Winner{}
	}
	if c.Prizes == nil {
		c.Prizes = []Prize{}
	}
	return c
}

// CommissionRate is the global commission as a fraction.
func (c RaffleConfig) CommissionRate() float64 {
	return c.CommissionPct / 100
}

// DrawTime parses the configured draw timestamp. The zero time is returned
// when the field is unset or malformed.
func (c RaffleConfig) DrawTime() time.Time {
	t, err := time.Parse(DrawTimestampLayout, c.DrawTimestamp)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Countdown is the remaining time to the draw, precomputed for display.
type Countdown struct {
	Days    int  `json:"days"`
	Hours   int  `json:"hours"`
	Mins    int  `json:"mins"`
	Secs    int  `json:"secs"`
	Expired bool `json:"expired"`
}

// CountdownAt computes the countdown against the given clock.
func (c RaffleConfig) CountdownAt(now time.Time) Countdown {
	target := c.DrawTime()
	if target.IsZero() {
		return Countdown{Expired: true}
	}

	diff := target.Sub(now)
	if diff <= 0 {
		return Countdown{Expired: true}
	}

	return Countdown{
		Days:  int(diff / (24 * time.Hour)),
		Hours: int(diff % (24 * time.Hour) / time.Hour),
		Mins:  int(diff % time.Hour / time.Minute),
		Secs:  int(diff % time.Minute / time.Second),
	}
}
