package models

// DefaultCommissionRate is the fraction used when a seller has no customized
// rate. A seller whose rate equals the default falls back to the global
// commission percentage from the raffle config.
const DefaultCommissionRate = 0.1

// OrganicSellerName labels sales whose seller reference no longer resolves
// (the seller was deleted) or that never had one.
const OrganicSellerName = "Organic"

// Seller is a distributor who sells tickets for commission and signs in with
// a personal PIN.
type Seller struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	PIN            string  `json:"pin"`
	Active         bool    `json:"active"`
	CommissionRate float64 `json:"commission_rate"`
}

// HasCustomRate reports whether the seller's own commission rate overrides
// the global percentage.
func (s Seller) HasCustomRate() bool {
	return s.CommissionRate != 0 && s.CommissionRate != DefaultCommissionRate
}

// EffectiveRate resolves the commission fraction for this seller given the
// global rate.
func (s Seller) EffectiveRate(globalRate float64) float64 {
	if s.HasCustomRate() {
		return s.CommissionRate
	}
	return globalRate
}

// Stats aggregates a seller's sales from the ticket board.
type Stats struct {
	SellerID   string  `json:"seller_id"`
	Count      int     `json:"count"`
	Paid       int     `json:"paid"`
	Pending    int     `json:"pending"`
	TotalSales float64 `json:"total_sales"`
	Commission float64 `json:"commission"`
	RatePct    float64 `json:"rate_pct"`
}

// Application is a request to become a seller, reviewed by the administrator.
type Application struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	IDNumber    string `json:"id_number"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	FamilyPhone string `json:"family_phone"`
	CreatedAt   string `json:"created_at"`
}
