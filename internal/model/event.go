package model

// Event is an off-chain market group discovered from the metadata service.
// Slug is the idempotency key: upserts never change it.
type Event struct {
	ID          int64  `json:"id"`
	EventID     string `json:"event_id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	NegRisk     bool   `json:"neg_risk"`
	Active      bool   `json:"active"`
	Closed      bool   `json:"closed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}
