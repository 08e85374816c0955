package model

// Market statuses derived during normalization. The provider may also supply
// an arbitrary status string which is stored verbatim.
const (
	StatusActive  = "active"
	StatusClosed  = "closed"
	StatusUnknown = "unknown"
)

// Market is one binary outcome market belonging to at most one Event.
// YesTokenID and NoTokenID are canonical decimal strings; once known, a
// token id resolves to at most one market.
type Market struct {
	ID              int64  `json:"id"`
	EventID         int64  `json:"event_id"`
	Slug            string `json:"slug"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	ConditionID     string `json:"condition_id"`
	QuestionID      string `json:"question_id"`
	Oracle          string `json:"oracle"`
	CollateralToken string `json:"collateral_token"`
	YesTokenID      string `json:"yes_token_id"`
	NoTokenID       string `json:"no_token_id"`
	EnableNegRisk   bool   `json:"enable_neg_risk"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
