package gamma

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"tradeScope/internal/model"
)

// NormalizeTokenID converts any provider-shaped token id into canonical
// decimal-string form: 0x-prefixed strings parse as base 16, digit strings
// re-encode as decimal (dropping leading zeros), anything else passes through
// verbatim after trimming quotes and whitespace. Empty values yield "".
// Idempotent: NormalizeTokenID(NormalizeTokenID(x)) == NormalizeTokenID(x).
func NormalizeTokenID(raw any) string {
	if raw == nil {
		return ""
	}

	var value string
	switch v := raw.(type) {
	case string:
		value = v
	case json.Number:
		value = v.String()
	default:
		value = fmt.Sprintf("%v", v)
	}

	value = strings.TrimSpace(value)
	value = strings.Trim(value, `"'`)
	if value == "" {
		return ""
	}

	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		if n, ok := new(big.Int).SetString(value[2:], 16); ok {
			return n.String()
		}
		return value
	}
	if isDigits(value) {
		if n, ok := new(big.Int).SetString(value, 10); ok {
			return n.String()
		}
	}
	return value
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// NormalizeEvent maps a provider event object into the canonical shape,
// trying an ordered list of alternate field names per logical field.
// Booleans default active=true, closed=false, negRisk=false when absent.
func NormalizeEvent(event map[string]any) model.Event {
	return model.Event{
		EventID:     asString(pick(event, "id", "eventId")),
		Slug:        asString(pick(event, "slug")),
		Title:       asString(pick(event, "title", "question", "name")),
		Description: asString(pick(event, "description")),
		NegRisk:     asBool(pick(event, "negRisk", "enableNegRisk", "neg_risk"), false),
		Active:      asBool(pick(event, "active"), true),
		Closed:      asBool(pick(event, "closed"), false),
		CreatedAt:   asString(pick(event, "createdAt", "created_at")),
	}
}

// NormalizeMarket maps a provider market object into the canonical shape.
// Partial/placeholder market objects occur in provider feeds, so a missing
// slug or condition id returns ok=false (skip), never an error.
func NormalizeMarket(market map[string]any, eventRowID int64, eventNegRisk bool, defaultCollateral string) (model.Market, bool) {
	slug := asString(pick(market, "slug", "marketSlug"))
	conditionID := asString(pick(market, "conditionId", "condition_id"))
	if slug == "" || conditionID == "" {
		return model.Market{}, false
	}

	outcomes := parseOutcomes(pick(market, "outcomes"))
	tokenIDs := parseClobTokenIDs(pick(market, "clobTokenIds", "clob_token_ids"))

	var yesTokenID, noTokenID string
	if len(tokenIDs) >= 2 && len(outcomes) >= 2 {
		n := len(outcomes)
		if len(tokenIDs) < n {
			n = len(tokenIDs)
		}
		for i := 0; i < n; i++ {
			switch strings.ToLower(strings.TrimSpace(outcomes[i])) {
			case "yes":
				yesTokenID = tokenIDs[i]
			case "no":
				noTokenID = tokenIDs[i]
			}
		}
	}
	if yesTokenID == "" && len(tokenIDs) >= 1 {
		yesTokenID = tokenIDs[0]
	}
	if noTokenID == "" && len(tokenIDs) >= 2 {
		noTokenID = tokenIDs[1]
	}

	collateral := asString(pick(market, "collateralToken", "collateral_token"))
	if collateral == "" {
		collateral = defaultCollateral
	}

	return model.Market{
		EventID:         eventRowID,
		Slug:            slug,
		Title:           asString(pick(market, "question", "title", "name")),
		Description:     asString(pick(market, "description")),
		ConditionID:     conditionID,
		QuestionID:      asString(pick(market, "questionId", "question_id")),
		Oracle:          asString(pick(market, "oracle", "oracleAddress", "umaResolutionContractAddress", "resolutionSource")),
		CollateralToken: collateral,
		YesTokenID:      yesTokenID,
		NoTokenID:       noTokenID,
		EnableNegRisk:   asBool(pick(market, "enableNegRisk", "negRisk", "enable_neg_risk"), false) || eventNegRisk,
		Status:          detectStatus(market),
		CreatedAt:       asString(pick(market, "createdAt", "created_at")),
	}, true
}

// detectStatus derives market status: an explicit status/state field wins,
// else the closed flag, else the active flag (default true), else unknown.
func detectStatus(market map[string]any) string {
	if status := asString(pick(market, "status", "state")); status != "" {
		return status
	}
	if asBool(pick(market, "closed"), false) {
		return model.StatusClosed
	}
	if asBool(pick(market, "active"), true) {
		return model.StatusActive
	}
	return model.StatusUnknown
}

// parseClobTokenIDs accepts a JSON-encoded string, a literal list, or a
// single scalar, normalizing every id and dropping empties.
func parseClobTokenIDs(raw any) []string {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		value := strings.TrimSpace(v)
		if strings.HasPrefix(value, "[") {
			var parsed []any
			if err := json.Unmarshal([]byte(value), &parsed); err == nil {
				return normalizeAll(parsed)
			}
		}
		if value == "" {
			return nil
		}
		if id := NormalizeTokenID(value); id != "" {
			return []string{id}
		}
		return nil
	case []any:
		return normalizeAll(v)
	default:
		if id := NormalizeTokenID(raw); id != "" {
			return []string{id}
		}
		return nil
	}
}

func normalizeAll(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if id := NormalizeTokenID(item); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// parseOutcomes accepts a literal list or a JSON-encoded string list.
func parseOutcomes(raw any) []string {
	switch v := raw.(type) {
	case string:
		var parsed []any
		if err := json.Unmarshal([]byte(v), &parsed); err != nil {
			return nil
		}
		return stringifyAll(parsed)
	case []any:
		return stringifyAll(v)
	default:
		return nil
	}
}

func stringifyAll(items []any) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, asString(item))
	}
	return out
}

// pick returns the first present, non-nil value among aliased field names.
func pick(m map[string]any, keys ...string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asBool(v any, def bool) bool {
	switch b := v.(type) {
	case nil:
		return def
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no", "":
			return false
		}
		return def
	case json.Number:
		return b.String() != "0"
	default:
		return def
	}
}
