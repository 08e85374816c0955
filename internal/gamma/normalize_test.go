package gamma

import (
	"encoding/json"
	"reflect"
	"testing"

	"tradeScope/internal/model"
)

func TestNormalizeTokenID(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"decimal string", "555", "555"},
		{"leading zeros dropped", "000555", "555"},
		{"hex lowercase", "0x22b", "555"},
		{"hex uppercase prefix", "0X22B", "555"},
		{"quoted", `"555"`, "555"},
		{"single quoted with space", " '555' ", "555"},
		{"json number", json.Number("555"), "555"},
		{"huge uint256", "21742633143463906290569050155826241533067272736897614950488156847949938836455", "21742633143463906290569050155826241533067272736897614950488156847949938836455"},
		{"non-numeric passes through", "not-a-token", "not-a-token"},
		{"invalid hex passes through", "0xzz", "0xzz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeTokenID(tc.in); got != tc.want {
				t.Fatalf("NormalizeTokenID(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeTokenIDIdempotent(t *testing.T) {
	inputs := []any{"0x22b", "000555", `"123"`, "not-a-token", json.Number("987654321")}
	for _, in := range inputs {
		once := NormalizeTokenID(in)
		if twice := NormalizeTokenID(once); twice != once {
			t.Fatalf("not idempotent for %v: %q then %q", in, once, twice)
		}
	}
}

func TestNormalizeTokenIDHexDecimalEquivalence(t *testing.T) {
	if hex, dec := NormalizeTokenID("0xff"), NormalizeTokenID("255"); hex != dec {
		t.Fatalf("hex %q != decimal %q", hex, dec)
	}
}

func TestNormalizeEvent(t *testing.T) {
	event := map[string]any{
		"id":          json.Number("9001"),
		"slug":        "us-election-2026",
		"title":       "US election 2026",
		"description": "Who wins",
		"negRisk":     true,
		"closed":      true,
		"createdAt":   "2026-01-02T03:04:05",
	}
	got := NormalizeEvent(event)
	want := model.Event{
		EventID:     "9001",
		Slug:        "us-election-2026",
		Title:       "US election 2026",
		Description: "Who wins",
		NegRisk:     true,
		Active:      true,
		Closed:      true,
		CreatedAt:   "2026-01-02T03:04:05",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeEvent = %+v, want %+v", got, want)
	}
}

func TestNormalizeEventAliases(t *testing.T) {
	event := map[string]any{
		"eventId":       "abc",
		"slug":          "s",
		"question":      "Q?",
		"enableNegRisk": "true",
		"active":        false,
		"created_at":    "2025-12-31T00:00:00",
	}
	got := NormalizeEvent(event)
	if got.EventID != "abc" {
		t.Fatalf("event id = %q", got.EventID)
	}
	if got.Title != "Q?" {
		t.Fatalf("title = %q", got.Title)
	}
	if !got.NegRisk {
		t.Fatal("negRisk alias not picked up")
	}
	if got.Active {
		t.Fatal("explicit active=false ignored")
	}
	if got.CreatedAt != "2025-12-31T00:00:00" {
		t.Fatalf("createdAt = %q", got.CreatedAt)
	}
}

func TestNormalizeMarket(t *testing.T) {
	market := map[string]any{
		"slug":         "will-it-rain",
		"conditionId":  "0xc0ffee",
		"question":     "Will it rain?",
		"questionId":   "0xq",
		"outcomes":     `["Yes", "No"]`,
		"clobTokenIds": `["0x22b", "666"]`,
		"closed":       false,
	}
	got, ok := NormalizeMarket(market, 7, false, "0xusdc")
	if !ok {
		t.Fatal("expected ok")
	}
	if got.EventID != 7 {
		t.Fatalf("event row id = %d", got.EventID)
	}
	if got.YesTokenID != "555" || got.NoTokenID != "666" {
		t.Fatalf("token ids = %q / %q", got.YesTokenID, got.NoTokenID)
	}
	if got.CollateralToken != "0xusdc" {
		t.Fatalf("collateral = %q", got.CollateralToken)
	}
	if got.Status != model.StatusActive {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestNormalizeMarketSkipsPlaceholders(t *testing.T) {
	cases := []struct {
		name   string
		market map[string]any
	}{
		{"missing slug", map[string]any{"conditionId": "0x1"}},
		{"missing condition id", map[string]any{"slug": "s"}},
		{"empty object", map[string]any{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := NormalizeMarket(tc.market, 1, false, ""); ok {
				t.Fatal("placeholder market should be skipped")
			}
		})
	}
}

func TestNormalizeMarketOutcomePairing(t *testing.T) {
	// Label matching wins over position: ["No", "Yes"] maps ids accordingly.
	market := map[string]any{
		"slug":         "s",
		"conditionId":  "c",
		"outcomes":     []any{"No", "Yes"},
		"clobTokenIds": []any{"111", "222"},
	}
	got, ok := NormalizeMarket(market, 1, false, "")
	if !ok {
		t.Fatal("expected ok")
	}
	if got.YesTokenID != "222" || got.NoTokenID != "111" {
		t.Fatalf("token ids = %q / %q", got.YesTokenID, got.NoTokenID)
	}
}

func TestNormalizeMarketPositionalFallback(t *testing.T) {
	// Non-yes/no outcome labels fall back to positional assignment.
	market := map[string]any{
		"slug":         "s",
		"conditionId":  "c",
		"outcomes":     []any{"Over", "Under"},
		"clobTokenIds": []any{"111", "222"},
	}
	got, ok := NormalizeMarket(market, 1, false, "")
	if !ok {
		t.Fatal("expected ok")
	}
	if got.YesTokenID != "111" || got.NoTokenID != "222" {
		t.Fatalf("token ids = %q / %q", got.YesTokenID, got.NoTokenID)
	}
}

func TestNormalizeMarketNegRiskInheritance(t *testing.T) {
	market := map[string]any{"slug": "s", "conditionId": "c"}
	got, ok := NormalizeMarket(market, 1, true, "")
	if !ok {
		t.Fatal("expected ok")
	}
	if !got.EnableNegRisk {
		t.Fatal("event-level neg risk should propagate")
	}
}

func TestParseClobTokenIDs(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want []string
	}{
		{"nil", nil, nil},
		{"json string list", `["0x22b", "666"]`, []string{"555", "666"}},
		{"literal list", []any{"111", json.Number("222")}, []string{"111", "222"}},
		{"scalar string", "0x22b", []string{"555"}},
		{"scalar number", json.Number("777"), []string{"777"}},
		{"empty string", "", nil},
		{"list with empties dropped", []any{"", "111"}, []string{"111"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parseClobTokenIDs(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("parseClobTokenIDs(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestDetectStatus(t *testing.T) {
	cases := []struct {
		name   string
		market map[string]any
		want   string
	}{
		{"explicit status wins", map[string]any{"status": "resolved", "closed": true}, "resolved"},
		{"state alias", map[string]any{"state": "paused"}, "paused"},
		{"closed flag", map[string]any{"closed": true}, model.StatusClosed},
		{"active default", map[string]any{}, model.StatusActive},
		{"explicit inactive", map[string]any{"active": false}, model.StatusUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectStatus(tc.market); got != tc.want {
				t.Fatalf("detectStatus = %q, want %q", got, tc.want)
			}
		})
	}
}
