package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tradeScope/internal/gamma"
	"tradeScope/internal/model"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	event, err := s.store.GetEventBySlug(r.Context(), slug)
	if err != nil {
		s.internalError(w, "get event", err)
		return
	}
	if event == nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleListEventMarkets(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	markets, err := s.store.ListMarketsForEvent(r.Context(), slug)
	if err != nil {
		s.internalError(w, "list markets", err)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// marketView is the identity/addressing subset returned by GET /markets/{slug}.
type marketView struct {
	MarketID        int64  `json:"market_id"`
	Slug            string `json:"slug"`
	ConditionID     string `json:"condition_id"`
	QuestionID      string `json:"question_id"`
	Oracle          string `json:"oracle"`
	CollateralToken string `json:"collateral_token"`
	YesTokenID      string `json:"yes_token_id"`
	NoTokenID       string `json:"no_token_id"`
	Status          string `json:"status"`
}

func (s *Server) handleGetMarket(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	market, err := s.store.GetMarketBySlug(r.Context(), slug)
	if err != nil {
		s.internalError(w, "get market", err)
		return
	}
	if market == nil {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}
	writeJSON(w, http.StatusOK, marketView{
		MarketID:        market.ID,
		Slug:            market.Slug,
		ConditionID:     market.ConditionID,
		QuestionID:      market.QuestionID,
		Oracle:          market.Oracle,
		CollateralToken: market.CollateralToken,
		YesTokenID:      market.YesTokenID,
		NoTokenID:       market.NoTokenID,
		Status:          market.Status,
	})
}

func (s *Server) handleListMarketTrades(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	query, err := parseTradeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	market, err := s.store.GetMarketBySlug(r.Context(), slug)
	if err != nil {
		s.internalError(w, "get market", err)
		return
	}
	if market == nil {
		writeError(w, http.StatusNotFound, "market not found")
		return
	}

	trades, err := s.store.ListTradesForMarket(r.Context(), market.ID, query)
	if err != nil {
		s.internalError(w, "list trades", err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleListTokenTrades(w http.ResponseWriter, r *http.Request) {
	// Trades are stored under canonical decimal token ids; accept hex or
	// decimal in the path and canonicalize before querying.
	tokenID := gamma.NormalizeTokenID(mux.Vars(r)["token_id"])

	query, err := parseTradeQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trades, err := s.store.ListTradesForToken(r.Context(), tokenID, query)
	if err != nil {
		s.internalError(w, "list trades", err)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseTradeQuery reads limit (1-1000, default 100), cursor offset (>= 0,
// default 0) and the optional inclusive fromBlock/toBlock filters.
func parseTradeQuery(r *http.Request) (model.TradeQuery, error) {
	q := model.TradeQuery{Limit: defaultLimit}
	values := r.URL.Query()

	if raw := values.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxLimit {
			return q, fmt.Errorf("limit must be an integer between 1 and %d", maxLimit)
		}
		q.Limit = limit
	}
	if raw := values.Get("cursor"); raw != "" {
		cursor, err := strconv.Atoi(raw)
		if err != nil || cursor < 0 {
			return q, fmt.Errorf("cursor must be a non-negative integer")
		}
		q.Offset = cursor
	}
	if raw := values.Get("fromBlock"); raw != "" {
		block, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("fromBlock must be a non-negative integer")
		}
		q.FromBlock = &block
	}
	if raw := values.Get("toBlock"); raw != "" {
		block, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return q, fmt.Errorf("toBlock must be a non-negative integer")
		}
		q.ToBlock = &block
	}
	return q, nil
}
