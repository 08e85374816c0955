// Package api serves the read-only query API over the persisted store.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tradeScope/internal/model"
)

// Store is the read-only persistence surface the API needs. Satisfied by
// *postgres.Store.
type Store interface {
	GetEventBySlug(ctx context.Context, slug string) (*model.Event, error)
	ListMarketsForEvent(ctx context.Context, eventSlug string) ([]model.Market, error)
	GetMarketBySlug(ctx context.Context, slug string) (*model.Market, error)
	ListTradesForMarket(ctx context.Context, marketID int64, q model.TradeQuery) ([]model.Trade, error)
	ListTradesForToken(ctx context.Context, tokenID string, q model.TradeQuery) ([]model.Trade, error)
}

// Server is the HTTP query API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	store      Store
	logger     *zap.Logger
}

// NewServer builds the API server and registers its routes.
func NewServer(addr string, store Store, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		router: mux.NewRouter(),
		store:  store,
		logger: logger,
	}
	s.routes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.loggingMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/events/{slug}", s.handleGetEvent).Methods(http.MethodGet)
	s.router.HandleFunc("/events/{slug}/markets", s.handleListEventMarkets).Methods(http.MethodGet)
	s.router.HandleFunc("/markets/{slug}", s.handleGetMarket).Methods(http.MethodGet)
	s.router.HandleFunc("/markets/{slug}/trades", s.handleListMarketTrades).Methods(http.MethodGet)
	s.router.HandleFunc("/tokens/{token_id}/trades", s.handleListTokenTrades).Methods(http.MethodGet)
}

// Router exposes the handler tree, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// ListenAndServe blocks serving requests until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.logger.Info("query api listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}
