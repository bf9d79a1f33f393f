package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/jwhyun/matchgate/params"
	"github.com/jwhyun/matchgate/pkg/engine"
	"github.com/jwhyun/matchgate/pkg/gateway"
	"github.com/jwhyun/matchgate/pkg/storage"
)

// Server exposes order submission, market queries, and the market data
// stream.
type Server struct {
	cfg      params.Config
	pipeline *gateway.Pipeline
	books    *engine.BookRegistry
	journal  *storage.TradeJournal
	hub      *Hub
	router   *mux.Router
	httpSrv  *http.Server
	log      *zap.SugaredLogger
}

func NewServer(cfg params.Config, pipeline *gateway.Pipeline, books *engine.BookRegistry, journal *storage.TradeJournal, hub *Hub, log *zap.SugaredLogger) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
		books:    books,
		journal:  journal,
		hub:      hub,
		router:   mux.NewRouter(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Order submission
	s.router.HandleFunc("/orders", s.handleSubmitOrders).Methods("POST")

	// Market endpoints
	s.router.HandleFunc("/markets/{symbol}/orderbook", s.handleGetOrderbook).Methods("GET")
	s.router.HandleFunc("/markets/{symbol}/trades", s.handleGetTrades).Methods("GET")

	// Market data stream
	s.router.HandleFunc("/ws/marketdata", s.handleMarketData)

	// Operational endpoints
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Start serves until ListenAndServe fails or Shutdown is called.
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{Addr: addr, Handler: s.Handler()}
	s.log.Infow("server starting", "addr", addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and drains in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

// handleSubmitOrders accepts one order object or an array of them.
func (s *Server) handleSubmitOrders(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	reqs, err := decodeOrders(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON payload", err.Error())
		return
	}
	if len(reqs) == 0 {
		respondError(w, http.StatusBadRequest, "empty order payload", "")
		return
	}

	result := s.pipeline.Submit(reqs)
	if result.Overloaded {
		respondStatusJSON(w, http.StatusTooManyRequests, OverloadedResponse{
			Error:    "overloaded",
			Accepted: result.Accepted,
			Rejected: result.Rejected,
		})
		return
	}

	respondJSON(w, SubmitResponse{
		Status:   "queued",
		Count:    result.Accepted,
		Rejected: result.Rejected,
	})
}

// decodeOrders treats a single object as a one-element sequence.
func decodeOrders(body []byte) ([]gateway.OrderRequest, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []gateway.OrderRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return nil, err
		}
		return reqs, nil
	}
	var req gateway.OrderRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, err
	}
	return []gateway.OrderRequest{req}, nil
}

func (s *Server) handleGetOrderbook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	depth := s.cfg.MarketData.SnapshotDepth
	if q := r.URL.Query().Get("depth"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			depth = n
		}
	}

	snap, ok := s.books.Snapshot(symbol, depth)
	if !ok {
		respondError(w, http.StatusNotFound, "orderbook not found", "")
		return
	}
	respondJSON(w, snap)
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	trades := []engine.Trade{}
	if s.journal != nil {
		trades = s.journal.Recent(symbol, limit)
	}
	respondJSON(w, TradesResponse{Symbol: symbol, Trades: trades})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{
		Status:  "ok",
		Pending: s.pipeline.Pending(),
		Clients: s.hub.Len(),
	})
}

// ==============================
// Helper Functions
// ==============================

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondStatusJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondStatusJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
