package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"sarraf/internal/config"
	"sarraf/internal/feed"
	"sarraf/internal/portfolio"
	"sarraf/internal/store"
)

// HTTPServer serves the SPA shell, a small REST surface, and the /ws fan-out
// of everything the three views render. It is the only reader the stores
// need: each subscription rederives and rebroadcasts on change.
type HTTPServer struct {
	cfg      config.Config
	ticker   *store.TickerStore
	snapshot *store.SnapshotStore
	holdings *store.HoldingsStore
	feed     feed.Feed
	hub      *hub
	log      *slog.Logger
	mux      *http.ServeMux
}

func NewHTTPServer(cfg config.Config, ticker *store.TickerStore, snapshot *store.SnapshotStore, holdings *store.HoldingsStore, fd feed.Feed, logger *slog.Logger) *HTTPServer {
	s := &HTTPServer{
		cfg:      cfg,
		ticker:   ticker,
		snapshot: snapshot,
		holdings: holdings,
		feed:     fd,
		hub:      newHub(logger),
		log:      logger,
		mux:      http.NewServeMux(),
	}
	s.routes()

	ticker.Subscribe(s.BroadcastTicker)
	snapshot.Subscribe(func() {
		s.BroadcastMarket()
		s.BroadcastPortfolio() // any price change moves the valuation
	})
	holdings.Subscribe(s.BroadcastPortfolio)

	go s.hub.run()
	return s
}

func (s *HTTPServer) Router() http.Handler { return s.mux }

// --------- WS broadcasts ----------

func (s *HTTPServer) BroadcastStatus() {
	s.hub.send("status", map[string]any{
		"connected":  s.feed.Connected(),
		"lastUpdate": s.ticker.LastUpdate(),
	})
}

func (s *HTTPServer) BroadcastTicker() {
	s.hub.send("ticker", map[string]any{
		"tickers":    s.ticker.Entries(),
		"lastUpdate": s.ticker.LastUpdate(),
	})
}

func (s *HTTPServer) BroadcastMarket() {
	s.hub.send("market", map[string]any{
		"items": s.snapshot.Entries(),
	})
}

func (s *HTTPServer) BroadcastPortfolio() {
	s.hub.send("portfolio", s.portfolioPayload())
}

func (s *HTTPServer) BroadcastError(msg string) {
	s.hub.send("error", map[string]string{"message": msg})
}

func (s *HTTPServer) portfolioPayload() map[string]any {
	holdings := s.holdings.Holdings()
	entries := s.snapshot.Entries()
	valued, agg := portfolio.Valuate(holdings, entries)
	return map[string]any{
		"holdings":           valued,
		"totalValue":         agg.TotalValue,
		"totalChangePercent": agg.ChangePercent,
		"distribution":       portfolio.Distribution(holdings, entries),
	}
}

// --------- Routes ----------

func (s *HTTPServer) routes() {
	// SPA
	s.mux.HandleFunc("/", s.serveIndex)
	s.mux.HandleFunc("/index.html", s.serveIndex)
	s.mux.HandleFunc("/app.js", s.serveAppJS)
	s.mux.HandleFunc("/styles.css", s.serveCSS)

	// WS
	s.mux.HandleFunc("/ws", s.hub.serveWS)

	// API
	s.mux.HandleFunc("/api/health", s.apiHealth)
	s.mux.HandleFunc("/api/ticker", s.apiTicker)
	s.mux.HandleFunc("/api/market", s.apiMarket)
	s.mux.HandleFunc("/api/portfolio", s.apiPortfolio)
	s.mux.HandleFunc("/api/portfolio/add", s.apiAdd)
	s.mux.HandleFunc("/api/portfolio/remove", s.apiRemove)
}

func (s *HTTPServer) serveIndex(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/index.html")
	if err != nil {
		http.Error(w, "index missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveAppJS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/app.js")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) serveCSS(w http.ResponseWriter, r *http.Request) {
	b, err := os.ReadFile("./web/styles.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(b)
}

func (s *HTTPServer) apiHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":        true,
		"connected": s.feed.Connected(),
	})
}

func (s *HTTPServer) apiTicker(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"tickers":    s.ticker.Entries(),
		"lastUpdate": s.ticker.LastUpdate(),
	})
}

func (s *HTTPServer) apiMarket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"items":     s.snapshot.Entries(),
		"connected": s.feed.Connected(),
	})
}

func (s *HTTPServer) apiPortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.portfolioPayload())
}

type mutateRequest struct {
	Code   string  `json:"code"`
	Amount float64 `json:"amount"`
}

func (s *HTTPServer) apiAdd(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.holdings.Add)
}

func (s *HTTPServer) apiRemove(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.holdings.Remove)
}

func (s *HTTPServer) mutate(w http.ResponseWriter, r *http.Request, op func(string, float64) error) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if err := op(strings.TrimSpace(req.Code), req.Amount); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "holdings": s.holdings.Holdings()})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
