// Package server exposes a game over websockets and HTTP. Clients send
// commands; every committed state is broadcast back to all of them. The
// HTTP API also answers stateless move requests, leaderboard queries and
// benchmarks.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/tilecraft/slide/autoplay"
	"github.com/tilecraft/slide/benchmark"
	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/bot"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/search"
	"github.com/tilecraft/slide/store"
)

const (
	maxBodyBytes = 64 << 10
	// MaxBenchmarkGames bounds a single HTTP benchmark request.
	MaxBenchmarkGames = 1000
)

var errNothingToUndo = errors.New("nothing to undo")

type Options struct {
	Game *game.Game
	// Mover drives autonomous play of Game.
	Mover autoplay.Mover
	// Searcher answers POST /api/v1/move.
	Searcher    bot.Searcher
	MoveTimeout time.Duration
	// Store may be nil; the leaderboard endpoints then report 503.
	Store *store.Store
	// Search is the base configuration for benchmarks.
	Search search.Options
}

type Server struct {
	game   *game.Game
	player *autoplay.Player
	bot    *bot.Bot
	store  *store.Store
	search search.Options
	hub    *Hub

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
}

func New(opts Options) *Server {
	s := &Server{
		game:   opts.Game,
		player: autoplay.NewPlayer(opts.Game, opts.Mover),
		bot:    bot.NewBot(opts.Searcher, opts.MoveTimeout),
		store:  opts.Store,
		search: opts.Search,
		hub:    NewHub(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.unsubscribe = s.game.Subscribe(func(snap game.Snapshot) {
		if !s.hub.Publish("state", stateFromSnapshot(snap)) {
			log.Warn().Uint64("game", snap.Generation).Msg("state-broadcast-dropped")
		}
	})
	return s
}

// Run broadcasts state to websocket clients until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx.Done())
}

// Close stops autonomous play and detaches from the game.
func (s *Server) Close() {
	s.cancel()
	s.game.SetAutoplay(false)
	s.unsubscribe()
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	r.Get("/api/state", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, stateFromSnapshot(s.game.Snapshot()))
	})
	r.Post("/api/v1/move", s.handleMove)
	r.Get("/api/v1/leaderboard", s.handleLeaderboard)
	r.Get("/api/v1/best/{identity}", s.handleBest)
	r.Post("/api/v1/benchmark", s.handleBenchmark)
	r.Get("/ws/", s.serveWS)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ts := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", ww.Status()).
			Str("request-id", middleware.GetReqID(r.Context())).Dur("elapsed", time.Since(ts)).
			Msg("http-request")
	})
}

type tileDTO struct {
	ID     uint64 `json:"id"`
	Value  int    `json:"value"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	New    bool   `json:"isNew"`
	Merged bool   `json:"isMerged"`
}

type stateDTO struct {
	Board    [][]int   `json:"board"`
	Tiles    []tileDTO `json:"tiles"`
	Score    int       `json:"score"`
	Best     int       `json:"bestScore"`
	Moves    int       `json:"moves"`
	Over     bool      `json:"gameOver"`
	Autoplay bool      `json:"isAi"`
	GameID   uint64    `json:"gameId"`
	CanUndo  bool      `json:"canUndo"`
}

func stateFromSnapshot(snap game.Snapshot) stateDTO {
	return stateDTO{
		Board: snap.Board.Grid().Wire(),
		Tiles: lo.Map(snap.Board.Tiles(), func(t board.Tile, _ int) tileDTO {
			return tileDTO{
				ID:     t.ID,
				Value:  t.Value,
				Row:    t.Cell.Row,
				Col:    t.Cell.Col,
				New:    t.JustSpawned,
				Merged: t.JustMerged,
			}
		}),
		Score:    snap.Score,
		Best:     snap.Best,
		Moves:    snap.Moves,
		Over:     snap.Over,
		Autoplay: snap.Autoplay,
		GameID:   snap.Generation,
		CanUndo:  snap.CanUndo,
	}
}

// handleMove answers an autonomous-move request. Problems are reported in
// the response body, as they are over NATS.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, s.bot.Handle(r.Context(), data))
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no results store"})
		return
	}
	limit := store.DefaultLeaderboardSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
			return
		}
		limit = n
	}
	entries, err := s.store.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Err(err).Msg("leaderboard-failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "leaderboard unavailable"})
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no results store"})
		return
	}
	identity := chi.URLParam(r, "identity")
	best, err := s.store.PersonalBest(r.Context(), identity)
	if err != nil {
		log.Err(err).Msg("personal-best-failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "personal best unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identity": identity, "best": best})
}

type benchmarkRequest struct {
	Algorithm  string             `json:"algorithm"`
	Depth      int                `json:"depth"`
	Weights    map[string]float64 `json:"weights"`
	Iterations int                `json:"iterations"`
}

func (s *Server) handleBenchmark(w http.ResponseWriter, r *http.Request) {
	var req benchmarkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if req.Iterations <= 0 {
		req.Iterations = benchmark.DefaultGames
	}
	if req.Iterations > MaxBenchmarkGames || req.Depth > bot.MaxDepth {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "benchmark too large"})
		return
	}
	opts := s.search
	if req.Depth > 0 {
		opts.Depth = req.Depth
	}
	if req.Algorithm != "" {
		opts.Algorithm = search.ParseAlgorithm(req.Algorithm)
	}
	if req.Weights != nil {
		opts.Weights = heuristic.FromWire(req.Weights)
	}
	rep, err := benchmark.Run(r.Context(), benchmark.Options{Games: req.Iterations, Search: opts})
	switch {
	case errors.Is(err, benchmark.ErrAlreadyRunning):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		log.Err(err).Msg("benchmark-failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "benchmark failed"})
	default:
		writeJSON(w, http.StatusOK, rep)
	}
}

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws-upgrade-failed")
		return
	}
	client := newClient(conn)
	s.hub.Register(client)
	client.send("state", stateFromSnapshot(s.game.Snapshot()))

	go func() {
		defer conn.Close()
		if err := client.writeLoop(); err != nil {
			log.Debug().Err(err).Msg("ws-write-ended")
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.hub.Unregister(client)
			return
		}
		var msg wsMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if err := s.command(client, msg); err != nil {
			client.send("error", map[string]string{"error": err.Error()})
		}
	}
}

type movePayload struct {
	Direction string `json:"direction"`
}

type autoPayload struct {
	On *bool `json:"on"`
}

type settingsPayload struct {
	Depth      *int               `json:"depth"`
	Algorithm  *string            `json:"algorithm"`
	Weights    map[string]float64 `json:"weights"`
	IntervalMs *int               `json:"interval_ms"`
}

// command applies one client command. Resulting state reaches every client
// through the game's snapshot broadcast.
func (s *Server) command(c *Client, msg wsMessage) error {
	switch msg.Type {
	case "move":
		var p movePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		d, err := board.ParseDirection(p.Direction)
		if err != nil {
			return err
		}
		s.game.Move(d)
	case "new":
		s.game.NewGame(s.ctx)
	case "undo":
		if !s.game.Undo() {
			return errNothingToUndo
		}
	case "auto":
		var p autoPayload
		if len(msg.Payload) > 0 {
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				return err
			}
		}
		on := !s.game.Snapshot().Autoplay
		if p.On != nil {
			on = *p.On
		}
		if on {
			s.player.Start(s.ctx)
		} else {
			s.game.SetAutoplay(false)
		}
	case "settings":
		var p settingsPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			return err
		}
		set := s.game.UpdateSettings(func(st *game.Settings) {
			if p.Depth != nil && *p.Depth >= 1 && *p.Depth <= bot.MaxDepth {
				st.Depth = *p.Depth
			}
			if p.Algorithm != nil {
				st.Algorithm = search.ParseAlgorithm(*p.Algorithm)
			}
			if p.Weights != nil {
				st.Weights = heuristic.FromWire(p.Weights)
			}
			if p.IntervalMs != nil && *p.IntervalMs >= 0 {
				st.Interval = time.Duration(*p.IntervalMs) * time.Millisecond
			}
		})
		c.send("settings", settingsFrom(set))
	case "request_state":
		c.send("state", stateFromSnapshot(s.game.Snapshot()))
	default:
		return errors.New("unknown command " + strconv.Quote(msg.Type))
	}
	return nil
}

func settingsFrom(set game.Settings) map[string]any {
	return map[string]any{
		"depth":       set.Depth,
		"algorithm":   string(set.Algorithm),
		"weights":     set.Weights.Wire(),
		"interval_ms": set.Interval.Milliseconds(),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
