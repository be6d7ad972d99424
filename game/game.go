// Package game holds the canonical state of one sliding-tile match: the
// board, score, best score, move counter, undo history and the autoplay
// flag. Every move goes through a command arbiter; undo and new-game bypass
// it and clear whatever is still queued.
package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/arbiter"
	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/mechanics"
)

const (
	// HistoryLimit is how many boards undo can walk back through.
	HistoryLimit = 3
	// UndoPenalty is subtracted from the score on every undo.
	UndoPenalty = 2

	submitTimeout = 5 * time.Second
)

// Snapshot is a committed, consistent view of a game.
type Snapshot struct {
	Board      board.Board
	Score      int
	Best       int
	Moves      int
	Over       bool
	Autoplay   bool
	Generation uint64
	CanUndo    bool
}

type Game struct {
	mu         sync.Mutex
	board      board.Board
	score      int
	best       int
	moves      int
	over       bool
	autoplay   bool
	generation uint64
	history    []board.Board
	settings   Settings

	spawner   *mechanics.Spawner
	arb       *arbiter.Arbiter
	recorder  Recorder
	observers map[int]func(Snapshot)
	nextObs   int
	records   sync.WaitGroup
}

// New creates a game. rec may be nil, in which case results are not
// recorded anywhere. The game starts empty; call NewGame to deal the first
// two tiles.
func New(settings Settings, src mechanics.Source, rec Recorder) *Game {
	g := &Game{
		settings:  settings,
		spawner:   mechanics.NewSpawner(src),
		recorder:  rec,
		observers: make(map[int]func(Snapshot)),
	}
	g.arb = arbiter.New(g.step, g.pace)
	return g
}

// NewGame drops pending moves, turns autoplay off and deals a fresh board.
func (g *Game) NewGame(ctx context.Context) {
	g.arb.Clear()
	g.mu.Lock()
	g.generation++
	g.board = g.spawner.Spawn(g.spawner.Spawn(board.Board{}))
	g.score = 0
	g.moves = 0
	g.over = false
	g.autoplay = false
	g.history = nil
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Info().Uint64("generation", snap.Generation).Msg("new-game")
	g.notify(snap)
	g.syncBest(ctx)
}

// Load replaces the board, for fixtures and restored positions. Tile
// identities already on b are reserved so spawns never reuse them.
func (g *Game) Load(b board.Board, score int) {
	g.arb.Clear()
	g.mu.Lock()
	g.generation++
	g.spawner.Reserve(b.MaxID())
	g.board = b
	g.score = score
	if score > g.best {
		g.best = score
	}
	g.moves = 0
	g.over = mechanics.IsTerminal(b)
	g.history = nil
	snap := g.snapshotLocked()
	g.mu.Unlock()
	g.notify(snap)
}

// Move queues a direction. It is ignored once the game is over.
func (g *Game) Move(d board.Direction) {
	if !d.Valid() {
		return
	}
	g.mu.Lock()
	over := g.over
	g.mu.Unlock()
	if over {
		return
	}
	g.arb.Enqueue(d)
}

// step is the arbiter's resolution step: resolve, spawn, detect the end
// and commit.
func (g *Game) step(d board.Direction) {
	g.mu.Lock()
	if g.over {
		g.mu.Unlock()
		return
	}
	out := mechanics.Resolve(g.board, d)
	if !out.Moved {
		g.mu.Unlock()
		log.Debug().Str("dir", d.String()).Msg("move-ignored")
		return
	}
	g.history = append(g.history, g.board)
	if len(g.history) > HistoryLimit {
		g.history = g.history[len(g.history)-HistoryLimit:]
	}
	g.board = g.spawner.Spawn(out.Board)
	g.score += out.ScoreDelta
	g.moves++
	if g.score > g.best {
		g.best = g.score
	}
	g.over = mechanics.IsTerminal(g.board)
	snap := g.snapshotLocked()
	var res *Result
	if g.over {
		r := g.resultLocked()
		res = &r
	}
	g.mu.Unlock()

	log.Debug().Str("dir", d.String()).Int("delta", out.ScoreDelta).
		Int("score", snap.Score).Msg("move-applied")
	g.notify(snap)
	if res != nil {
		log.Info().Int("score", res.Score).Int("max-tile", res.MaxTile).
			Int("moves", res.Moves).Msg("game-over")
		r := *res
		g.records.Add(1)
		go func() {
			defer g.records.Done()
			g.submit(r)
		}()
	}
}

func (g *Game) pace() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings.Pacing.Delay(g.autoplay, g.settings.Interval)
}

// Undo restores the previous board. It is a no-op returning false while
// autoplay is on or when there is nothing to undo.
func (g *Game) Undo() bool {
	g.mu.Lock()
	if g.autoplay || len(g.history) == 0 {
		g.mu.Unlock()
		return false
	}
	g.mu.Unlock()

	g.arb.Clear()

	g.mu.Lock()
	// state may have changed while the lock was released.
	if g.autoplay || len(g.history) == 0 {
		g.mu.Unlock()
		return false
	}
	last := len(g.history) - 1
	g.board = g.history[last]
	g.history = g.history[:last]
	g.score -= UndoPenalty
	if g.moves > 0 {
		g.moves--
	}
	g.over = false
	snap := g.snapshotLocked()
	g.mu.Unlock()

	log.Debug().Int("score", snap.Score).Msg("undo")
	g.notify(snap)
	return true
}

// SetAutoplay switches autonomous play and drops pending moves. It reports
// whether the flag changed.
func (g *Game) SetAutoplay(on bool) bool {
	g.mu.Lock()
	changed := g.autoplay != on
	g.autoplay = on
	snap := g.snapshotLocked()
	g.mu.Unlock()
	g.arb.Clear()
	if changed {
		log.Info().Bool("autoplay", on).Msg("autoplay-toggled")
		g.notify(snap)
	}
	return changed
}

// ToggleAutoplay flips autonomous play and returns the new value.
func (g *Game) ToggleAutoplay() bool {
	g.mu.Lock()
	on := !g.autoplay
	g.mu.Unlock()
	g.SetAutoplay(on)
	return on
}

// AbortAutoplay turns autonomous play off after a failure or when the
// search finds no move.
func (g *Game) AbortAutoplay(reason error) {
	if g.SetAutoplay(false) {
		if reason != nil {
			log.Err(reason).Msg("autoplay-aborted")
		} else {
			log.Info().Msg("autoplay-stopped")
		}
	}
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	return Snapshot{
		Board:      g.board,
		Score:      g.score,
		Best:       g.best,
		Moves:      g.moves,
		Over:       g.over,
		Autoplay:   g.autoplay,
		Generation: g.generation,
		CanUndo:    !g.autoplay && len(g.history) > 0,
	}
}

// WaitIdle blocks until every queued move has been resolved.
func (g *Game) WaitIdle(ctx context.Context) error {
	return g.arb.WaitIdle(ctx)
}

// Pending is the number of queued, unresolved moves.
func (g *Game) Pending() int {
	return g.arb.Pending()
}

// Subscribe registers fn to receive every committed snapshot. The returned
// func removes it. fn runs on the goroutine that committed the change and
// must not call back into the game synchronously.
func (g *Game) Subscribe(fn func(Snapshot)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.nextObs
	g.nextObs++
	g.observers[id] = fn
	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.observers, id)
	}
}

func (g *Game) notify(snap Snapshot) {
	g.mu.Lock()
	fns := make([]func(Snapshot), 0, len(g.observers))
	for _, fn := range g.observers {
		fns = append(fns, fn)
	}
	g.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// Flush waits for finished matches to reach the recorder.
func (g *Game) Flush(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.records.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the arbiter and waits for pending result submissions. Queued
// moves are dropped.
func (g *Game) Close() {
	g.arb.Close()
	g.records.Wait()
}
