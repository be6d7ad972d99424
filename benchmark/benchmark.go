// Package benchmark plays batches of autonomous games on the grid
// representation and summarizes how well a search configuration does.
package benchmark

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/mechanics"
	"github.com/tilecraft/slide/search"
)

const (
	// MaxMoves caps a single game.
	MaxMoves     = 10000
	DefaultGames = 10
	// WinTile is the tile that counts a game as won.
	WinTile = 2048
)

var ErrAlreadyRunning = errors.New("a benchmark is already running, please wait till it completes")

var running atomic.Bool

type Options struct {
	Games    int
	Threads  int
	MaxMoves int
	// Search configures every game's solver. Its Threads field is ignored:
	// games run in parallel instead.
	Search search.Options
}

// GameRecord is the outcome of one benchmark game.
type GameRecord struct {
	Score    int           `yaml:"score" json:"score"`
	MaxTile  int           `yaml:"max_tile" json:"maxTile"`
	Moves    int           `yaml:"moves" json:"moves"`
	Duration time.Duration `yaml:"duration" json:"duration"`
}

// PlayGame plays one game from an empty grid: two opening spawns, then
// search, slide, spawn until no move is left or maxMoves is reached. The
// score is the game score, the sum of all merged tiles.
func PlayGame(ctx context.Context, s *search.Solver, src mechanics.Source, maxMoves int) (GameRecord, error) {
	ts := time.Now()
	var g board.Grid
	g, _ = mechanics.SpawnGrid(g, src)
	g, _ = mechanics.SpawnGrid(g, src)

	rec := GameRecord{}
	for rec.Moves < maxMoves {
		d, err := s.BestMove(ctx, g)
		if err != nil {
			return rec, err
		}
		if d == board.NoDirection {
			break
		}
		out, delta, moved := mechanics.Slide(g, d)
		if !moved {
			break
		}
		rec.Score += delta
		var spawned bool
		g, spawned = mechanics.SpawnGrid(out, src)
		if !spawned {
			break
		}
		rec.Moves++
	}
	rec.MaxTile = g.MaxValue()
	rec.Duration = time.Since(ts)
	return rec, nil
}

// Run plays opts.Games games across opts.Threads workers and returns the
// report. Only one benchmark runs at a time per process.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if !running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer running.Store(false)

	if opts.Games <= 0 {
		opts.Games = DefaultGames
	}
	if opts.Threads <= 0 {
		opts.Threads = runtime.NumCPU()
	}
	if opts.MaxMoves <= 0 {
		opts.MaxMoves = MaxMoves
	}
	log.Info().Int("games", opts.Games).Int("threads", opts.Threads).
		Str("algorithm", string(opts.Search.Algorithm)).Int("depth", opts.Search.Depth).
		Msg("benchmark-starting")

	root := mechanics.NewSource(opts.Search.Seed)
	records := make([]GameRecord, opts.Games)
	var done atomic.Int64
	ts := time.Now()

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Threads)
	for i := 0; i < opts.Games; i++ {
		sopts := opts.Search
		sopts.Threads = 1
		if sopts.Seed != 0 {
			sopts.Seed += int64(i) + 1
		}
		i := i
		src := mechanics.Fork(root)
		eg.Go(func() error {
			rec, err := PlayGame(ectx, search.NewSolver(sopts), src, opts.MaxMoves)
			if err != nil {
				return err
			}
			records[i] = rec
			n := done.Add(1)
			log.Debug().Int64("done", n).Int("score", rec.Score).Int("max-tile", rec.MaxTile).
				Msg("benchmark-game-finished")
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	r := Summarize(opts.Search, records)
	r.Elapsed = time.Since(ts).Seconds()
	log.Info().Float64("avg-score", r.AvgScore).Float64("win-rate", r.WinRate).
		Float64("elapsed", r.Elapsed).Msg("benchmark-finished")
	return r, nil
}
