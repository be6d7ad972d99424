// Package search picks moves for the autonomous player by looking ahead
// over the plain grid representation. Player turns are max nodes and tile
// spawns are chance nodes.
package search

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/mechanics"
	"github.com/tilecraft/slide/zobrist"
)

const (
	DefaultDepth = 3
	// DefaultSampleCells bounds the branching factor of chance nodes.
	DefaultSampleCells = 6
)

type Options struct {
	Depth       int
	Algorithm   Algorithm
	Weights     heuristic.Weights
	SampleCells int
	Threads     int
	Seed        int64
}

func DefaultOptions() Options {
	return Options{
		Depth:       DefaultDepth,
		Algorithm:   Expectimax,
		Weights:     heuristic.DefaultWeights,
		SampleCells: DefaultSampleCells,
		Threads:     1,
	}
}

// Solver runs one search at a time. It is safe for concurrent use; calls
// are serialized.
type Solver struct {
	sync.Mutex
	opts  Options
	src   mechanics.Source
	hash  *zobrist.Zobrist
	nodes atomic.Uint64
}

func NewSolver(opts Options) *Solver {
	return newSolver(opts, mechanics.NewSource(opts.Seed), zobrist.New())
}

func newSolver(opts Options, src mechanics.Source, z *zobrist.Zobrist) *Solver {
	if opts.Depth < 1 {
		opts.Depth = 1
	}
	if opts.SampleCells < 1 {
		opts.SampleCells = DefaultSampleCells
	}
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	return &Solver{opts: opts, src: src, hash: z}
}

func (s *Solver) Options() Options {
	return s.opts
}

// Nodes is the number of nodes visited by the last search.
func (s *Solver) Nodes() uint64 {
	return s.nodes.Load()
}

type rootChild struct {
	dir    board.Direction
	grid   board.Grid
	gained int
}

// BestMove returns the legal direction with the highest backed-up value, or
// board.NoDirection when no direction changes the grid. Ties go to the
// earliest direction in Left, Right, Up, Down order.
func (s *Solver) BestMove(ctx context.Context, g board.Grid) (board.Direction, error) {
	s.Lock()
	defer s.Unlock()
	if err := ctx.Err(); err != nil {
		return board.NoDirection, err
	}
	s.nodes.Store(0)
	ts := time.Now()

	children := lo.FilterMap(board.Directions[:], func(d board.Direction, _ int) (rootChild, bool) {
		out, gained, moved := mechanics.Slide(g, d)
		return rootChild{dir: d, grid: out, gained: gained}, moved
	})
	if len(children) == 0 {
		return board.NoDirection, nil
	}

	values := make([]float64, len(children))
	if s.opts.Threads > 1 && len(children) > 1 {
		eg, ectx := errgroup.WithContext(ctx)
		eg.SetLimit(s.opts.Threads)
		for i, c := range children {
			i, c := i, c
			w := s.newWorker(mechanics.Fork(s.src))
			w.ctx = ectx
			eg.Go(func() error {
				if err := ectx.Err(); err != nil {
					return err
				}
				values[i] = w.root(c)
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return board.NoDirection, err
		}
	} else {
		w := s.newWorker(s.src)
		w.ctx = ctx
		for i, c := range children {
			if err := ctx.Err(); err != nil {
				return board.NoDirection, err
			}
			values[i] = w.root(c)
		}
	}

	// a search cut short by ctx backed up meaningless values.
	if err := ctx.Err(); err != nil {
		return board.NoDirection, err
	}

	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	log.Debug().
		Str("algorithm", string(s.opts.Algorithm)).
		Int("depth", s.opts.Depth).
		Uint64("nodes", s.nodes.Load()).
		Dur("elapsed", time.Since(ts)).
		Str("best", children[best].dir.String()).
		Float64("value", values[best]).
		Msg("search-done")
	return children[best].dir, nil
}

// worker holds the per-goroutine state of a search: its random source and
// an evaluation cache. Once ctx is done, player nodes stop expanding.
type worker struct {
	s     *Solver
	ctx   context.Context
	src   mechanics.Source
	cache map[uint64]float64
}

func (s *Solver) newWorker(src mechanics.Source) *worker {
	return &worker{
		s:     s,
		ctx:   context.Background(),
		src:   src,
		cache: make(map[uint64]float64),
	}
}

func (w *worker) evaluate(g board.Grid) float64 {
	key := w.s.hash.Hash(g)
	if v, ok := w.cache[key]; ok {
		return v
	}
	v := heuristic.Evaluate(g, w.s.opts.Weights)
	w.cache[key] = v
	return v
}

// root scores the grid reached by one legal first move.
func (w *worker) root(c rootChild) float64 {
	depth := w.s.opts.Depth - 1
	switch w.s.opts.Algorithm {
	case MonteCarlo:
		return w.rollouts(c.grid, c.gained)
	case DFS:
		return float64(c.gained) + w.greedy(c.grid, depth)
	case BFS:
		return w.layered(c.grid, c.gained, depth)
	default:
		return w.value(c.grid, depth, Chance)
	}
}

func (w *worker) value(g board.Grid, depth int, kind Kind) float64 {
	w.s.nodes.Add(1)
	if depth <= 0 {
		return w.evaluate(g)
	}
	if kind == Max {
		return w.maxNode(g, depth)
	}
	if w.s.opts.Algorithm == Minimax {
		return w.minNode(g, depth)
	}
	return w.chanceNode(g, depth)
}

func (w *worker) maxNode(g board.Grid, depth int) float64 {
	if w.ctx.Err() != nil {
		return w.evaluate(g)
	}
	best := 0.0
	found := false
	for _, d := range board.Directions {
		out, _, moved := mechanics.Slide(g, d)
		if !moved {
			continue
		}
		v := w.value(out, depth-1, Chance)
		if !found || v > best {
			best = v
			found = true
		}
	}
	if !found {
		// dead end inside the tree.
		return w.evaluate(g)
	}
	return best
}

// sample returns up to n distinct empty cells of g, chosen uniformly.
func (w *worker) sample(g board.Grid, n int) []board.Cell {
	cells := g.EmptyCells()
	if len(cells) <= n {
		return cells
	}
	// partial Fisher-Yates.
	for i := 0; i < n; i++ {
		j := i + w.src.Intn(len(cells)-i)
		cells[i], cells[j] = cells[j], cells[i]
	}
	return cells[:n]
}

func (w *worker) chanceNode(g board.Grid, depth int) float64 {
	cells := w.sample(g, w.s.opts.SampleCells)
	if len(cells) == 0 {
		return w.evaluate(g)
	}
	total := 0.0
	for _, c := range cells {
		g2, g4 := g, g
		g2[c.Row][c.Col] = 2
		g4[c.Row][c.Col] = 4
		total += mechanics.TwoProbability*w.value(g2, depth-1, Max) +
			mechanics.FourProbability*w.value(g4, depth-1, Max)
	}
	return total / float64(len(cells))
}

// minNode treats the spawn as an adversary that picks the worst cell and
// value over every empty cell.
func (w *worker) minNode(g board.Grid, depth int) float64 {
	cells := g.EmptyCells()
	if len(cells) == 0 {
		return w.evaluate(g)
	}
	worst := 0.0
	for i, c := range cells {
		for _, v := range [2]int{2, 4} {
			child := g
			child[c.Row][c.Col] = v
			val := w.value(child, depth-1, Max)
			if (i == 0 && v == 2) || val < worst {
				worst = val
			}
		}
	}
	return worst
}
