package search

import (
	"context"
	"sync"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/heuristic"
	"github.com/tilecraft/slide/mechanics"
	"github.com/tilecraft/slide/zobrist"
)

// Request is an autonomous-move request: a grid plus the search settings
// the caller wants applied to it.
type Request struct {
	Grid      board.Grid
	Depth     int
	Algorithm Algorithm
	Weights   heuristic.Weights
}

// Local answers move requests in-process. Sample size and thread count
// come from the base options; everything else comes from the request.
type Local struct {
	base Options
	hash *zobrist.Zobrist

	mu  sync.Mutex
	src mechanics.Source
}

func NewLocal(base Options) *Local {
	return &Local{
		base: base,
		hash: zobrist.New(),
		src:  mechanics.NewSource(base.Seed),
	}
}

func (l *Local) RequestMove(ctx context.Context, req Request) (board.Direction, error) {
	opts := l.base
	opts.Depth = req.Depth
	opts.Algorithm = req.Algorithm
	opts.Weights = req.Weights

	l.mu.Lock()
	src := mechanics.Fork(l.src)
	l.mu.Unlock()

	return newSolver(opts, src, l.hash).BestMove(ctx, req.Grid)
}
