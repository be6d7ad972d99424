package search

import (
	"math"

	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/mechanics"
)

// The lookaheads below ignore tile spawns: they assume the grid stays as
// the player left it, which keeps the tree at four children per node. A
// path scores the evaluation of its last grid plus the points merged on
// the way.

// greedy is the best score of any path of up to depth moves from g.
func (w *worker) greedy(g board.Grid, depth int) float64 {
	w.s.nodes.Add(1)
	if depth <= 0 || w.ctx.Err() != nil {
		return w.evaluate(g)
	}
	best := math.Inf(-1)
	for _, d := range board.Directions {
		out, gained, moved := mechanics.Slide(g, d)
		if !moved {
			continue
		}
		best = math.Max(best, float64(gained)+w.greedy(out, depth-1))
	}
	if math.IsInf(best, -1) {
		return w.evaluate(g)
	}
	return best
}

type layerNode struct {
	grid  board.Grid
	score int
}

// layered scores the same paths as greedy breadth-first: every grid of
// one layer is expanded before the next. A grid with no legal move ends
// its path early.
func (w *worker) layered(g board.Grid, gained, depth int) float64 {
	best := math.Inf(-1)
	leaf := func(n layerNode) {
		best = math.Max(best, w.evaluate(n.grid)+float64(n.score))
	}
	layer := []layerNode{{grid: g, score: gained}}
	for d := 0; len(layer) > 0; d++ {
		var next []layerNode
		for _, n := range layer {
			w.s.nodes.Add(1)
			if d >= depth || w.ctx.Err() != nil {
				leaf(n)
				continue
			}
			expanded := false
			for _, dir := range board.Directions {
				out, delta, moved := mechanics.Slide(n.grid, dir)
				if !moved {
					continue
				}
				expanded = true
				next = append(next, layerNode{grid: out, score: n.score + delta})
			}
			if !expanded {
				leaf(n)
			}
		}
		layer = next
	}
	return best
}
