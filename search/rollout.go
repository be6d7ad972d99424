package search

import (
	"github.com/tilecraft/slide/board"
	"github.com/tilecraft/slide/mechanics"
)

const (
	// Rollouts is the number of random games played from each first move.
	Rollouts = 100
	// greedyRate is how often a rollout takes the highest-scoring move
	// rather than a random legal one.
	greedyRate = 0.8
	// deadEndFactor scales the points of a rollout that ran out of moves.
	deadEndFactor = 0.5
)

// rollouts is the mean result of Rollouts random continuations of g.
func (w *worker) rollouts(g board.Grid, gained int) float64 {
	total := 0.0
	for i := 0; i < Rollouts && w.ctx.Err() == nil; i++ {
		total += w.rollout(g, gained)
	}
	return total / Rollouts
}

// rollout alternates spawns and mostly-greedy moves for twice the search
// depth. It returns the points gained plus the evaluation of the last
// grid, or only a fraction of the points if the game ended on the way.
func (w *worker) rollout(g board.Grid, score int) float64 {
	steps := 2 * w.s.opts.Depth
	var legal []rootChild
	for i := 0; i < steps; i++ {
		w.s.nodes.Add(1)
		spawned, ok := mechanics.SpawnGrid(g, w.src)
		if !ok {
			return float64(score) * deadEndFactor
		}
		g = spawned

		legal = legal[:0]
		best := -1
		for _, d := range board.Directions {
			out, gained, moved := mechanics.Slide(g, d)
			if !moved {
				continue
			}
			legal = append(legal, rootChild{dir: d, grid: out, gained: gained})
			if best < 0 || gained > legal[best].gained {
				best = len(legal) - 1
			}
		}
		if len(legal) == 0 {
			return float64(score) * deadEndFactor
		}
		pick := legal[best]
		if w.src.Float64() >= greedyRate {
			pick = legal[w.src.Intn(len(legal))]
		}
		g = pick.grid
		score += pick.gained
	}
	return float64(score) + w.evaluate(g)
}
