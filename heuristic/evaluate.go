// Package heuristic scores boards for the search. Higher is better for the
// player.
package heuristic

import (
	"math"

	"github.com/tilecraft/slide/board"
)

// Evaluator scores a grid.
type Evaluator interface {
	Evaluate(g board.Grid) float64
}

// Weighted is the standard evaluator: a weighted sum of empty cells,
// smoothness, monotonicity and a max-tile bias.
type Weighted struct {
	Weights Weights
}

func (e Weighted) Evaluate(g board.Grid) float64 {
	return Evaluate(g, e.Weights)
}

// Features are the unweighted terms of the evaluation.
type Features struct {
	Empty   float64
	Smooth  float64
	Mono    float64
	MaxBias float64
}

func Extract(g board.Grid) Features {
	return Features{
		Empty:   float64(g.CountEmpty()),
		Smooth:  Smoothness(g),
		Mono:    Monotonicity(g),
		MaxBias: math.Log2(float64(g.MaxValue()) + 1),
	}
}

func Evaluate(g board.Grid, w Weights) float64 {
	f := Extract(g)
	return f.Empty*w.Empty + f.Smooth*w.Smooth + f.Mono*w.Mono + f.MaxBias*w.Max
}

func log2(v int) float64 {
	if v == 0 {
		return 0
	}
	return float64(board.Exponent(v))
}

// Smoothness is minus the summed log2 gap between every pair of adjacent
// occupied cells.
func Smoothness(g board.Grid) float64 {
	s := 0.0
	for r := 0; r < board.Dim; r++ {
		for c := 0; c < board.Dim; c++ {
			if g[r][c] == 0 {
				continue
			}
			if c < board.Dim-1 && g[r][c+1] != 0 {
				s -= math.Abs(log2(g[r][c]) - log2(g[r][c+1]))
			}
			if r < board.Dim-1 && g[r+1][c] != 0 {
				s -= math.Abs(log2(g[r][c]) - log2(g[r+1][c]))
			}
		}
	}
	return s
}

// Monotonicity is minus the cheapest cost, per axis, of making every line
// monotonic in one consistent direction. Empty cells count as 0.
func Monotonicity(g board.Grid) float64 {
	// decreasing and increasing costs along rows, then along columns.
	var totals [4]float64
	for r := 0; r < board.Dim; r++ {
		for c := 0; c < board.Dim-1; c++ {
			cur, next := log2(g[r][c]), log2(g[r][c+1])
			if cur > next {
				totals[0] += cur - next
			} else {
				totals[1] += next - cur
			}
		}
	}
	for c := 0; c < board.Dim; c++ {
		for r := 0; r < board.Dim-1; r++ {
			cur, next := log2(g[r][c]), log2(g[r+1][c])
			if cur > next {
				totals[2] += cur - next
			} else {
				totals[3] += next - cur
			}
		}
	}
	return -math.Min(totals[0], totals[1]) - math.Min(totals[2], totals[3])
}
