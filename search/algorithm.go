package search

import "strings"

// Algorithm names a search variant. The values are the labels recorded with
// match results.
type Algorithm string

const (
	// Expectimax averages over tile spawns.
	Expectimax Algorithm = "Expectimax (Default)"
	// Minimax lets the spawn pick the worst cell and value.
	Minimax Algorithm = "Minimax (Classic)"
	// MonteCarlo scores each first move by the mean of random rollouts.
	MonteCarlo Algorithm = "Monte Carlo (MCTS)"
	// DFS is a depth-first lookahead over player moves only.
	DFS Algorithm = "DFS (Greedy)"
	// BFS expands the same spawn-free tree one layer at a time.
	BFS Algorithm = "BFS (Layered)"
)

var Algorithms = []Algorithm{Expectimax, Minimax, MonteCarlo, DFS, BFS}

// ParseAlgorithm accepts a full label or a short name. Anything unknown
// falls back to expectimax.
func ParseAlgorithm(s string) Algorithm {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(s, "minimax"):
		return Minimax
	case strings.HasPrefix(s, "monte"), strings.HasPrefix(s, "mcts"):
		return MonteCarlo
	case strings.HasPrefix(s, "dfs"), strings.HasPrefix(s, "greedy"):
		return DFS
	case strings.HasPrefix(s, "bfs"), strings.HasPrefix(s, "layered"):
		return BFS
	default:
		return Expectimax
	}
}

// Kind is the type of a node in the search tree.
type Kind int

const (
	// Max is the player's turn: the best of up to four directions.
	Max Kind = iota
	// Chance is the environment's turn: a random tile spawn.
	Chance
)

func (k Kind) String() string {
	if k == Max {
		return "max"
	}
	return "chance"
}
