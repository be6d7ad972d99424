package mechanics

import (
	"github.com/tilecraft/slide/board"
)

// IsTerminal reports whether no legal move remains. Only a full board can
// be terminal: any empty cell admits a move.
func IsTerminal(b board.Board) bool {
	if !b.Full() {
		return false
	}
	return GridTerminal(b.Grid())
}

// GridTerminal is IsTerminal on the plain representation.
func GridTerminal(g board.Grid) bool {
	if g.CountTiles() < board.NumCells {
		return false
	}
	for r := 0; r < board.Dim; r++ {
		for c := 0; c < board.Dim; c++ {
			v := g[r][c]
			if c < board.Dim-1 && v == g[r][c+1] {
				return false
			}
			if r < board.Dim-1 && v == g[r+1][c] {
				return false
			}
		}
	}
	return true
}
