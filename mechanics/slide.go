package mechanics

import (
	"github.com/tilecraft/slide/board"
)

// slideLine compacts a line toward index 0, merging each pair of equal
// neighbours at most once.
func slideLine(line [board.Dim]int) ([board.Dim]int, int) {
	var out [board.Dim]int
	score := 0
	n := 0
	mergeable := false
	for _, v := range line {
		if v == 0 {
			continue
		}
		if mergeable && out[n-1] == v {
			out[n-1] *= 2
			score += out[n-1]
			mergeable = false
			continue
		}
		out[n] = v
		n++
		mergeable = true
	}
	return out, score
}

// readLine extracts line i of g in the order tiles travel for direction d,
// so that index 0 is the edge tiles slide toward.
func readLine(g *board.Grid, d board.Direction, i int) [board.Dim]int {
	var line [board.Dim]int
	for j := 0; j < board.Dim; j++ {
		switch d {
		case board.Left:
			line[j] = g[i][j]
		case board.Right:
			line[j] = g[i][board.Dim-1-j]
		case board.Up:
			line[j] = g[j][i]
		case board.Down:
			line[j] = g[board.Dim-1-j][i]
		}
	}
	return line
}

func writeLine(g *board.Grid, d board.Direction, i int, line [board.Dim]int) {
	for j := 0; j < board.Dim; j++ {
		switch d {
		case board.Left:
			g[i][j] = line[j]
		case board.Right:
			g[i][board.Dim-1-j] = line[j]
		case board.Up:
			g[j][i] = line[j]
		case board.Down:
			g[board.Dim-1-j][i] = line[j]
		}
	}
}

// Slide applies the move rule to a plain grid. It agrees with Resolve on
// the resulting values, score and moved flag, without tracking identities.
func Slide(g board.Grid, d board.Direction) (board.Grid, int, bool) {
	if !d.Valid() {
		return g, 0, false
	}
	var out board.Grid
	score := 0
	for i := 0; i < board.Dim; i++ {
		line, s := slideLine(readLine(&g, d, i))
		score += s
		writeLine(&out, d, i, line)
	}
	return out, score, out != g
}

// LegalDirections returns the directions that change g, in search order.
func LegalDirections(g board.Grid) []board.Direction {
	legal := make([]board.Direction, 0, len(board.Directions))
	for _, d := range board.Directions {
		if _, _, moved := Slide(g, d); moved {
			legal = append(legal, d)
		}
	}
	return legal
}
