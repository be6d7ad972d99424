// Package mechanics implements the rules of the game: how a board resolves
// a move, how new tiles appear, and when the game is over.
package mechanics

import (
	"github.com/tilecraft/slide/board"
)

// Outcome is the result of resolving one direction against a board.
type Outcome struct {
	Board      board.Board
	ScoreDelta int
	Moved      bool
}

// traversal returns row and column visiting orders such that the tile
// farthest along the move vector is handled first.
func traversal(d board.Direction) ([board.Dim]int, [board.Dim]int) {
	var rows, cols [board.Dim]int
	for i := 0; i < board.Dim; i++ {
		rows[i] = i
		cols[i] = i
	}
	switch d {
	case board.Right:
		for i := 0; i < board.Dim; i++ {
			cols[i] = board.Dim - 1 - i
		}
	case board.Down:
		for i := 0; i < board.Dim; i++ {
			rows[i] = board.Dim - 1 - i
		}
	}
	return rows, cols
}

// Resolve slides every tile of b in direction d, merging equal neighbours.
// It has no side effects. The surviving tile of a merge keeps its identity
// and is flagged JustMerged; the tile merged into it disappears.
func Resolve(b board.Board, d board.Direction) Outcome {
	if !d.Valid() {
		return Outcome{Board: b}
	}
	tiles := b.Tiles()
	// occupancy holds index+1 into tiles, 0 for an empty cell.
	var occupancy [board.Dim][board.Dim]int
	for i := range tiles {
		tiles[i].JustSpawned = false
		tiles[i].JustMerged = false
		occupancy[tiles[i].Cell.Row][tiles[i].Cell.Col] = i + 1
	}
	removed := make([]bool, len(tiles))
	out := Outcome{}

	rows, cols := traversal(d)
	for _, r := range rows {
		for _, c := range cols {
			idx := occupancy[r][c] - 1
			if idx < 0 {
				continue
			}
			occupancy[r][c] = 0
			t := &tiles[idx]

			farthest := t.Cell
			next := farthest.Step(d)
			for next.InBounds() && occupancy[next.Row][next.Col] == 0 {
				farthest = next
				next = farthest.Step(d)
			}

			if next.InBounds() {
				other := &tiles[occupancy[next.Row][next.Col]-1]
				if other.Value == t.Value && !other.JustMerged {
					other.Value *= 2
					other.JustMerged = true
					out.ScoreDelta += other.Value
					out.Moved = true
					removed[idx] = true
					continue
				}
			}
			if farthest != t.Cell {
				out.Moved = true
			}
			t.Cell = farthest
			occupancy[farthest.Row][farthest.Col] = idx + 1
		}
	}

	survivors := make([]board.Tile, 0, len(tiles))
	for i, t := range tiles {
		if !removed[i] {
			survivors = append(survivors, t)
		}
	}
	// Resolution preserves the one-tile-per-cell invariant by construction.
	out.Board = board.MustNew(survivors...)
	return out
}
