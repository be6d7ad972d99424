package board

import (
	"fmt"
	"math/bits"
	"strings"
)

// Grid is the plain value representation of a board: 0 for an empty cell,
// the tile value otherwise. It is a value type, so copies are free for the
// search to throw away.
type Grid [Dim][Dim]int

// GridFromWire converts the row-major wire representation, rejecting
// anything that is not a 4x4 grid of zeroes and tile values.
func GridFromWire(rows [][]int) (Grid, error) {
	var g Grid
	if len(rows) != Dim {
		return g, fmt.Errorf("%w: %d rows", ErrBadDimensions, len(rows))
	}
	for r, row := range rows {
		if len(row) != Dim {
			return g, fmt.Errorf("%w: row %d has %d cells", ErrBadDimensions, r, len(row))
		}
		copy(g[r][:], row)
	}
	return g, g.Validate()
}

// Wire returns the row-major wire representation.
func (g Grid) Wire() [][]int {
	rows := make([][]int, Dim)
	for r := range g {
		rows[r] = make([]int, Dim)
		copy(rows[r], g[r][:])
	}
	return rows
}

func (g Grid) Validate() error {
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			v := g[r][c]
			if v != 0 && !ValidTileValue(v) {
				return fmt.Errorf("%w: %d at %v", ErrBadTileValue, v, Cell{r, c})
			}
		}
	}
	return nil
}

// EmptyCells lists unoccupied cells in row-major order.
func (g Grid) EmptyCells() []Cell {
	cells := make([]Cell, 0, NumCells)
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			if g[r][c] == 0 {
				cells = append(cells, Cell{r, c})
			}
		}
	}
	return cells
}

func (g Grid) CountEmpty() int {
	n := 0
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			if g[r][c] == 0 {
				n++
			}
		}
	}
	return n
}

func (g Grid) CountTiles() int {
	return NumCells - g.CountEmpty()
}

func (g Grid) Sum() int {
	s := 0
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			s += g[r][c]
		}
	}
	return s
}

func (g Grid) MaxValue() int {
	m := 0
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			if g[r][c] > m {
				m = g[r][c]
			}
		}
	}
	return m
}

// Exponent returns log2 of a tile value, 0 for empty.
func Exponent(v int) int {
	if v <= 0 {
		return 0
	}
	return bits.TrailingZeros(uint(v))
}

func (g Grid) String() string {
	var sb strings.Builder
	line := "+------+------+------+------+\n"
	sb.WriteString(line)
	for r := 0; r < Dim; r++ {
		sb.WriteString("|")
		for c := 0; c < Dim; c++ {
			if g[r][c] == 0 {
				sb.WriteString("      |")
			} else {
				fmt.Fprintf(&sb, "%5d |", g[r][c])
			}
		}
		sb.WriteString("\n")
		sb.WriteString(line)
	}
	return sb.String()
}
