// Package board holds the data model of a 4x4 sliding-tile game: cells,
// tiles with stable identities, the canonical board, and the plain grid that
// search and the wire format use.
package board

import (
	"errors"
	"fmt"
	"sort"
)

const (
	Dim      = 4
	NumCells = Dim * Dim
	// MaxExponent is the largest tile a 4x4 board can hold: 2^17.
	MaxExponent  = 17
	MaxTileValue = 1 << MaxExponent
)

var (
	ErrBadDimensions = errors.New("board must be 4x4")
	ErrBadTileValue  = errors.New("tile value must be a power of two from 2 to 131072")
	ErrCellTaken     = errors.New("two tiles share a cell")
	ErrOutOfBounds   = errors.New("cell out of bounds")
	ErrBadDirection  = errors.New("bad direction code")
)

// A Cell is a 0-indexed (row, column) position.
type Cell struct {
	Row int
	Col int
}

func (c Cell) InBounds() bool {
	return c.Row >= 0 && c.Row < Dim && c.Col >= 0 && c.Col < Dim
}

// Step returns the neighbouring cell in direction d.
func (c Cell) Step(d Direction) Cell {
	dr, dc := d.Vector()
	return Cell{Row: c.Row + dr, Col: c.Col + dc}
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// A Tile is a numbered square. ID is assigned at spawn and carried through
// moves so observers can follow a tile across states. JustSpawned and
// JustMerged only describe the latest committed move.
type Tile struct {
	ID          uint64
	Value       int
	Cell        Cell
	JustSpawned bool
	JustMerged  bool
}

// IsPowerOfTwo is true for 2, 4, 8, ...
func IsPowerOfTwo(v int) bool {
	return v >= 2 && v&(v-1) == 0
}

// ValidTileValue reports whether v can appear on a board.
func ValidTileValue(v int) bool {
	return IsPowerOfTwo(v) && v <= MaxTileValue
}

// Board is the canonical arrangement of tiles. The zero value is an empty
// board. A Board is never mutated after construction; every operation that
// changes tiles returns a new one.
type Board struct {
	tiles []Tile
}

// New builds a board, checking that every tile is in bounds, holds a valid
// value, and has a cell of its own.
func New(tiles ...Tile) (Board, error) {
	if len(tiles) > NumCells {
		return Board{}, fmt.Errorf("%w: %d tiles", ErrCellTaken, len(tiles))
	}
	var seen [Dim][Dim]bool
	for _, t := range tiles {
		if !t.Cell.InBounds() {
			return Board{}, fmt.Errorf("%w: %v", ErrOutOfBounds, t.Cell)
		}
		if !ValidTileValue(t.Value) {
			return Board{}, fmt.Errorf("%w: %d", ErrBadTileValue, t.Value)
		}
		if seen[t.Cell.Row][t.Cell.Col] {
			return Board{}, fmt.Errorf("%w: %v", ErrCellTaken, t.Cell)
		}
		seen[t.Cell.Row][t.Cell.Col] = true
	}
	b := Board{tiles: make([]Tile, len(tiles))}
	copy(b.tiles, tiles)
	b.sort()
	return b, nil
}

// MustNew is New for tests and fixed fixtures.
func MustNew(tiles ...Tile) Board {
	b, err := New(tiles...)
	if err != nil {
		panic(err)
	}
	return b
}

// FromGrid builds a board from a grid, numbering tiles in row-major order
// starting at firstID.
func FromGrid(g Grid, firstID uint64) (Board, error) {
	if err := g.Validate(); err != nil {
		return Board{}, err
	}
	tiles := make([]Tile, 0, NumCells)
	id := firstID
	for r := 0; r < Dim; r++ {
		for c := 0; c < Dim; c++ {
			if g[r][c] == 0 {
				continue
			}
			tiles = append(tiles, Tile{ID: id, Value: g[r][c], Cell: Cell{r, c}})
			id++
		}
	}
	return Board{tiles: tiles}, nil
}

// keep tiles in row-major cell order so that equal boards compare equal.
func (b *Board) sort() {
	sort.Slice(b.tiles, func(i, j int) bool {
		ci, cj := b.tiles[i].Cell, b.tiles[j].Cell
		if ci.Row != cj.Row {
			return ci.Row < cj.Row
		}
		return ci.Col < cj.Col
	})
}

// Tiles returns a copy of the tiles in row-major cell order.
func (b Board) Tiles() []Tile {
	out := make([]Tile, len(b.tiles))
	copy(out, b.tiles)
	return out
}

func (b Board) Len() int {
	return len(b.tiles)
}

func (b Board) Full() bool {
	return len(b.tiles) == NumCells
}

// TileAt returns the tile occupying c, if any.
func (b Board) TileAt(c Cell) (Tile, bool) {
	for _, t := range b.tiles {
		if t.Cell == c {
			return t, true
		}
	}
	return Tile{}, false
}

// With returns a copy of the board with t added. t must land on an empty
// cell.
func (b Board) With(t Tile) (Board, error) {
	tiles := append(b.Tiles(), t)
	return New(tiles...)
}

// Grid projects the board onto its plain value grid.
func (b Board) Grid() Grid {
	var g Grid
	for _, t := range b.tiles {
		g[t.Cell.Row][t.Cell.Col] = t.Value
	}
	return g
}

// EmptyCells lists unoccupied cells in row-major order.
func (b Board) EmptyCells() []Cell {
	return b.Grid().EmptyCells()
}

// Sum is the total of all tile values.
func (b Board) Sum() int {
	s := 0
	for _, t := range b.tiles {
		s += t.Value
	}
	return s
}

// MaxValue is the largest tile value, or 0 on an empty board.
func (b Board) MaxValue() int {
	m := 0
	for _, t := range b.tiles {
		if t.Value > m {
			m = t.Value
		}
	}
	return m
}

// MaxID is the largest tile identity on the board.
func (b Board) MaxID() uint64 {
	var m uint64
	for _, t := range b.tiles {
		if t.ID > m {
			m = t.ID
		}
	}
	return m
}

func (b Board) String() string {
	return b.Grid().String()
}
