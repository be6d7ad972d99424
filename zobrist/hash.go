package zobrist

import (
	"lukechampine.com/frand"

	"github.com/tilecraft/slide/board"
)

const bignum = 1<<63 - 2

// generate a zobrist hash for a sliding-tile position.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	posTable [board.NumCells][board.MaxExponent + 1]uint64
}

func New() *Zobrist {
	z := &Zobrist{}
	z.Initialize()
	return z
}

func (z *Zobrist) Initialize() {
	for i := 0; i < board.NumCells; i++ {
		// exponent 0 is an empty cell and does not contribute.
		for j := 1; j <= board.MaxExponent; j++ {
			z.posTable[i][j] = frand.Uint64n(bignum) + 1
		}
	}
}

func (z *Zobrist) Hash(g board.Grid) uint64 {
	key := uint64(0)
	for r := 0; r < board.Dim; r++ {
		for c := 0; c < board.Dim; c++ {
			e := board.Exponent(g[r][c])
			if e == 0 {
				continue
			}
			key ^= z.posTable[r*board.Dim+c][e]
		}
	}
	return key
}

// Place updates key for a tile of value v appearing on (or, applied a
// second time, leaving) the cell.
func (z *Zobrist) Place(key uint64, c board.Cell, v int) uint64 {
	e := board.Exponent(v)
	if e == 0 {
		return key
	}
	return key ^ z.posTable[c.Row*board.Dim+c.Col][e]
}
