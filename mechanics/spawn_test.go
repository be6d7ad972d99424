package mechanics

import (
	"testing"

	"github.com/matryer/is"

	"github.com/tilecraft/slide/board"
)

// scriptedSource replays fixed draws.
type scriptedSource struct {
	ints   []int
	floats []float64
}

func (s *scriptedSource) Intn(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *scriptedSource) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func TestSpawnPicksEmptyCellAndValue(t *testing.T) {
	is := is.New(t)
	src := &scriptedSource{ints: []int{1, 0}, floats: []float64{0.5, 0.95}}
	sp := NewSpawner(src)
	b := board.MustNew(board.Tile{ID: 1, Value: 8, Cell: board.Cell{Row: 0, Col: 0}})
	sp.Reserve(b.MaxID())

	b = sp.Spawn(b)
	tile, ok := b.TileAt(board.Cell{Row: 0, Col: 2})
	is.True(ok)
	is.Equal(tile.Value, 2)
	is.True(tile.JustSpawned)
	is.Equal(tile.ID, uint64(2))

	b = sp.Spawn(b)
	tile, ok = b.TileAt(board.Cell{Row: 0, Col: 1})
	is.True(ok)
	is.Equal(tile.Value, 4)
	is.Equal(tile.ID, uint64(3))
	is.Equal(b.Len(), 3)
}

func TestSpawnFullBoardUnchanged(t *testing.T) {
	is := is.New(t)
	g := board.Grid{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 4},
		{4, 2, 4, 2},
	}
	b, err := board.FromGrid(g, 1)
	is.NoErr(err)
	sp := NewSpawner(NewSource(1))
	is.Equal(sp.Spawn(b).Grid(), g)

	_, ok := SpawnGrid(g, NewSource(1))
	is.True(!ok)
}

func TestSpawnDistribution(t *testing.T) {
	is := is.New(t)
	src := NewSource(7)
	fours := 0
	const n = 20000
	for i := 0; i < n; i++ {
		g, ok := SpawnGrid(board.Grid{}, src)
		is.True(ok)
		is.Equal(g.CountTiles(), 1)
		if g.Sum() == 4 {
			fours++
		}
	}
	frac := float64(fours) / n
	is.True(frac > 0.08)
	is.True(frac < 0.12)
}

func TestSeededSourcesRepeat(t *testing.T) {
	is := is.New(t)
	a, b := NewSource(99), NewSource(99)
	for i := 0; i < 50; i++ {
		is.Equal(a.Intn(1000), b.Intn(1000))
	}
	fa, fb := Fork(a), Fork(b)
	is.Equal(fa.Float64(), fb.Float64())
}

func TestTerminal(t *testing.T) {
	is := is.New(t)
	stuck := board.Grid{
		{2, 4, 2, 4},
		{4, 2, 4, 2},
		{2, 4, 2, 4},
		{4, 2, 4, 2},
	}
	b, err := board.FromGrid(stuck, 1)
	is.NoErr(err)
	is.True(IsTerminal(b))
	is.True(GridTerminal(stuck))

	pair := stuck
	pair[3][3] = 4
	is.True(!GridTerminal(pair))

	notFull := stuck
	notFull[1][1] = 0
	b, err = board.FromGrid(notFull, 1)
	is.NoErr(err)
	is.True(!IsTerminal(b))
	is.True(!GridTerminal(board.Grid{}))
}
