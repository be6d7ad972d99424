package mechanics

import (
	"sync/atomic"

	"github.com/tilecraft/slide/board"
)

const (
	// FourProbability is the chance a spawned tile is a 4 rather than a 2.
	FourProbability = 0.1
	TwoProbability  = 1 - FourProbability
)

// spawnValue draws 2 with probability 0.9, 4 otherwise.
func spawnValue(src Source) int {
	if src.Float64() < TwoProbability {
		return 2
	}
	return 4
}

// Spawner inserts new tiles into canonical boards and hands out tile
// identities. IDs only grow, so a tile identity is never reused for the
// lifetime of the spawner, even across games.
type Spawner struct {
	src    Source
	lastID atomic.Uint64
}

func NewSpawner(src Source) *Spawner {
	return &Spawner{src: src}
}

// Spawn places one tile on a uniformly chosen empty cell. A full board is
// returned unchanged. Callers only spawn after a move that changed the
// board, or at the start of a game.
func (s *Spawner) Spawn(b board.Board) board.Board {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return b
	}
	cell := empty[s.src.Intn(len(empty))]
	t := board.Tile{
		ID:          s.lastID.Add(1),
		Value:       spawnValue(s.src),
		Cell:        cell,
		JustSpawned: true,
	}
	nb, err := b.With(t)
	if err != nil {
		// the cell came from EmptyCells, so this cannot happen.
		panic(err)
	}
	return nb
}

// Reserve makes sure future identities are above id, for boards that were
// built elsewhere (fixtures, restored snapshots).
func (s *Spawner) Reserve(id uint64) {
	for {
		cur := s.lastID.Load()
		if cur >= id || s.lastID.CompareAndSwap(cur, id) {
			return
		}
	}
}

// SpawnGrid is the grid-level spawn used for fast self-play. It reports
// false when there was no empty cell.
func SpawnGrid(g board.Grid, src Source) (board.Grid, bool) {
	empty := g.EmptyCells()
	if len(empty) == 0 {
		return g, false
	}
	cell := empty[src.Intn(len(empty))]
	g[cell.Row][cell.Col] = spawnValue(src)
	return g, true
}
