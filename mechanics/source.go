package mechanics

import (
	"encoding/binary"

	"lukechampine.com/frand"
)

// Source is the randomness the rules consume. *frand.RNG satisfies it.
type Source interface {
	Intn(n int) int
	Float64() float64
}

const (
	rngBufSize = 1024
	rngRounds  = 12
)

// NewSource returns a random source. A nonzero seed gives a reproducible
// stream; zero seeds from system entropy.
func NewSource(seed int64) *frand.RNG {
	if seed == 0 {
		return frand.New()
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], uint64(seed))
	return frand.NewCustom(key[:], rngBufSize, rngRounds)
}

// Fork derives an independent source from src. A seeded parent yields a
// reproducible child, which lets concurrent searches stay repeatable.
func Fork(src Source) *frand.RNG {
	var key [32]byte
	for i := range key {
		key[i] = byte(src.Intn(256))
	}
	return frand.NewCustom(key[:], rngBufSize, rngRounds)
}
