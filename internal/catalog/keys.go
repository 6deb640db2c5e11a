package catalog

import (
	"math/rand/v2"
	"strconv"
	"sync"
)

const defaultKeyDigits = 6

// KeyGenerator hands out random numeric keys that never repeat for the life
// of the generator. Keys are 6 digits until that space is used up, then the
// width grows by one digit.
type KeyGenerator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	digits int
	used   map[string]struct{}
	inUse  int // keys issued at the current width
}

// NewKeyGenerator returns a generator seeded from the runtime's random source.
func NewKeyGenerator() *KeyGenerator {
	return newKeyGenerator(defaultKeyDigits, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))
}

func newKeyGenerator(digits int, rng *rand.Rand) *KeyGenerator {
	return &KeyGenerator{
		rng:    rng,
		digits: digits,
		used:   make(map[string]struct{}),
	}
}

// Next returns a key not issued before by this generator.
func (g *KeyGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	low := pow10(g.digits - 1)
	span := 9 * low
	if g.inUse >= span {
		g.digits++
		g.inUse = 0
		low = pow10(g.digits - 1)
		span = 9 * low
	}
	for {
		key := strconv.Itoa(low + g.rng.IntN(span))
		if _, taken := g.used[key]; taken {
			continue
		}
		g.used[key] = struct{}{}
		g.inUse++
		return key
	}
}

func pow10(n int) int {
	p := 1
	for range n {
		p *= 10
	}
	return p
}
