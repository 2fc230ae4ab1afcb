package shortcode

import (
	"math/rand"
	"sync"
	"time"
)

// Alphabet is the fixed 62-character set short codes are drawn from
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the default short code length
const DefaultLength = 7

// Generator produces random short codes. The RNG is injected so tests can
// seed it deterministically; rand.Intn keeps the per-character distribution
// uniform over the alphabet. Safe for concurrent use.
type Generator struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewGenerator creates a generator backed by the given RNG
func NewGenerator(r *rand.Rand) *Generator {
	return &Generator{r: r}
}

// NewSeededGenerator creates a generator seeded from the wall clock
func NewSeededGenerator() *Generator {
	return NewGenerator(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// Generate returns a random code of the given length
func (g *Generator) Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	b := make([]byte, length)
	g.mu.Lock()
	for i := range b {
		b[i] = Alphabet[g.r.Intn(len(Alphabet))]
	}
	g.mu.Unlock()
	return string(b)
}
