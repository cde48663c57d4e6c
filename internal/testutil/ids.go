package testutil

import "fmt"

// FixedIDGenerator hands out predictable session ids: the prefix followed by
// a counter, e.g. "test-session-1". It implements shell.IDGenerator.
//
// Not safe for concurrent use; one generator per shell.
type FixedIDGenerator struct {
	prefix string
	n      int
}

// NewFixedIDGenerator returns a generator for prefix. An empty prefix means
// "test-session".
func NewFixedIDGenerator(prefix string) *FixedIDGenerator {
	if prefix == "" {
		prefix = "test-session"
	}
	return &FixedIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *FixedIDGenerator) Generate() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
