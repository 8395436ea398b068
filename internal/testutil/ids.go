package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator returns "<prefix>-0001", "<prefix>-0002", ...
//
// The same scenario with a fresh generator produces the same record ids,
// which keeps golden snapshots byte-identical.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator. An empty prefix means "rec".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "rec"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id.
//
// Implements engine.IDGenerator.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
