package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceIDGenerator(t *testing.T) {
	g := NewSequenceIDGenerator("")
	assert.Equal(t, "rec-0001", g.Generate())
	assert.Equal(t, "rec-0002", g.Generate())

	other := NewSequenceIDGenerator("run")
	assert.Equal(t, "run-0001", other.Generate())
}
