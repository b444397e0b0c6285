package indent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/m2t/internal/indent"
)

func TestAsString(t *testing.T) {
	i := indent.New("  ")
	assert.Equal(t, "", i.String())
	i = i.Increment().Increment()
	assert.Equal(t, "    ", i.String())
}

func TestDecrementFloor(t *testing.T) {
	i := indent.New("\t")
	assert.Equal(t, 0, i.Decrement().Level())
}

func TestIncrementDecrementRoundtrip(t *testing.T) {
	i := indent.New("\t").Increment().Increment().Increment()
	assert.Equal(t, i, i.Increment().Decrement())
}

func TestEqualityIsStructural(t *testing.T) {
	a := indent.New("x").Increment()
	b := indent.New("x").Increment()
	assert.Equal(t, a, b)
}
