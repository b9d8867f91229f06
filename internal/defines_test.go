package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat(t *testing.T) {
	assert := assert.New(t)

	a := map[string]string{"A": "1", "B": "2"}
	b := map[string]string{"B": "3", "C": "0x10"}

	all := maps.Collect(Concat(maps.All(a), maps.All(b)))
	assert.Equal(map[string]string{"A": "1", "B": "2", "C": "0x10"}, all)

	count := 0
	for range Concat(maps.All(a), maps.All(b)) {
		count++
		break
	}
	assert.Equal(1, count)
}

func TestIntegers(t *testing.T) {
	assert := assert.New(t)

	defs := map[string]string{"A": "17", "B": "0x8040_0000", "C": "sp"}
	ints := maps.Collect(Integers(maps.All(defs)))
	assert.Equal(map[string]uint64{"A": 17, "B": 0x8040_0000}, ints)
}
