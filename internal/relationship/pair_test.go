// internal/relationship/pair_test.go

package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderPair(t *testing.T) {
	tests := []struct {
		name  string
		a, b  int64
		want1 int64
		want2 int64
	}{
		{"already ordered", 1, 2, 1, 2},
		{"reversed", 9, 4, 4, 9},
		{"equal", 7, 7, 7, 7},
		{"large ids", 1<<40 + 1, 1 << 40, 1 << 40, 1<<40 + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got1, got2 := orderPair(tt.a, tt.b)
			assert.Equal(t, tt.want1, got1)
			assert.Equal(t, tt.want2, got2)
		})
	}
}

// Both orderings of a pair map to the same canonical row key.
func TestOrderPairSymmetric(t *testing.T) {
	pairs := [][2]int64{{3, 11}, {11, 3}, {1, 2}, {2, 1}}

	lo, hi := orderPair(pairs[0][0], pairs[0][1])
	for _, p := range pairs[:2] {
		a, b := orderPair(p[0], p[1])
		assert.Equal(t, lo, a)
		assert.Equal(t, hi, b)
	}
	assert.LessOrEqual(t, lo, hi)
}
