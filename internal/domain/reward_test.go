package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardFor(t *testing.T) {
	tests := []struct {
		name string
		rank int
		want int64
	}{
		{name: "first", rank: 1, want: 10000},
		{name: "second", rank: 2, want: 5000},
		{name: "third", rank: 3, want: 3000},
		{name: "fourth", rank: 4, want: 1000},
		{name: "tenth", rank: 10, want: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewardFor(tt.rank)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, EarnsReward(tt.rank))
		})
	}
}

func TestRewardForOutsideTiers(t *testing.T) {
	for _, rank := range []int{0, -1, 11, 20} {
		_, err := RewardFor(rank)
		assert.ErrorIs(t, err, ErrNoRewardEarned, "rank %d", rank)
		assert.False(t, EarnsReward(rank))
	}
}
