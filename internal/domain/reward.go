package domain

// Reward tiers
const (
	FirstRankReward     int64 = 10000
	SecondRankReward    int64 = 5000
	ThirdRankReward     int64 = 3000
	NonPodiumRankReward int64 = 1000

	LastRewardedRank = 10
)

// RewardFor returns the payout for a final group rank
func RewardFor(rank int) (int64, error) {
	switch {
	case rank == 1:
		return FirstRankReward, nil
	case rank == 2:
		return SecondRankReward, nil
	case rank == 3:
		return ThirdRankReward, nil
	case rank >= 4 && rank <= LastRewardedRank:
		return NonPodiumRankReward, nil
	default:
		return 0, ErrNoRewardEarned
	}
}

// EarnsReward reports whether a rank is inside the rewarded tiers
func EarnsReward(rank int) bool {
	return rank >= 1 && rank <= LastRewardedRank
}
