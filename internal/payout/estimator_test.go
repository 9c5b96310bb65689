package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimatePayoutFirstVote(t *testing.T) {
	// $10 pledge, first vote on an option: $5 is earmarked for voters and the
	// single voter would take all of it.
	est := EstimatePayout(10, 1)

	assert.Equal(t, 5.0, est.AmountForVoters)
	assert.Equal(t, 5.0, est.PerVoterPayout)
	assert.False(t, est.LowPayout)
}

func TestEstimatePayoutCrowdedOption(t *testing.T) {
	// Same pledge after 60 votes: 5/60 ≈ $0.083, under the ten cent floor.
	est := EstimatePayout(10, 60)

	assert.InDelta(t, 0.0833, est.PerVoterPayout, 0.001)
	assert.True(t, est.LowPayout)
}

func TestEstimatePayoutBoundary(t *testing.T) {
	// Exactly ten cents per voter is not low.
	est := EstimatePayout(10, 50)
	assert.Equal(t, 0.10, est.PerVoterPayout)
	assert.False(t, est.LowPayout)

	est = EstimatePayout(10, 51)
	assert.True(t, est.LowPayout)
}

func TestEstimatePayoutNoPledge(t *testing.T) {
	assert.False(t, EstimatePayout(0, 10).LowPayout)
	assert.False(t, EstimatePayout(-5, 10).LowPayout)
	assert.Zero(t, EstimatePayout(0, 10).AmountForVoters)
}

func TestEstimatePayoutNoVotes(t *testing.T) {
	// Candidate vote counts include the prospective vote, so zero only occurs
	// when nothing is being evaluated; the estimator must not divide.
	est := EstimatePayout(10, 0)
	assert.Zero(t, est.PerVoterPayout)
	assert.False(t, est.LowPayout)
}

func TestPercentageEmptyPoll(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 0, Percentage(5, 0))
}

func TestPercentageSumsToRoughly100(t *testing.T) {
	votes := []int{1, 1, 1} // 33 + 33 + 33 = 99 after rounding
	total := 3

	sum := 0
	for _, v := range votes {
		sum += Percentage(v, total)
	}
	assert.InDelta(t, 100, sum, 1)

	assert.Equal(t, 100, Percentage(7, 7))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 67, Percentage(2, 3))
}
