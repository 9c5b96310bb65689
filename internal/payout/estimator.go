// internal/payout/estimator.go
package payout

import "math"

// Observed platform constants: half of a pledge is earmarked for the winning
// voters, and a vote is flagged as low-value once the per-voter share drops
// under ten cents.
const (
	VoterShareFraction    = 0.50
	MinimumPayoutPerVoter = 0.10
)

// Estimate is the advisory result shown to a prospective voter. It never
// blocks a vote.
type Estimate struct {
	AmountForVoters float64 `json:"amountForVoters"`
	PerVoterPayout  float64 `json:"perVoterPayout"`
	LowPayout       bool    `json:"lowPayout"`
}

// EstimatePayout evaluates the pledge split for an option that would hold
// candidateVotes votes after the prospective vote is counted. pledgeAmount is
// in major currency units; a zero or negative pledge yields a zero estimate.
func EstimatePayout(pledgeAmount float64, candidateVotes int) Estimate {
	if pledgeAmount <= 0 || candidateVotes <= 0 {
		return Estimate{}
	}

	amountForVoters := pledgeAmount * VoterShareFraction
	perVoter := amountForVoters / float64(candidateVotes)

	return Estimate{
		AmountForVoters: amountForVoters,
		PerVoterPayout:  perVoter,
		LowPayout:       perVoter < MinimumPayoutPerVoter,
	}
}

// Percentage returns an option's rounded share of the total for display.
// A poll with no votes shows 0 for every option.
func Percentage(optionVotes, totalVotes int) int {
	if totalVotes <= 0 {
		return 0
	}
	return int(math.Round(float64(optionVotes) / float64(totalVotes) * 100))
}
