// Package settlement derives the money figures for a finished stage: gross
// revenue, rake, the ranking prize pool and the net prize pool.
package settlement

import "math"

// FeeSchedule is the fee configuration of a game category. Amounts are
// decimal values in the house currency; percents run 0-100. A schedule is
// immutable once a stage has been opened against it.
type FeeSchedule struct {
	ID             string
	Name           string
	BuyIn          float64
	ReBuy          float64
	ReBuyDuplo     float64
	AddOn          float64
	RakePercent    float64
	RankingPercent float64
}

// Contribution is what a single stage entry paid in: the buy-in is implicit,
// rebuys and double rebuys multiply their fee, and any add-on count above
// zero charges the add-on fee exactly once.
type Contribution struct {
	Rebuys       int
	DoubleRebuys int
	Addons       int
}

// Result is the settled money breakdown for one stage. It is always derived,
// never stored on its own.
type Result struct {
	GrossTotal           float64
	RakeAmount           float64
	PostRakeAmount       float64
	RankingPrizeAmount   float64
	AdministrativeAmount float64
	NetAmount            float64
}

// EntryGross returns the gross contribution of a single entry under the
// given fee schedule.
func EntryGross(c Contribution, fees FeeSchedule) float64 {
	gross := fees.BuyIn
	gross += float64(c.Rebuys) * fees.ReBuy
	gross += float64(c.DoubleRebuys) * fees.ReBuyDuplo
	if c.Addons > 0 {
		gross += fees.AddOn
	}
	return gross
}

// Settle aggregates the stage money. The ranking prize floors and the net
// amount ceils so that rounding loss lands on the house side, never in the
// prize pool. adminAmount is an operator-entered deduction from the net
// pool; zero means none.
//
// rankingPrizeOverride, when non-nil, replaces the computed ranking prize
// in the result and in everything derived from it. Gross and rake stay
// computed either way.
func Settle(entries []Contribution, fees FeeSchedule, adminAmount float64, rankingPrizeOverride *float64) Result {
	var gross float64
	for _, e := range entries {
		gross += EntryGross(e, fees)
	}

	rake := gross * fees.RakePercent / 100
	postRake := gross - rake

	rankingPrize := math.Floor(postRake * fees.RankingPercent / 100)
	if rankingPrizeOverride != nil {
		rankingPrize = *rankingPrizeOverride
	}

	net := math.Ceil(postRake - rankingPrize)
	if adminAmount > 0 {
		net -= adminAmount
	}

	return Result{
		GrossTotal:           gross,
		RakeAmount:           rake,
		PostRakeAmount:       postRake,
		RankingPrizeAmount:   rankingPrize,
		AdministrativeAmount: adminAmount,
		NetAmount:            net,
	}
}
