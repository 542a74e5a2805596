// Package pricing turns a market low and a brand discount into a suggested
// buy range.
package pricing

import "math"

// FixedFloorCents is the flat amount taken off the market low.
const FixedFloorCents = 200000

type BuyTargets struct {
	BrandTargetCents            int64    `json:"brandTargetCents"`
	SuggestedBuyMinus2000Cents  int64    `json:"suggestedBuyMinus2000Cents"`
	SuggestedBuyMinus20PctCents int64    `json:"suggestedBuyMinus20PctCents"`
	BuyRange                    [2]int64 `json:"buyRange"`
}

// ComputeBuyTargets derives the buy range. The low end is the smaller of the
// two market floors clamped at zero; the high end is the brand target. The
// pair is returned as computed even when low exceeds high.
func ComputeBuyTargets(marketLowestCents, msrpCents, brandDiscountBps int64) BuyTargets {
	brandTarget := msrpCents - round(float64(msrpCents*brandDiscountBps)/10000)
	minusFixed := marketLowestCents - FixedFloorCents
	minusPct := round(float64(marketLowestCents) * 0.8)

	low := minusFixed
	if minusPct < low {
		low = minusPct
	}
	if low < 0 {
		low = 0
	}

	return BuyTargets{
		BrandTargetCents:            brandTarget,
		SuggestedBuyMinus2000Cents:  minusFixed,
		SuggestedBuyMinus20PctCents: minusPct,
		BuyRange:                    [2]int64{low, brandTarget},
	}
}

// Inverted reports whether the market floor sits above the brand target.
func (b BuyTargets) Inverted() bool {
	return b.BuyRange[0] > b.BuyRange[1]
}

func round(f float64) int64 {
	return int64(math.Round(f))
}
