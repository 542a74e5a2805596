package pricing

import "testing"

func TestComputeBuyTargets(t *testing.T) {
	tests := []struct {
		name              string
		market, msrp, bps int64
		want              BuyTargets
		inverted          bool
	}{
		{
			name:   "tudor reference",
			market: 380000, msrp: 455000, bps: 1500,
			want: BuyTargets{
				BrandTargetCents:            386750,
				SuggestedBuyMinus2000Cents:  180000,
				SuggestedBuyMinus20PctCents: 304000,
				BuyRange:                    [2]int64{180000, 386750},
			},
		},
		{
			name:   "no market data",
			market: 0, msrp: 455000, bps: 1500,
			want: BuyTargets{
				BrandTargetCents:            386750,
				SuggestedBuyMinus2000Cents:  -200000,
				SuggestedBuyMinus20PctCents: 0,
				BuyRange:                    [2]int64{0, 386750},
			},
		},
		{
			name:   "cheap market clamps at zero",
			market: 150000, msrp: 200000, bps: 0,
			want: BuyTargets{
				BrandTargetCents:            200000,
				SuggestedBuyMinus2000Cents:  -50000,
				SuggestedBuyMinus20PctCents: 120000,
				BuyRange:                    [2]int64{0, 200000},
			},
		},
		{
			name:   "market far above brand target",
			market: 2000000, msrp: 500000, bps: 2000,
			want: BuyTargets{
				BrandTargetCents:            400000,
				SuggestedBuyMinus2000Cents:  1800000,
				SuggestedBuyMinus20PctCents: 1600000,
				BuyRange:                    [2]int64{1600000, 400000},
			},
			inverted: true,
		},
		{
			name:   "discount rounds half away from zero",
			market: 1000000, msrp: 1000, bps: 5,
			want: BuyTargets{
				BrandTargetCents:            999,
				SuggestedBuyMinus2000Cents:  800000,
				SuggestedBuyMinus20PctCents: 800000,
				BuyRange:                    [2]int64{800000, 999},
			},
			inverted: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeBuyTargets(tt.market, tt.msrp, tt.bps)
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got.Inverted() != tt.inverted {
				t.Fatalf("Inverted() = %v, want %v", got.Inverted(), tt.inverted)
			}
		})
	}
}
