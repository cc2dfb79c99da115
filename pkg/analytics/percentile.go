package analytics

import "github.com/shopspring/decimal"

// Percentile computes a continuous percentile over values sorted ascending,
// with p in [0, 1]. The rank p*(n-1) is interpolated linearly between the two
// adjacent values, matching percentile_cont semantics rather than nearest-rank.
// An empty input yields zero; a single value is every percentile of itself.
func Percentile(sorted []decimal.Decimal, p decimal.Decimal) decimal.Decimal {
	n := len(sorted)
	if n == 0 {
		return decimal.Zero
	}
	if n == 1 {
		return sorted[0]
	}

	rank := p.Mul(decimal.NewFromInt(int64(n - 1)))
	lower := rank.Floor()
	idx := int(lower.IntPart())
	if idx >= n-1 {
		return sorted[n-1]
	}

	frac := rank.Sub(lower)
	return sorted[idx].Add(sorted[idx+1].Sub(sorted[idx]).Mul(frac))
}
