package filterengine

import (
	"binance-trading-bot/internal/analysis"
	"binance-trading-bot/internal/domain"
)

const levelBandPct = 0.005 // swings within 0.5% of each other cluster into one level

// detectLevels clusters swing lows/highs detected over the given window into
// support/resistance levels, scoring strength by retest count — more swings
// clustering near the same price band means a stronger level. Grounded on
// the teacher's swing-point structure analyzer; strength scoring is new
// since the teacher has no equivalent "strength" notion.
func detectLevels(window []domain.Candle, swingLookback int) (supports, resistances []Level) {
	if swingLookback <= 0 {
		swingLookback = 5
	}
	ta := analysis.NewTrendAnalyzer(swingLookback)
	if len(window) < swingLookback*2 {
		return nil, nil
	}

	lows := ta.FindSwingLows(window)
	highs := ta.FindSwingHighs(window)

	supports = clusterLevels(swingPrices(lows))
	resistances = clusterLevels(swingPrices(highs))
	return supports, resistances
}

func swingPrices(points []analysis.SwingPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price
	}
	return out
}

// clusterLevels groups nearby prices and scores each cluster's strength as
// its retest count normalized against the largest cluster, so the strongest
// level in the window always scores 1.0.
func clusterLevels(prices []float64) []Level {
	if len(prices) == 0 {
		return nil
	}

	type cluster struct {
		sum   float64
		count int
	}
	var clusters []cluster

	for _, price := range prices {
		placed := false
		for i := range clusters {
			mean := clusters[i].sum / float64(clusters[i].count)
			if mean == 0 {
				continue
			}
			if abs(price-mean)/mean <= levelBandPct {
				clusters[i].sum += price
				clusters[i].count++
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, cluster{sum: price, count: 1})
		}
	}

	maxCount := 0
	for _, c := range clusters {
		if c.count > maxCount {
			maxCount = c.count
		}
	}
	if maxCount == 0 {
		return nil
	}

	levels := make([]Level, 0, len(clusters))
	for _, c := range clusters {
		levels = append(levels, Level{
			Price:    c.sum / float64(c.count),
			Strength: float64(c.count) / float64(maxCount),
		})
	}
	return levels
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
