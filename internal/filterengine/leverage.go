package filterengine

import "math"

// SafeLeverage computes the upper leverage bound per spec §4.5: the ratio
// of upside potential (distance to resistance, extended when breakout
// probability is high) to downside risk (distance to support, reduced by
// the support's own strength), scaled by a volatility-driven conservatism
// multiplier. Grounded on the teacher's risk manager's
// calculate-then-clamp idiom (internal/risk/manager.go).
func SafeLeverage(price float64, support, resistance Level, volatility, breakoutProbability float64) float64 {
	if price <= 0 {
		return 0
	}

	upside := resistance.Price - price
	if breakoutProbability > 0.6 {
		upside *= 1.2
	}
	downside := price - support.Price
	downside *= 1.2 - clamp(support.Strength, 0, 1)
	if downside <= 0 {
		return 0
	}

	ratio := upside / downside
	conservatism := conservatismMultiplier(volatility)
	leverage := ratio * conservatism
	return math.Max(0, leverage)
}

// conservatismMultiplier maps current volatility onto [0.5, 0.8]: higher
// volatility pulls the multiplier toward the conservative end.
func conservatismMultiplier(volatility float64) float64 {
	const minMult, maxMult = 0.5, 0.8
	const volFloor, volCeil = 0.0, 0.10
	v := clamp(volatility, volFloor, volCeil)
	frac := v / volCeil
	return maxMult - frac*(maxMult-minMult)
}

// StopLossForLong places a stop below the nearest strong support, tightened
// when the implied loss at the given leverage would exceed 10% of equity.
func StopLossForLong(entryPrice float64, support Level, leverage float64) float64 {
	distancePct := clamp(0.02*(1.2-clamp(support.Strength, 0, 1)), 0.01, 0.15)
	stop := entryPrice * (1 - distancePct)

	if leverage > 0 {
		lossAtLeverage := distancePct * leverage
		if lossAtLeverage > 0.10 {
			cappedDistancePct := 0.10 / leverage
			stop = entryPrice * (1 - cappedDistancePct)
		}
	}
	return stop
}

// TakeProfitForLong places a target near resistance, extended when
// breakout probability is high, otherwise short of it.
func TakeProfitForLong(entryPrice float64, resistance Level, breakoutProbability float64) float64 {
	distance := resistance.Price - entryPrice
	if breakoutProbability > 0.6 {
		return resistance.Price + distance*0.10
	}
	return resistance.Price - distance*0.10
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
