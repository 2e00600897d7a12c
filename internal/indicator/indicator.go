// Package indicator holds the pure, side-effect-free calculators the
// scheduler runs against a PriceSeries: SMA, EMA, RSI (Wilder's smoothing),
// MACD(12,26,9), and oversold/overbought classification. None of these
// functions touch a clock, a cache, or a store — every result is a
// deterministic function of its input slice.
package indicator

import "marketanalysis/internal/utils"

// MACDValue is the MACD(12,26,9) triple for a single point in time.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// SMA returns the arithmetic mean of the most recent period closes, or nil
// if closes is shorter than period.
func SMA(period int, closes []float64) *float64 {
	if period <= 0 || len(closes) < period {
		return nil
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return utils.Float64Ptr(sum / float64(period))
}

// emaSeries runs the exponential moving average over values, seeding with
// the SMA of the first period entries. The returned slice has
// len(values)-period+1 entries; out[0] is the seed EMA, aligned with
// values[period-1]. Returns nil if values is shorter than period.
func emaSeries(period int, values []float64) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	alpha := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	ema := seed / float64(period)

	out := make([]float64, len(values)-period+1)
	out[0] = ema
	idx := 1
	for i := period; i < len(values); i++ {
		ema = values[i]*alpha + ema*(1-alpha)
		out[idx] = ema
		idx++
	}
	return out
}

// EMA returns the final exponential moving average over closes, seeded with
// the SMA of the first period closes, or nil if closes is shorter than
// period.
func EMA(period int, closes []float64) *float64 {
	series := emaSeries(period, closes)
	if series == nil {
		return nil
	}
	return utils.Float64Ptr(series[len(series)-1])
}

// RSI computes the Relative Strength Index using Wilder's smoothing (SMMA),
// not a rolling simple average of gains and losses. Returns nil if closes
// has fewer than period+1 bars.
//
// A prior implementation seeded and re-averaged gains/losses with a rolling
// SMA instead of Wilder's recursive smoothing; that produces RSI values that
// drift by roughly ten points from the canonical figure and must not be
// reintroduced.
func RSI(period int, closes []float64) *float64 {
	if period <= 0 || len(closes) < period+1 {
		return nil
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum += -delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		var gain, loss float64
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	var rsi float64
	switch {
	case avgGain == 0 && avgLoss == 0:
		rsi = 50
	case avgLoss == 0:
		rsi = 100
	default:
		rs := avgGain / avgLoss
		rsi = 100 - 100/(1+rs)
	}
	return utils.Float64Ptr(rsi)
}

// MACD computes the MACD line (EMA(fast) - EMA(slow)), the signal line
// (EMA(signal) over the MACD-line series), and the histogram. Returns nil
// unless closes has at least slow+signal-1 bars, since a MACD value without
// a stable signal is not useful and the spec treats the triple as one unit.
//
// The signal line is an EMA over the sequence of MACD-line values, not over
// the raw closes — a prior implementation approximated the signal as
// macd*0.9, a shortcut that must not be reintroduced.
func MACD(fast, slow, signal int, closes []float64) *MACDValue {
	if len(closes) < slow+signal-1 {
		return nil
	}

	fastSeries := emaSeries(fast, closes)
	slowSeries := emaSeries(slow, closes)
	if fastSeries == nil || slowSeries == nil {
		return nil
	}

	// slowSeries[i] aligns with absolute close index slow-1+i; fastSeries is
	// longer (it starts earlier), so reindex it onto the same absolute axis.
	macdLine := make([]float64, len(slowSeries))
	for i := range macdLine {
		absIdx := slow - 1 + i
		fastIdx := absIdx - (fast - 1)
		macdLine[i] = fastSeries[fastIdx] - slowSeries[i]
	}

	signalSeries := emaSeries(signal, macdLine)
	if signalSeries == nil {
		return nil
	}

	lastMACD := macdLine[len(macdLine)-1]
	lastSignal := signalSeries[len(signalSeries)-1]
	return &MACDValue{
		MACD:      lastMACD,
		Signal:    lastSignal,
		Histogram: lastMACD - lastSignal,
	}
}

// Classify derives is_oversold/is_overbought from rsi. Both are false when
// rsi is nil.
func Classify(rsi *float64) (oversold, overbought bool) {
	if rsi == nil {
		return false, false
	}
	return *rsi < 30, *rsi > 70
}
