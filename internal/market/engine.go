package market

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Engine tuning constants (§4.5). These mirror the Python original's
// class-level constants exactly; they are not meant to be configurable
// per run.
const (
	sampleLo  = 0.15
	sampleHi  = 0.30
	maxJumpMul = 1.20
	maxStdMul  = 1.50
)

// PriceGroup is one distinct price and the total quantity listed at that
// price, as consumed by CalcMarketValue (§4.5). Callers pass groups in
// ascending price order.
type PriceGroup struct {
	Price    uint64
	Quantity uint64
}

// CalcMarketValue implements the robust trimmed-mean statistic (§4.5,
// §8 properties 6/7). itemN is the total quantity across the item; groups
// must be sorted ascending by price. ok is false when itemN == 0 or when no
// quantity ends up sampled (for example, groups is empty).
func CalcMarketValue(itemN uint64, groups []PriceGroup) (value uint64, ok bool) {
	if itemN == 0 {
		return 0, false
	}

	lo := uint64(float64(itemN) * sampleLo)
	hi := uint64(float64(itemN) * sampleHi)

	type sample struct {
		price    uint64
		quantity uint64
	}
	var samples []sample
	var samplesN uint64
	var samplesS float64
	var lastSample *sample

	for _, g := range groups {
		if lastSample != nil && samplesN >= lo &&
			(samplesN >= hi || float64(g.Price) >= maxJumpMul*float64(lastSample.price)) {
			break
		}

		samples = append(samples, sample{price: g.Price, quantity: g.Quantity})
		samplesN += g.Quantity
		samplesS += float64(g.Price) * float64(g.Quantity)

		if samplesN > hi {
			offBy := samplesN - hi
			last := &samples[len(samples)-1]
			last.quantity -= offBy
			samplesN -= offBy
			samplesS -= float64(last.price) * float64(offBy)

			if last.quantity == 0 {
				if lastSample != nil {
					samples = samples[:len(samples)-1]
				} else {
					last.quantity = 1
					samplesN++
					samplesS += float64(last.price)
				}
			}
			break
		}

		s := samples[len(samples)-1]
		lastSample = &s
	}

	if samplesN == 0 {
		return 0, false
	}

	prices := make([]float64, len(samples))
	weights := make([]float64, len(samples))
	for i, s := range samples {
		prices[i] = float64(s.price)
		weights[i] = float64(s.quantity)
	}

	mean := stat.Mean(prices, weights)

	var std float64
	if samplesN > 1 {
		var variance float64
		if samplesN == itemN {
			_, variance = stat.PopMeanVariance(prices, weights)
		} else {
			_, variance = stat.MeanVariance(prices, weights)
		}
		std = math.Sqrt(variance)
	}

	threshold := maxStdMul * std
	for i, s := range samples {
		if math.Abs(prices[i]-mean) > threshold {
			samplesS -= prices[i] * weights[i]
			samplesN -= s.quantity
		}
	}

	return uint64(samplesS / float64(samplesN)), true
}
