package seo

import "math"

// DefaultCTR applies to unranked keywords and positions past the table.
const DefaultCTR = 0.01

var ctrByPosition = map[int]float64{
	1: 0.28,
	2: 0.16,
	3: 0.11,
	4: 0.08,
	5: 0.06,
}

// CTR returns the expected click-through rate for a SERP position.
func CTR(position int) float64 {
	if ctr, ok := ctrByPosition[position]; ok {
		return ctr
	}
	return DefaultCTR
}

// EstimateTraffic returns the estimated monthly visits and their value for a
// keyword ranked at position.
func EstimateTraffic(searchVolume, position int, cpc float64) (traffic, value float64) {
	traffic = float64(searchVolume) * CTR(position)
	return traffic, Round2(traffic * cpc)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
