package scoring

import "math"

// Composite blends the three sub-scores into one ranking number for content
// that already exists.
func Composite(relevance, engagement, timing int) int {
	return int(math.Round(float64(relevance)*0.40 + float64(engagement)*0.35 + float64(timing)*0.25))
}

// TrendPriority ranks a trend before any content exists, deciding what is
// worth generating for. Volume substitutes for the not-yet-computable
// engagement score.
func TrendPriority(relevance, timing, volume int) int {
	volumeBoost := math.Min(float64(volume)/10000, 20)
	return int(math.Round(float64(relevance)*0.50 + float64(timing)*0.30 + volumeBoost*0.20))
}
