package rates

import "time"

// Normalize rescales a sample from its native funding cycle to the cycle
// implied by periodsPerDay, so every venue scores on the same per-period
// basis. Samples that do not report an interval are assumed to already
// match the target cycle.
func Normalize(sample Sample, periodsPerDay float64) Sample {
	sample.Confidence = clampConfidence(sample.Confidence)
	if periodsPerDay <= 0 || sample.Interval <= 0 {
		return sample
	}
	target := time.Duration(float64(24*time.Hour) / periodsPerDay)
	if sample.Interval == target {
		return sample
	}
	sample.Rate = sample.Rate * target.Hours() / sample.Interval.Hours()
	sample.Interval = target
	return sample
}

func clampConfidence(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
