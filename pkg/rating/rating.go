// Package rating maps between 0-100 priority scores and 0-5 star ratings.
//
// The mapping is lossy on purpose: scores are bucketed into stars, and stars
// map back to the lower edge of their bucket (95 for five stars).
package rating

import "math"

// Bucket lower bounds, highest first.
var buckets = []struct {
	minScore float64
	stars    int
}{
	{95, 5},
	{80, 4},
	{60, 3},
	{40, 2},
	{20, 1},
}

// StarsFromScore buckets a priority score into 0-5 stars.
func StarsFromScore(score float64) int {
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	for _, b := range buckets {
		if score >= b.minScore {
			return b.stars
		}
	}
	return 0
}

// ScoreFromStars returns the canonical score for a star rating.
func ScoreFromStars(stars int) int {
	switch {
	case stars >= 5:
		return 95
	case stars == 4:
		return 80
	case stars == 3:
		return 60
	case stars == 2:
		return 40
	case stars == 1:
		return 20
	default:
		return 0
	}
}

// ClampStars rounds a stored rating and clamps it to [0, 5].
func ClampStars(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	s := int(math.Floor(v + 0.5))
	if s < 0 {
		return 0
	}
	if s > 5 {
		return 5
	}
	return s
}
