package game

import "math"

// Score maps a landing distance to an integer in [0, MaxScore].
//
// Inside the perfect zone the score is exactly MaxScore. Within the target
// radius it decays along a square-root curve and is held to [850, 999], so a
// landing on the target always beats one beside it. Past the target it decays
// linearly to zero at maxDistance.
func Score(distance, maxDistance float64) int {
	if math.IsNaN(distance) || math.IsNaN(maxDistance) {
		return 0
	}
	distance = math.Abs(distance)

	if distance >= maxDistance {
		return 0
	}
	if distance <= PerfectRadius {
		return MaxScore
	}
	if distance <= TargetRadius {
		t := (distance - PerfectRadius) / (TargetRadius - PerfectRadius)
		score := int(math.Round(940*math.Sqrt(1-t) + 60))
		return clampInt(score, 850, 999)
	}

	t := (distance - TargetRadius) / (maxDistance - TargetRadius)
	score := int(math.Round(850 * (1 - t)))
	if score < 0 {
		return 0
	}
	return score
}

// Rating returns the display label for a score.
func Rating(score int) string {
	switch {
	case score >= 995:
		return "PERFECT!"
	case score >= 900:
		return "GREAT!"
	case score >= 750:
		return "GOOD!"
	case score >= 500:
		return "OK"
	default:
		return "MISS"
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
