package engine

// DefaultMinCommon is the smallest number of shared answered questions that
// produces a score.
const DefaultMinCommon = 3

// maxDistance is the largest per-question gap on the -2..2 scale.
const maxDistance = int(MaxValue - MinValue)

// Signal maps question id to a member's answered value.
type Signal map[uint64]Value

// Score is the compatibility of two members over their shared questions.
type Score struct {
	Similarity int // 0..100
	Common     int
	Distance   int
}

// Similarity scores two signals. ok is false when fewer than minCommon
// questions are shared; the caller treats that as a near miss.
//
// similarity = round(100 × (1 − distance / (4 × common))), rounded half away
// from zero in integer arithmetic so equal inputs always agree.
func Similarity(subject, candidate Signal, minCommon int) (Score, bool) {
	if minCommon < 1 {
		minCommon = 1
	}

	small, large := subject, candidate
	if len(large) < len(small) {
		small, large = large, small
	}

	var common, distance int
	for q, a := range small {
		b, shared := large[q]
		if !shared {
			continue
		}
		common++
		distance += absDiff(a, b)
	}

	if common < minCommon {
		return Score{Common: common, Distance: distance}, false
	}

	// d ≤ 4n, so num is never negative and integer division floors.
	denom := maxDistance * common
	num := 100 * (denom - distance)
	sim := (2*num + denom) / (2 * denom)

	return Score{Similarity: sim, Common: common, Distance: distance}, true
}

func absDiff(a, b Value) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
