package algorithm

import (
	"qdeutsch/internal/simulator"
)

// Verdict is the decision read off a Deutsch-Jozsa measurement distribution.
type Verdict int

const (
	Undetermined Verdict = iota
	Constant
	Balanced
)

func (v Verdict) String() string {
	switch v {
	case Constant:
		return "constant"
	case Balanced:
		return "balanced"
	default:
		return "undetermined"
	}
}

// Classify reads the verdict from counts over n classical bits. Every shot on
// the all-zero string means constant, no shot on it means balanced. A mix
// only happens for oracles that are not valid black boxes, such as ones that
// reset an input qubit.
func Classify(counts simulator.Counts, n int) Verdict {
	total := counts.Total()
	if total == 0 {
		return Undetermined
	}
	switch zeros := counts[simulator.Zero(n)]; zeros {
	case total:
		return Constant
	case 0:
		return Balanced
	default:
		return Undetermined
	}
}

// ClassifyTolerant is Classify for noisy hardware: the all-zero share must be
// at least 1-tolerance for constant and at most tolerance for balanced.
func ClassifyTolerant(counts simulator.Counts, n int, tolerance float64) Verdict {
	total := counts.Total()
	if total == 0 {
		return Undetermined
	}
	share := float64(counts[simulator.Zero(n)]) / float64(total)
	switch {
	case share >= 1-tolerance:
		return Constant
	case share <= tolerance:
		return Balanced
	default:
		return Undetermined
	}
}
