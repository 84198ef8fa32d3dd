package simulator

import (
	"maps"
	"slices"
	"strings"
)

// Counts maps an observed classical bit-string to how often it was seen.
// Keys list classical bits most-significant first: c[n-1] ... c[0].
type Counts map[string]int

// Total returns the number of shots recorded.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Keys returns the observed outcomes in ascending bit-string order.
func (c Counts) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Probabilities converts the counts to observed frequencies.
func (c Counts) Probabilities() map[string]float64 {
	total := c.Total()
	probs := make(map[string]float64, len(c))
	if total == 0 {
		return probs
	}
	for outcome, n := range c {
		probs[outcome] = float64(n) / float64(total)
	}
	return probs
}

// MostFrequent returns the outcome seen most often. Ties go to the smaller
// bit-string so the result is deterministic.
func (c Counts) MostFrequent() (string, int) {
	best, bestN := "", -1
	for _, outcome := range c.Keys() {
		if n := c[outcome]; n > bestN {
			best, bestN = outcome, n
		}
	}
	return best, max(bestN, 0)
}

// Zero returns the all-zero outcome for n classical bits.
func Zero(n int) string {
	return strings.Repeat("0", n)
}

// bitString formats classical bits with c[0] rightmost.
func bitString(clbits []int) string {
	b := make([]byte, len(clbits))
	for i, v := range clbits {
		b[len(clbits)-1-i] = '0' + byte(v)
	}
	return string(b)
}
