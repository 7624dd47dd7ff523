package longdoc

import "math"

// TokenEstimator approximates how many model tokens a text occupies.
type TokenEstimator interface {
	Estimate(text string) int
}

// EstimatorFunc adapts a function to TokenEstimator.
type EstimatorFunc func(text string) int

// Estimate calls f.
func (f EstimatorFunc) Estimate(text string) int { return f(text) }

// HeuristicEstimator counts ~4 characters per token for Latin text and ~1.5
// characters per token for CJK.
type HeuristicEstimator struct{}

// Estimate implements TokenEstimator.  Pure ASCII text yields ceil(len/4).
func (HeuristicEstimator) Estimate(text string) int {
	if text == "" {
		return 0
	}
	cjk, other := 0, 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}
	return int(math.Ceil(float64(cjk)/1.5 + float64(other)/4))
}

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0x2A700 && r <= 0x2CEAF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F) ||
		(r >= 0x3000 && r <= 0x303F) || // CJK punctuation
		(r >= 0x3040 && r <= 0x30FF) || // kana
		(r >= 0xAC00 && r <= 0xD7AF) || // hangul
		(r >= 0xFF00 && r <= 0xFFEF) // fullwidth forms
}

//Personal.AI order the ending
