package extraction

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Scoring weights.
const (
	lengthDivisor        = 10.0
	maxLengthPoints      = 50.0
	maxWordPoints        = 20.0
	confidenceWeight     = 20.0
	specialCharThreshold = 0.3
	minMeaningfulRunes   = 3

	// ExcellentScore stops the strategy loop when exceeded.
	ExcellentScore = 80.0

	// MinimumAcceptableScore is the lowest best score that avoids an
	// emergency result.
	MinimumAcceptableScore = 10.0
)

// Scorer rates an extraction output. Higher is better; empty text scores 0.
type Scorer interface {
	Score(text string, confidence float64) float64
}

// DefaultScorer rewards length, meaningful words and confidence, and
// penalizes outputs dominated by symbols.
type DefaultScorer struct{}

var _ Scorer = DefaultScorer{}

func (DefaultScorer) Score(text string, confidence float64) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	length := float64(utf8.RuneCountInString(text))
	score := math.Min(length/lengthDivisor, maxLengthPoints) +
		math.Min(float64(meaningfulWords(text)), maxWordPoints) +
		confidence*confidenceWeight

	if ratio := specialCharRatio(text); ratio > specialCharThreshold {
		score *= 1 - ratio
	}
	return score
}

func meaningfulWords(text string) int {
	count := 0
	for _, field := range strings.Fields(text) {
		word := strings.TrimFunc(field, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if utf8.RuneCountInString(word) < minMeaningfulRunes {
			continue
		}
		if strings.IndexFunc(word, unicode.IsLetter) >= 0 {
			count++
		}
	}
	return count
}

// specialCharRatio is the share of runes that are neither alphanumeric nor
// whitespace.
func specialCharRatio(text string) float64 {
	var total, special int
	for _, r := range text {
		total++
		if !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.IsSpace(r) {
			special++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(special) / float64(total)
}
