// Package cleaner normalizes raw OCR output from Latin-American legal
// documents into text suitable for chunking and embedding.
//
// Cleaning is a fixed sequence of passes:
//   - folio references ("F 5362 F", "Folio 12", "F° 123") are removed
//   - repertorio codes ("Repertorio N° 4512", "12 x 345 678") are removed
//   - marginal numbers (alone on a line, or set off by a layout gap at a line
//     edge) are removed unless they belong to a date, a year, an amount, an
//     address or a legal reference
//   - dates, proper names and legal numbers are counted and never stripped
//   - whitespace and punctuation are normalized
//   - digit/letter confusions and misread legal terms and names are corrected
//   - blank lines are capped and lines split mid-sentence are rejoined
//
// Clean is pure and deterministic; all pattern tables are compiled once.
package cleaner

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// dateWindow is how many bytes around a marginal-number candidate are
// searched for a date before the candidate may be removed.
const dateWindow = 48

// Stats describes what a Clean call removed, preserved and corrected.
type Stats struct {
	OriginalLength int            `json:"original_length"`
	CleanedLength  int            `json:"cleaned_length"`
	RemovedItems   RemovedItems   `json:"removed_items"`
	PreservedItems PreservedItems `json:"preserved_items"`
	Corrections    int            `json:"corrections"`
}

// RemovedItems counts noise removed per pass.
type RemovedItems struct {
	FolioReferences      int `json:"folio_references"`
	RepertorioCodes      int `json:"repertorio_codes"`
	MarginalNumbers      int `json:"marginal_numbers"`
	ExtraSpaces          int `json:"extra_spaces"`
	MalformedPunctuation int `json:"malformed_punctuation"`
}

// PreservedItems counts protected substrings found in the text.
type PreservedItems struct {
	Dates        int `json:"dates"`
	Names        int `json:"names"`
	LegalNumbers int `json:"legal_numbers"`
}

// Clean turns raw extracted text into clean text plus statistics.
// Lengths are measured in runes after NFC normalization.
func Clean(raw string) (string, Stats) {
	text := norm.NFC.String(raw)
	stats := Stats{OriginalLength: utf8.RuneCountInString(text)}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text, stats.RemovedItems.FolioReferences = removeMatches(text, folioPatterns)
	text, stats.RemovedItems.RepertorioCodes = removeMatches(text, repertorioPatterns)
	text, stats.RemovedItems.MarginalNumbers = removeMarginalNumbers(text)

	stats.PreservedItems.Dates = countSpans(text, datePatterns)
	stats.PreservedItems.Names = countSpans(text, namePatterns)
	stats.PreservedItems.LegalNumbers = countSpans(text, legalNumberPatterns)

	text, stats.RemovedItems.ExtraSpaces = normalizeWhitespace(text)
	text, stats.RemovedItems.MalformedPunctuation = normalizePunctuation(text)
	text, stats.Corrections = applyCorrections(text)
	text = finalize(text)

	stats.CleanedLength = utf8.RuneCountInString(text)
	return text, stats
}

// removeMatches replaces every match of every pattern with a single space
// and returns the number of matches removed.
func removeMatches(text string, patterns []*regexp.Regexp) (string, int) {
	removed := 0
	for _, re := range patterns {
		text = re.ReplaceAllStringFunc(text, func(string) string {
			removed++
			return " "
		})
	}
	return text, removed
}

func removeMarginalNumbers(text string) (string, int) {
	removed := 0
	for _, re := range []*regexp.Regexp{reMarginalLine, reMarginalStart, reMarginalEnd} {
		var n int
		text, n = removeUnprotected(text, re)
		removed += n
	}
	return text, removed
}

// removeUnprotected deletes matches of re whose first group is not part of a
// date, a numbered legal reference, a year, an amount or an address.
func removeUnprotected(text string, re *regexp.Regexp) (string, int) {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last, removed := 0, 0
	for _, m := range matches {
		start, end := m[0], m[1]
		numStart, numEnd := m[2], m[3]
		if overlapsDate(text, numStart, numEnd) ||
			precededBy(text[:numStart], legalMarkers) ||
			precededBy(text[:numStart], contextMarkers) ||
			followedByUnit(text[numEnd:]) {
			continue
		}
		b.WriteString(text[last:start])
		last = end
		removed++
	}
	b.WriteString(text[last:])
	return b.String(), removed
}

// overlapsDate reports whether [start,end) intersects a date found in the
// surrounding window.
func overlapsDate(text string, start, end int) bool {
	lo := max(0, start-dateWindow)
	hi := min(len(text), end+dateWindow)
	window := text[lo:hi]
	for _, re := range datePatterns {
		for _, loc := range re.FindAllStringIndex(window, -1) {
			if lo+loc[0] < end && lo+loc[1] > start {
				return true
			}
		}
	}
	return false
}

// precededBy reports whether the text before a number ends with one of the
// markers as a whole word on the same line.
func precededBy(before string, markers []string) bool {
	before = strings.ToLower(strings.TrimRight(before, " \t"))
	for _, marker := range markers {
		if !strings.HasSuffix(before, marker) {
			continue
		}
		rest := before[:len(before)-len(marker)]
		r, _ := utf8.DecodeLastRuneInString(rest)
		if rest == "" || !unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func followedByUnit(after string) bool {
	after = strings.ToLower(strings.TrimLeft(after, " \t"))
	for _, unit := range unitMarkers {
		if !strings.HasPrefix(after, unit) {
			continue
		}
		r, _ := utf8.DecodeRuneInString(after[len(unit):])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// countSpans counts non-overlapping regions matched by any of the patterns.
func countSpans(text string, patterns []*regexp.Regexp) int {
	var spans [][2]int
	for _, re := range patterns {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			spans = append(spans, [2]int{loc[0], loc[1]})
		}
	}
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool {
		if spans[i][0] == spans[j][0] {
			return spans[i][1] < spans[j][1]
		}
		return spans[i][0] < spans[j][0]
	})

	count, end := 1, spans[0][1]
	for _, s := range spans[1:] {
		if s[0] < end {
			end = max(end, s[1])
			continue
		}
		count++
		end = s[1]
	}
	return count
}

func normalizeWhitespace(text string) (string, int) {
	fixed := 0
	text = reNonBreaking.ReplaceAllString(text, " ")
	text = reMultiSpace.ReplaceAllStringFunc(text, func(string) string {
		fixed++
		return " "
	})
	text = reLineEdgeSpace.ReplaceAllStringFunc(text, func(string) string {
		fixed++
		return ""
	})
	return text, fixed
}

func normalizePunctuation(text string) (string, int) {
	fixed := 0
	count := func(repl string) func(string) string {
		return func(string) string {
			fixed++
			return repl
		}
	}

	text = reSpaceBeforePunct.ReplaceAllStringFunc(text, func(m string) string {
		fixed++
		return strings.TrimLeft(m, " ")
	})
	text = reRepeatedPunct.ReplaceAllStringFunc(text, func(m string) string {
		fixed++
		return m[:1]
	})
	text = reCommaPeriod.ReplaceAllStringFunc(text, count("."))
	text = reDots.ReplaceAllStringFunc(text, func(m string) string {
		if len(m) == 2 {
			fixed++
			return "."
		}
		return m
	})
	text = reParenSpace.ReplaceAllStringFunc(text, func(m string) string {
		fixed++
		return strings.TrimSpace(m)
	})
	text = reMissingSpace.ReplaceAllStringFunc(text, func(m string) string {
		fixed++
		r, size := utf8.DecodeRuneInString(m)
		return string(r) + " " + m[size:]
	})
	return text, fixed
}

// applyCorrections fixes digit/letter confusions and dictionary misreads
// word by word, then misreads that only a phrase can confirm, returning the
// number of corrections applied.
func applyCorrections(text string) (string, int) {
	corrected := 0
	out := reWordToken.ReplaceAllStringFunc(text, func(token string) string {
		fixed := correctToken(token)
		if fixed != token {
			corrected++
		}
		return fixed
	})
	for _, pc := range phraseCorrections {
		var n int
		out, n = correctGroup(out, pc.re, pc.corr)
		corrected += n
	}
	return out, corrected
}

// correctGroup replaces the first group of every match of re with corr,
// keeping the group's case.
func correctGroup(text string, re *regexp.Regexp, corr string) (string, int) {
	matches := re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		b.WriteString(text[last:m[2]])
		b.WriteString(matchCase(text[m[2]:m[3]], corr))
		last = m[3]
	}
	b.WriteString(text[last:])
	return b.String(), len(matches)
}

func correctToken(token string) string {
	fixed := fixDigitLetterConfusion(token)

	lower := strings.ToLower(fixed)
	if corr, ok := termCorrections[lower]; ok {
		return matchCase(fixed, corr)
	}
	first, _ := utf8.DecodeRuneInString(fixed)
	if corr, ok := nameCorrections[lower]; ok && unicode.IsUpper(first) {
		return matchCase(fixed, corr)
	}
	return fixed
}

var (
	digitAsLetter = map[rune][2]rune{'0': {'o', 'O'}, '1': {'l', 'I'}, '5': {'s', 'S'}}
	letterAsDigit = map[rune]rune{'o': '0', 'O': '0', 'l': '1', 'I': '1', 's': '5', 'S': '5'}
)

// fixDigitLetterConfusion rewrites a digit sitting between two letters as
// the letter it resembles, and a look-alike letter between two digits as
// the digit. Leading and trailing characters are never touched, so
// ordinals such as "2do" survive.
func fixDigitLetterConfusion(token string) string {
	runes := []rune(token)
	if len(runes) < 3 {
		return token
	}

	var letters, digits int
	for _, r := range runes {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		}
	}
	if letters == 0 || digits == 0 {
		return token
	}

	out := make([]rune, len(runes))
	copy(out, runes)
	for i := 1; i < len(runes)-1; i++ {
		prev, cur, next := runes[i-1], runes[i], runes[i+1]
		if letters > digits {
			if alt, ok := digitAsLetter[cur]; ok && unicode.IsLetter(prev) && unicode.IsLetter(next) {
				if unicode.IsUpper(prev) && unicode.IsUpper(next) {
					out[i] = alt[1]
				} else {
					out[i] = alt[0]
				}
			}
			continue
		}
		if d, ok := letterAsDigit[cur]; ok && unicode.IsDigit(prev) && unicode.IsDigit(next) {
			out[i] = d
		}
	}
	return string(out)
}

// matchCase returns corr shaped like the case of orig: all upper, title or
// the dictionary form.
func matchCase(orig, corr string) string {
	if isAllUpper(orig) {
		return strings.ToUpper(corr)
	}
	first, _ := utf8.DecodeRuneInString(orig)
	if unicode.IsUpper(first) {
		c, csize := utf8.DecodeRuneInString(corr)
		return string(unicode.ToUpper(c)) + corr[csize:]
	}
	return corr
}

func isAllUpper(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			if !unicode.IsUpper(r) {
				return false
			}
			letters++
		}
	}
	return letters > 1
}

// finalize rejoins lines broken mid-sentence, caps blank lines and trims.
func finalize(text string) string {
	lines := strings.Split(text, "\n")
	joined := make([]string, 0, len(lines))
	for _, line := range lines {
		if n := len(joined); n > 0 {
			if merged, ok := rejoin(joined[n-1], line); ok {
				joined[n-1] = merged
				continue
			}
		}
		joined = append(joined, line)
	}

	text = strings.Join(joined, "\n")
	text = reBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// rejoin merges next into prev when prev stops mid-sentence and next
// continues in lower case.
func rejoin(prev, next string) (string, bool) {
	if prev == "" || next == "" {
		return "", false
	}
	first, _ := utf8.DecodeRuneInString(next)
	if !unicode.IsLower(first) {
		return "", false
	}

	last, size := utf8.DecodeLastRuneInString(prev)
	if last == '-' {
		before, _ := utf8.DecodeLastRuneInString(prev[:len(prev)-size])
		if unicode.IsLetter(before) {
			return prev[:len(prev)-size] + next, true
		}
		return "", false
	}
	if unicode.IsLetter(last) || unicode.IsDigit(last) || last == ',' {
		return prev + " " + next, true
	}
	return "", false
}
