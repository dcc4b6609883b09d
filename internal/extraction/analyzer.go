package extraction

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"docextract/internal/logger"
)

// Classification thresholds.
const (
	minTextChars         = 20
	highQualityRatio     = 0.9
	highQualityChars     = 500
	mediumQualityRatio   = 0.5
	mediumQualityChars   = 100
	sealedPageChars      = 800
	stampLineRunes       = 40
	gappedLineShareMixed = 0.2
	shortLineRunes       = 10
	shortLineShare       = 0.3
	irregularLineShare   = 0.2
	minLinesForLayout    = 5
	nonStandardRunLimit  = 3
	handwritingSignals   = 2
)

var (
	formFieldPatterns = []*regexp.Regexp{
		regexp.MustCompile(`_{4,}`),
		regexp.MustCompile(`\.{5,}`),
		regexp.MustCompile(`\[\s?\]`),
		regexp.MustCompile(`[☐☑☒]`),
		regexp.MustCompile(`(?m)^[\p{L} ]{2,30}:[ \t]*$`),
	}

	sealKeywords = []string{
		"notaría", "notaria", "notario", "conservador", "timbre", "sello",
		"certifico", "ministro de fe",
	}

	reIrregularGap = regexp.MustCompile(`\S[ \t]{3,}\S`)
	reNonStandard  = regexp.MustCompile(`[^\p{L}\p{N}\s.,;:()¿?¡!"'°º$%/_\-]{3,}`)
)

// Analyzer classifies documents from their local text layer.
type Analyzer struct {
	textLayer TextLayerExtractor
	log       zerolog.Logger
}

// NewAnalyzer creates an Analyzer. textLayer may be nil, in which case every
// document is treated as having no text.
func NewAnalyzer(textLayer TextLayerExtractor) *Analyzer {
	return &Analyzer{
		textLayer: textLayer,
		log:       logger.WithComponent("analyzer"),
	}
}

// Analyze never fails: any internal failure yields DefaultCharacteristics.
func (a *Analyzer) Analyze(ctx context.Context, doc *Document) (chars Characteristics) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error().
				Str("panic", fmt.Sprint(r)).
				Str("file", doc.Name).
				Msg("Document analysis panicked, using default characteristics")
			chars = DefaultCharacteristics()
		}
	}()

	text, pages, err := doc.TextLayer(ctx, a.textLayer)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrNotConfigured):
		text = ""
	default:
		a.log.Warn().
			Err(err).
			Str("file", doc.Name).
			Msg("Text layer unreadable, using default characteristics")
		return DefaultCharacteristics()
	}

	chars = Classify(text, pages)
	a.log.Debug().
		Str("file", doc.Name).
		Bool("has_text", chars.HasText).
		Str("quality", string(chars.EstimatedQuality)).
		Str("type", string(chars.DocumentType)).
		Bool("mixed", chars.HasMixedContent).
		Bool("handwriting", chars.HasHandwriting).
		Bool("form_fields", chars.HasFormFields).
		Bool("seals", chars.HasSeals).
		Msg("Document characteristics")
	return chars
}

// Classify derives characteristics from a text layer spanning pages pages.
func Classify(text string, pages int) Characteristics {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minTextChars {
		return Characteristics{
			EstimatedQuality: QualityLow,
			DocumentType:     TypeScanned,
		}
	}

	total := utf8.RuneCountInString(text)
	chars := Characteristics{
		HasText:          true,
		HasFormFields:    hasFormFields(text),
		HasSeals:         hasSeals(text),
		HasHandwriting:   hasHandwriting(text),
		EstimatedQuality: estimateQuality(meaningfulRatio(text), total),
	}

	if pages < 1 {
		pages = 1
	}
	perPage := total / pages
	chars.HasMixedContent = (chars.HasSeals && perPage < sealedPageChars) ||
		(chars.EstimatedQuality == QualityMedium && gappedLineShare(text) > gappedLineShareMixed)

	switch {
	case chars.HasHandwriting:
		chars.DocumentType = TypeHandwritten
	case chars.HasMixedContent:
		chars.DocumentType = TypeMixed
	case chars.EstimatedQuality == QualityLow:
		chars.DocumentType = TypeScanned
	default:
		chars.DocumentType = TypePrinted
	}
	return chars
}

// meaningfulRatio is the share of non-whitespace runes, counting one
// separator per whitespace run as part of the text. Only layout padding
// beyond a single separator lowers the ratio.
func meaningfulRatio(text string) float64 {
	var meaningful, padding int
	inSpace := false
	for _, r := range strings.TrimSpace(text) {
		if !unicode.IsSpace(r) {
			meaningful++
			inSpace = false
			continue
		}
		if inSpace {
			padding++
		}
		inSpace = true
	}
	if meaningful == 0 {
		return 0
	}
	return float64(meaningful) / float64(meaningful+padding)
}

// gappedLineShare is the share of non-blank lines containing a layout gap.
func gappedLineShare(text string) float64 {
	var lines, gapped int
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines++
		if reIrregularGap.MatchString(line) {
			gapped++
		}
	}
	if lines == 0 {
		return 0
	}
	return float64(gapped) / float64(lines)
}

func estimateQuality(ratio float64, length int) Quality {
	switch {
	case ratio > highQualityRatio && length > highQualityChars:
		return QualityHigh
	case ratio > mediumQualityRatio && length > mediumQualityChars:
		return QualityMedium
	default:
		return QualityLow
	}
}

func hasFormFields(text string) bool {
	for _, re := range formFieldPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// hasSeals looks for institutional keywords where stamps put them: in
// capitals or on a short line of their own. The same words inside running
// prose are ordinary legal vocabulary.
func hasSeals(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		short := utf8.RuneCountInString(line) <= stampLineRunes
		lower := strings.ToLower(line)
		for _, kw := range sealKeywords {
			if !strings.Contains(lower, kw) {
				continue
			}
			if short || strings.Contains(line, strings.ToUpper(kw)) {
				return true
			}
		}
	}
	return false
}

// hasHandwriting needs at least two independent layout signals.
func hasHandwriting(text string) bool {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	signals := 0
	if len(lines) >= minLinesForLayout {
		var short, irregular int
		for _, line := range lines {
			if utf8.RuneCountInString(strings.TrimSpace(line)) < shortLineRunes {
				short++
			}
			if reIrregularGap.MatchString(line) {
				irregular++
			}
		}
		if float64(irregular)/float64(len(lines)) > irregularLineShare {
			signals++
		}
		if float64(short)/float64(len(lines)) > shortLineShare {
			signals++
		}
	}
	if len(reNonStandard.FindAllStringIndex(text, -1)) >= nonStandardRunLimit {
		signals++
	}
	return signals >= handwritingSignals
}
