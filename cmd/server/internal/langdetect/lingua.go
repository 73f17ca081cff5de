package langdetect

import (
	"fmt"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LinguaDetector detects languages with lingua-go n-gram models.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over all languages lingua supports.
// Models are loaded lazily on first use.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromAllLanguages().Build(),
	}
}

// NewLinguaDetectorFor restricts detection to the given languages, which is
// faster and more accurate when the audience is known.
func NewLinguaDetectorFor(languages ...lingua.Language) *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build(),
	}
}

// NewLinguaDetectorFromCodes builds a detector over the ISO 639-1 codes in
// codes. An empty list means all languages.
func NewLinguaDetectorFromCodes(codes []string) (*LinguaDetector, error) {
	if len(codes) == 0 {
		return NewLinguaDetector(), nil
	}
	languages, err := ParseLanguages(codes)
	if err != nil {
		return nil, err
	}
	return NewLinguaDetectorFor(languages...), nil
}

// ParseLanguages maps ISO 639-1 codes to lingua languages. Blank entries and
// duplicates are skipped; lingua needs at least two distinct languages.
func ParseLanguages(codes []string) ([]lingua.Language, error) {
	seen := make(map[lingua.Language]bool, len(codes))
	languages := make([]lingua.Language, 0, len(codes))
	for _, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		language := lingua.GetLanguageFromIsoCode639_1(lingua.GetIsoCode639_1FromValue(code))
		if language == lingua.Unknown {
			return nil, fmt.Errorf("unsupported language code %q", code)
		}
		if seen[language] {
			continue
		}
		seen[language] = true
		languages = append(languages, language)
	}
	if len(languages) < 2 {
		return nil, fmt.Errorf("at least two languages are required, got %d", len(languages))
	}
	return languages, nil
}

// Detect returns the ISO 639-1 code of the most likely language.
func (d *LinguaDetector) Detect(text string) (string, error) {
	language, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", ErrNoLanguage
	}
	return strings.ToLower(language.IsoCode639_1().String()), nil
}
