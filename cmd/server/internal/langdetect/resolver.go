// Package langdetect resolves the spoken language of a transcript. The
// engine's own answer wins; a statistical detector runs only when the engine
// reported the "unknown" sentinel.
package langdetect

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/houzhh15/vidscribe/cmd/server/internal/whisper"
	"github.com/houzhh15/vidscribe/pkg/metrics"
)

const (
	// Unknown is returned whenever no language can be determined.
	Unknown = whisper.UnknownLanguage

	maxSegments     = 10
	maxExcerptRunes = 1000
)

// ErrNoLanguage is returned by detectors that found no confident match.
var ErrNoLanguage = errors.New("no language detected")

// Detector identifies the language of a text excerpt and returns a lowercase
// ISO 639-1 code.
type Detector interface {
	Detect(text string) (string, error)
}

// Resolver implements the language fallback.
type Resolver struct {
	detector Detector
	logger   *slog.Logger
}

// NewResolver creates a Resolver around detector.
func NewResolver(detector Detector, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{detector: detector, logger: logger.With("component", "language-resolver")}
}

// IsUnknown reports whether the engine left the language unresolved.
// Some backends send an empty string instead of the sentinel.
func IsUnknown(language string) bool {
	return language == "" || strings.EqualFold(language, Unknown)
}

// Excerpt joins the non-empty texts of the first ten segments with single
// spaces and truncates the result to 1000 characters.
func Excerpt(segments []whisper.TranscriptionSegment) string {
	if len(segments) > maxSegments {
		segments = segments[:maxSegments]
	}
	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Text != "" {
			texts = append(texts, seg.Text)
		}
	}
	joined := strings.Join(texts, " ")

	runes := []rune(joined)
	if len(runes) > maxExcerptRunes {
		joined = string(runes[:maxExcerptRunes])
	}
	return joined
}

// Resolve returns reported unchanged unless it is the sentinel. Otherwise it
// runs the detector on Excerpt(segments); an empty excerpt or any detector
// failure yields "unknown". It never returns an error.
func (r *Resolver) Resolve(ctx context.Context, reported string, segments []whisper.TranscriptionSegment) string {
	if !IsUnknown(reported) {
		return reported
	}

	excerpt := Excerpt(segments)
	if strings.TrimSpace(excerpt) == "" {
		metrics.RecordLanguageFallback(false)
		return Unknown
	}

	language, err := r.detect(excerpt)
	if err != nil || language == "" {
		r.logger.DebugContext(ctx, "language fallback detection failed", "error", err, "excerpt_len", len(excerpt))
		metrics.RecordLanguageFallback(false)
		return Unknown
	}

	metrics.RecordLanguageFallback(true)
	return language
}

// detect shields the caller from detector panics as well as errors.
func (r *Resolver) detect(text string) (language string, err error) {
	defer func() {
		if p := recover(); p != nil {
			language, err = "", errors.New("detector panic")
		}
	}()
	return r.detector.Detect(text)
}
