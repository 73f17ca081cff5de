package langdetect

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pemistahl/lingua-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/houzhh15/vidscribe/cmd/server/internal/whisper"
)

type fakeDetector struct {
	language string
	err      error
	panics   bool
	calls    []string
}

func (f *fakeDetector) Detect(text string) (string, error) {
	f.calls = append(f.calls, text)
	if f.panics {
		panic("model file missing")
	}
	return f.language, f.err
}

func segs(texts ...string) []whisper.TranscriptionSegment {
	out := make([]whisper.TranscriptionSegment, len(texts))
	for i, text := range texts {
		out[i] = whisper.TranscriptionSegment{Text: text, Start: float64(i), End: float64(i + 1)}
	}
	return out
}

func TestResolve_ConcreteLanguageSkipsDetection(t *testing.T) {
	detector := &fakeDetector{language: "fr"}
	resolver := NewResolver(detector, nil)

	got := resolver.Resolve(context.Background(), "ar", segs("hello world"))

	assert.Equal(t, "ar", got)
	assert.Empty(t, detector.calls)
}

func TestResolve_UnknownRunsDetectionOnExcerpt(t *testing.T) {
	detector := &fakeDetector{language: "en"}
	resolver := NewResolver(detector, nil)

	got := resolver.Resolve(context.Background(), "unknown", segs("hello", "", "world"))

	assert.Equal(t, "en", got)
	require.Len(t, detector.calls, 1)
	assert.Equal(t, "hello world", detector.calls[0])
}

func TestResolve_EmptyLanguageTreatedAsUnknown(t *testing.T) {
	detector := &fakeDetector{language: "de"}

	got := NewResolver(detector, nil).Resolve(context.Background(), "", segs("guten tag"))

	assert.Equal(t, "de", got)
}

func TestResolve_FallsBackToUnknown(t *testing.T) {
	tests := []struct {
		name     string
		detector *fakeDetector
		segments []whisper.TranscriptionSegment
		wantCall bool
	}{
		{"all segments empty", &fakeDetector{language: "en"}, segs("", ""), false},
		{"no segments", &fakeDetector{language: "en"}, nil, false},
		{"detector error", &fakeDetector{err: errors.New("too short")}, segs("hm"), true},
		{"no confident match", &fakeDetector{err: ErrNoLanguage}, segs("123"), true},
		{"detector panic", &fakeDetector{panics: true}, segs("text"), true},
		{"empty code", &fakeDetector{language: ""}, segs("text"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewResolver(tt.detector, nil).Resolve(context.Background(), Unknown, tt.segments)

			assert.Equal(t, Unknown, got)
			assert.Equal(t, tt.wantCall, len(tt.detector.calls) > 0)
		})
	}
}

func TestExcerpt(t *testing.T) {
	t.Run("only first ten segments", func(t *testing.T) {
		texts := make([]string, 12)
		for i := range texts {
			texts[i] = string(rune('a' + i))
		}

		assert.Equal(t, "a b c d e f g h i j", Excerpt(segs(texts...)))
	})

	t.Run("truncated to 1000 characters", func(t *testing.T) {
		long := strings.Repeat("ب", 800)

		excerpt := Excerpt(segs(long, long))

		assert.Equal(t, 1000, len([]rune(excerpt)))
		assert.True(t, strings.HasPrefix(excerpt, long+" "))
	})
}

func TestLinguaDetector(t *testing.T) {
	detector := NewLinguaDetectorFor(lingua.English, lingua.French, lingua.German, lingua.Arabic)

	code, err := detector.Detect("The quick brown fox jumps over the lazy dog while the children are playing in the garden.")
	require.NoError(t, err)
	assert.Equal(t, "en", code)

	code, err = detector.Detect("Le renard brun saute par-dessus le chien paresseux pendant que les enfants jouent dans le jardin.")
	require.NoError(t, err)
	assert.Equal(t, "fr", code)
}

func TestResolve_WithLinguaEnglishSpeech(t *testing.T) {
	resolver := NewResolver(NewLinguaDetectorFor(lingua.English, lingua.Spanish, lingua.Arabic), nil)

	got := resolver.Resolve(context.Background(), Unknown, segs(
		"Good morning everyone and welcome to today's lecture.",
		"We are going to talk about the history of the printing press.",
	))

	assert.Equal(t, "en", got)
}

func TestParseLanguages(t *testing.T) {
	got, err := ParseLanguages([]string{"EN", " fr ", "", "en", "ar"})
	require.NoError(t, err)
	assert.Equal(t, []lingua.Language{lingua.English, lingua.French, lingua.Arabic}, got)

	_, err = ParseLanguages([]string{"en", "xx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"xx"`)

	_, err = ParseLanguages([]string{"en", "EN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least two")
}

func TestNewLinguaDetectorFromCodes(t *testing.T) {
	detector, err := NewLinguaDetectorFromCodes([]string{"en", "es"})
	require.NoError(t, err)

	code, err := detector.Detect("Buenos días a todos y bienvenidos a la clase de historia de hoy.")
	require.NoError(t, err)
	assert.Equal(t, "es", code)

	_, err = NewLinguaDetectorFromCodes([]string{"en"})
	assert.Error(t, err)

	all, err := NewLinguaDetectorFromCodes(nil)
	require.NoError(t, err)
	assert.NotNil(t, all)
}
