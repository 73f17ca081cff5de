package store

import (
	"context"
	"time"

	"github.com/houzhh15/vidscribe/cmd/server/internal/whisper"
)

// Segment 持久化的转写片段
type Segment struct {
	Text  string  `bson:"text" json:"text"`
	Start float64 `bson:"start" json:"start"`
	End   float64 `bson:"end" json:"end"`
}

// Record is one stored transcription. Written once, never updated.
type Record struct {
	VideoID    string    `bson:"video_id" json:"video_id"`
	Filename   string    `bson:"filename" json:"filename"`
	Transcript []Segment `bson:"transcript" json:"transcript"`
	Language   string    `bson:"language" json:"language"`
	CreatedAt  string    `bson:"created_at" json:"created_at"` // RFC 3339, UTC
}

// Sink 转写记录持久化接口
type Sink interface {
	Insert(ctx context.Context, record *Record) error
	Ping(ctx context.Context) error
}

// SegmentsFrom converts engine segments into their stored form.
func SegmentsFrom(segments []whisper.TranscriptionSegment) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = Segment{Text: seg.Text, Start: seg.Start, End: seg.End}
	}
	return out
}

// NewRecord builds a record stamped with createdAt in UTC.
func NewRecord(videoID, filename string, transcript []Segment, language string, createdAt time.Time) *Record {
	return &Record{
		VideoID:    videoID,
		Filename:   filename,
		Transcript: transcript,
		Language:   language,
		CreatedAt:  createdAt.UTC().Format(time.RFC3339),
	}
}
