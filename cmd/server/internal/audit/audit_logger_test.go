package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLogger_Record(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "transcriptions.log")
	a, err := NewLogger(logPath)
	require.NoError(t, err)
	a.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	t.Run("success entry", func(t *testing.T) {
		a.Record(Entry{
			RequestID:  "req-1",
			VideoID:    "vid-1",
			Filename:   "talk.mp4",
			Result:     ResultSuccess,
			Language:   "en",
			Segments:   12,
			DBStatus:   "Transcription saved to database",
			DurationMs: 1234,
			SourceIP:   "192.168.1.100",
		})

		entries := readEntries(t, logPath)
		require.Len(t, entries, 1)
		entry := entries[0]
		assert.Equal(t, "2024-01-02T03:04:05Z", entry["timestamp"])
		assert.Equal(t, "success", entry["result"])
		assert.Equal(t, "vid-1", entry["video_id"])
		assert.Equal(t, float64(12), entry["segments"])
		assert.Equal(t, float64(1234), entry["duration_ms"])
		assert.NotContains(t, entry, "error_kind")
	})

	t.Run("failed entry", func(t *testing.T) {
		a.Record(Entry{
			RequestID: "req-2",
			Result:    ResultFailed,
			ErrorKind: "invalid_media",
			Message:   "uploaded file has no decodable audio track",
			SourceIP:  "10.0.0.1",
		})

		entries := readEntries(t, logPath)
		require.Len(t, entries, 2)
		assert.Equal(t, "failed", entries[1]["result"])
		assert.Equal(t, "invalid_media", entries[1]["error_kind"])
		assert.NotContains(t, entries[1], "video_id")
	})

	require.NoError(t, a.Close())
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	a, err := NewLogger(logPath)
	require.NoError(t, err)
	defer a.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Record(Entry{RequestID: "req", Result: ResultSuccess})
		}()
	}
	wg.Wait()

	assert.Len(t, readEntries(t, logPath), 20)
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.Record(Entry{Result: ResultRejected})
}
