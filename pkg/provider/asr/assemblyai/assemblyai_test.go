package assemblyai_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/MrWong99/subtitled/pkg/provider/asr/assemblyai"
)

func TestTranscribe_PollsUntilCompleted(t *testing.T) {
	pollCount := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"upload_url": "https://cdn.example/audio.wav"})
	})
	mux.HandleFunc("/transcript/", func(w http.ResponseWriter, r *http.Request) {
		pollCount++
		status := "processing"
		if pollCount >= 2 {
			status = "completed"
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "job-1",
			"status": status,
			"text":   "hello world",
			"words": []map[string]any{
				{"text": "hello", "start": 0, "end": 400},
				{"text": "world", "start": 400, "end": 800},
			},
			"language_code": "en",
		})
	})
	mux.HandleFunc("/transcript", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "job-1", "status": "queued"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f, err := os.CreateTemp(t.TempDir(), "audio-*.wav")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	f.WriteString("fake audio bytes")
	f.Close()

	p, err := assemblyai.New("test-key", assemblyai.WithBaseURL(srv.URL), assemblyai.WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := p.Transcribe(t.Context(), f.Name())
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("Text = %q, want %q", result.Text, "hello world")
	}
	if len(result.Words) != 2 || result.Words[1].StartMs != 400 {
		t.Errorf("unexpected words: %+v", result.Words)
	}
	if pollCount < 2 {
		t.Errorf("expected at least 2 polls, got %d", pollCount)
	}
}
