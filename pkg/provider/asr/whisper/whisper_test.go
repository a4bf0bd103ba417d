package whisper_test

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/subtitled/pkg/provider/asr/whisper"
)

// testModelPath returns the path to a whisper.cpp model for integration
// tests. It reads from the WHISPER_MODEL_PATH environment variable. If unset
// the test is skipped — running real whisper.cpp inference requires a
// downloaded model file that isn't available in CI.
func testModelPath(t *testing.T) string {
	t.Helper()
	p := os.Getenv("WHISPER_MODEL_PATH")
	if p == "" {
		t.Skip("WHISPER_MODEL_PATH not set; skipping whisper integration test")
	}
	return p
}

func TestNew_EmptyPath_ReturnsError(t *testing.T) {
	_, err := whisper.New("")
	if err == nil {
		t.Fatal("expected error for empty model path, got nil")
	}
}

func TestNew_InvalidPath_ReturnsError(t *testing.T) {
	_, err := whisper.New("/nonexistent/path/to/model.bin")
	if err == nil {
		t.Fatal("expected error for invalid model path, got nil")
	}
}

func TestTranscribe_CancelledContext_ReturnsError(t *testing.T) {
	modelPath := testModelPath(t)
	p, err := whisper.New(modelPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wavPath := writeSilenceWAV(t, 16000)
	if _, err := p.Transcribe(ctx, wavPath); err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestTranscribe_MissingFile_ReturnsError(t *testing.T) {
	modelPath := testModelPath(t)
	p, err := whisper.New(modelPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	_, err = p.Transcribe(context.Background(), "/nonexistent/audio.wav")
	if err == nil {
		t.Fatal("expected error for missing audio file, got nil")
	}
}

func TestTranscribe_SilenceProducesNoWords(t *testing.T) {
	modelPath := testModelPath(t)
	p, err := whisper.New(modelPath, whisper.WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer p.Close()

	wavPath := writeSilenceWAV(t, 16000)
	result, err := p.Transcribe(context.Background(), wavPath)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(result.Words) != 0 {
		t.Errorf("expected no words for silence, got %d", len(result.Words))
	}
	if result.LanguageCode != "en" {
		t.Errorf("LanguageCode = %q, want %q", result.LanguageCode, "en")
	}
}

// writeSilenceWAV writes a mono 16-bit PCM WAV file containing numSamples
// zero-valued samples and returns its path.
func writeSilenceWAV(t *testing.T, numSamples int) string {
	t.Helper()
	const sampleRate = 16000
	pcm := make([]byte, numSamples*2)

	var header [44]byte
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], 1) // mono
	binary.LittleEndian.PutUint32(header[24:28], sampleRate)
	binary.LittleEndian.PutUint32(header[28:32], sampleRate*2)
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	path := filepath.Join(t.TempDir(), "silence.wav")
	if err := os.WriteFile(path, append(header[:], pcm...), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}
