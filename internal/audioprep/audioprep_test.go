package audioprep

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/subtitled/pkg/provider/vad"
	"github.com/MrWong99/subtitled/pkg/provider/vad/mock"
)

// buildWAV assembles a minimal canonical 16-bit mono PCM WAV file for the
// given sample rate holding nFrames frames of frameSize bytes each. Sample
// values don't matter to TrimSilence; only byte offsets do.
func buildWAV(sampleRate, nFrames, frameSize int) []byte {
	pcm := make([]byte, nFrames*frameSize)
	for i := range pcm {
		pcm[i] = byte(i)
	}

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))           // fmt chunk size
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))            // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))   // sample rate
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2)) // byte rate
	binary.Write(&buf, binary.LittleEndian, uint16(2))            // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))           // bits per sample
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)
	return buf.Bytes()
}

func writeTempWAV(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audio.wav")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp wav: %v", err)
	}
	return path
}

func TestTrimSilence_NoSpeechLeavesFileUnchanged(t *testing.T) {
	original := buildWAV(trimSampleRate, 50, trimFrameSize)
	path := writeTempWAV(t, original)

	engine := &mock.Engine{Session: &mock.Session{EventResult: vad.VADEvent{Type: vad.VADSilence}}}
	if err := TrimSilence(engine, path); err != nil {
		t.Fatalf("TrimSilence: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("expected file untouched when no speech detected, got %d bytes vs original %d", len(got), len(original))
	}
}

// sequenceSession classifies frames by index: silence, then speech, then
// silence again, simulating a real utterance surrounded by padding.
type sequenceSession struct {
	speechStart, speechEnd int // frame indices, inclusive start, exclusive end
	calls                  int
}

func (s *sequenceSession) ProcessFrame(frame []byte) (vad.VADEvent, error) {
	i := s.calls
	s.calls++
	if i >= s.speechStart && i < s.speechEnd {
		if i == s.speechStart {
			return vad.VADEvent{Type: vad.VADSpeechStart, Probability: 0.9}, nil
		}
		return vad.VADEvent{Type: vad.VADSpeechContinue, Probability: 0.9}, nil
	}
	return vad.VADEvent{Type: vad.VADSilence, Probability: 0.05}, nil
}

func (s *sequenceSession) Reset()       {}
func (s *sequenceSession) Close() error { return nil }

func TestTrimSilence_TrimsLeadingAndTrailingSilence(t *testing.T) {
	const totalFrames = 100
	original := buildWAV(trimSampleRate, totalFrames, trimFrameSize)
	path := writeTempWAV(t, original)

	sess := &sequenceSession{speechStart: 40, speechEnd: 60}
	engine := &mock.Engine{Session: sess}

	if err := TrimSilence(engine, path); err != nil {
		t.Fatalf("TrimSilence: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	header, pcm, err := splitWAV(got)
	if err != nil {
		t.Fatalf("splitWAV result: %v", err)
	}
	if len(header) != 44 {
		t.Fatalf("expected canonical 44-byte header, got %d", len(header))
	}

	padBytes := paddingFramesMs * trimSampleRate / 1000 * bytesPerSample
	speechStartByte := sess.speechStart * trimFrameSize
	speechEndByte := sess.speechEnd * trimFrameSize
	wantLen := (speechEndByte + padBytes) - max(0, speechStartByte-padBytes)
	if len(pcm) != wantLen {
		t.Fatalf("trimmed pcm length = %d, want %d", len(pcm), wantLen)
	}
	if len(pcm) >= totalFrames*trimFrameSize {
		t.Fatalf("expected trimmed output shorter than original %d bytes, got %d", totalFrames*trimFrameSize, len(pcm))
	}

	// RIFF and data sizes must have been patched to match the new length.
	riffSize := binary.LittleEndian.Uint32(got[4:8])
	if int(riffSize) != len(got)-8 {
		t.Fatalf("riff size %d does not match file length-8 %d", riffSize, len(got)-8)
	}
	dataSize := binary.LittleEndian.Uint32(got[len(header)-4 : len(header)])
	if int(dataSize) != len(pcm) {
		t.Fatalf("data chunk size %d does not match pcm length %d", dataSize, len(pcm))
	}
}

func TestTrimSilence_NewSessionErrorLeavesFileUnchanged(t *testing.T) {
	original := buildWAV(trimSampleRate, 10, trimFrameSize)
	path := writeTempWAV(t, original)

	engine := &mock.Engine{NewSessionErr: errors.New("engine unavailable")}
	if err := TrimSilence(engine, path); err == nil {
		t.Fatal("expected error when NewSession fails")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatal("file should be untouched when NewSession fails")
	}
}

func TestTrimSilence_ProcessFrameErrorLeavesFileUnchanged(t *testing.T) {
	original := buildWAV(trimSampleRate, 10, trimFrameSize)
	path := writeTempWAV(t, original)

	engine := &mock.Engine{Session: &mock.Session{ProcessFrameErr: errors.New("model failure")}}
	if err := TrimSilence(engine, path); err == nil {
		t.Fatal("expected error when ProcessFrame fails")
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatal("file should be untouched when ProcessFrame fails")
	}
}

func TestTrimSilence_RejectsNonWAVFile(t *testing.T) {
	path := writeTempWAV(t, []byte("not a wav file at all"))
	engine := &mock.Engine{Session: &mock.Session{}}
	if err := TrimSilence(engine, path); err == nil {
		t.Fatal("expected error for non-WAV input")
	}
}
