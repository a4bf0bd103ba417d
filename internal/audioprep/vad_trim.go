package audioprep

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/MrWong99/subtitled/pkg/provider/vad"
)

const (
	trimSampleRate  = 16000
	trimFrameMs     = 20
	bytesPerSample  = 2
	trimFrameSize   = trimSampleRate * trimFrameMs / 1000 * bytesPerSample
	paddingFramesMs = 200 // kept on each side of detected speech
)

// TrimSilence runs a VAD engine over a normalized 16kHz mono WAV file and
// rewrites it with leading and trailing silence removed, keeping a small
// padding window so word onsets aren't clipped. It is a best-effort step:
// any read, decode, or VAD failure leaves the original file untouched.
func TrimSilence(engine vad.Engine, wavPath string) error {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return fmt.Errorf("audioprep: trim: read %q: %w", wavPath, err)
	}

	header, pcm, err := splitWAV(data)
	if err != nil {
		return fmt.Errorf("audioprep: trim: parse wav: %w", err)
	}

	session, err := engine.NewSession(vad.Config{
		SampleRate:       trimSampleRate,
		FrameSizeMs:      trimFrameMs,
		SpeechThreshold:  0.5,
		SilenceThreshold: 0.35,
	})
	if err != nil {
		return fmt.Errorf("audioprep: trim: new session: %w", err)
	}
	defer session.Close()

	firstSpeech, lastSpeech := -1, -1
	for i := 0; i+trimFrameSize <= len(pcm); i += trimFrameSize {
		frame := pcm[i : i+trimFrameSize]
		ev, err := session.ProcessFrame(frame)
		if err != nil {
			return fmt.Errorf("audioprep: trim: process frame: %w", err)
		}
		isSpeech := ev.Type == vad.VADSpeechStart || ev.Type == vad.VADSpeechContinue
		if isSpeech {
			if firstSpeech == -1 {
				firstSpeech = i
			}
			lastSpeech = i + trimFrameSize
		}
	}

	if firstSpeech == -1 {
		// No speech detected at all; leave the file as-is rather than
		// producing an empty clip.
		return nil
	}

	padBytes := paddingFramesMs * trimSampleRate / 1000 * bytesPerSample
	start := max(0, firstSpeech-padBytes)
	end := min(len(pcm), lastSpeech+padBytes)

	trimmed := append(append([]byte{}, header...), pcm[start:end]...)
	patchWAVSize(trimmed)

	if err := os.WriteFile(wavPath, trimmed, 0o644); err != nil {
		return fmt.Errorf("audioprep: trim: write %q: %w", wavPath, err)
	}
	return nil
}

// splitWAV returns the 44-byte canonical PCM WAV header and the raw sample
// data that follows it. Only plain uncompressed PCM WAV (as produced by
// [Normalize]) is supported.
func splitWAV(data []byte) (header, pcm []byte, err error) {
	if len(data) < 44 || !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	// Find the "data" subchunk; Normalize's ffmpeg output places it right
	// after the standard 16-byte "fmt " chunk, but don't assume the offset.
	idx := bytes.Index(data, []byte("data"))
	if idx < 0 || idx+8 > len(data) {
		return nil, nil, fmt.Errorf("no data subchunk")
	}
	return data[:idx+8], data[idx+8:], nil
}

// patchWAVSize rewrites the RIFF and data chunk size fields of a WAV buffer
// in place to match its current length.
func patchWAVSize(buf []byte) {
	riffSize := uint32(len(buf) - 8)
	binary.LittleEndian.PutUint32(buf[4:8], riffSize)

	idx := bytes.Index(buf, []byte("data"))
	if idx >= 0 && idx+8 <= len(buf) {
		dataSize := uint32(len(buf) - (idx + 8))
		binary.LittleEndian.PutUint32(buf[idx+4:idx+8], dataSize)
	}
}
