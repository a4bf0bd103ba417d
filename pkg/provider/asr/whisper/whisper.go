// Package whisper implements asr.Provider using whisper.cpp's CGO bindings,
// running transcription locally with no network round trip. The whisper.cpp
// static library and headers must be available at link time via
// LIBRARY_PATH and C_INCLUDE_PATH.
package whisper

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/subtitled/pkg/provider/asr"
)

const defaultLanguage = "en"

// Provider implements asr.Provider by running a shared whisper.cpp model
// against a normalized 16kHz mono WAV file per call. The model is loaded
// once and reused across concurrent Transcribe calls; each call gets its
// own whisper.cpp context, since contexts are not safe for concurrent use.
type Provider struct {
	model    whisperlib.Model
	language string
}

// Option configures a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code passed to whisper.cpp.
// Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// New loads the whisper.cpp model at modelPath and returns a Provider backed
// by it. The caller must call Close when the provider is no longer needed.
func New(modelPath string, opts ...Option) (*Provider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	p := &Provider{model: model, language: defaultLanguage}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Close releases the whisper.cpp model.
func (p *Provider) Close() error {
	if p.model == nil {
		return nil
	}
	return p.model.Close()
}

// Transcribe reads the canonical PCM WAV file at audioPath in full and runs
// one whisper.cpp inference pass over it.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (asr.Result, error) {
	if err := ctx.Err(); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: context already cancelled: %w", err)
	}

	data, err := os.ReadFile(audioPath)
	if err != nil {
		return asr.Result{}, fmt.Errorf("whisper: read %q: %w", audioPath, err)
	}
	channels, pcm, err := parseWAV(data)
	if err != nil {
		return asr.Result{}, fmt.Errorf("whisper: parse %q: %w", audioPath, err)
	}
	samples := pcmToFloat32Mono(pcm, channels)

	wctx, err := p.model.NewContext()
	if err != nil {
		return asr.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(p.language); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: set language %q: %w", p.language, err)
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return asr.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var (
		textParts []string
		words     []asr.Word
	)
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return asr.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		text := strings.TrimSpace(segment.Text)
		if text == "" {
			continue
		}
		textParts = append(textParts, text)
		words = append(words, asr.Word{
			Text:    text,
			StartMs: int(segment.Start.Milliseconds()),
			EndMs:   int(segment.End.Milliseconds()),
		})
	}

	return asr.Result{
		Text:         strings.Join(textParts, " "),
		Words:        words,
		LanguageCode: p.language,
	}, nil
}

// parseWAV returns the channel count and raw PCM sample data from a
// canonical uncompressed PCM WAV file, as produced by internal/audioprep.
func parseWAV(data []byte) (channels int, pcm []byte, err error) {
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return 0, nil, errors.New("not a RIFF/WAVE file")
	}
	channels = int(binary.LittleEndian.Uint16(data[22:24]))
	if channels <= 0 {
		channels = 1
	}
	idx := indexOf(data, "data")
	if idx < 0 || idx+8 > len(data) {
		return 0, nil, errors.New("no data subchunk")
	}
	return channels, data[idx+8:], nil
}

func indexOf(data []byte, marker string) int {
	m := []byte(marker)
	for i := 0; i+len(m) <= len(data); i++ {
		if string(data[i:i+len(m)]) == marker {
			return i
		}
	}
	_ = m
	return -1
}

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to the range [-1.0, 1.0].
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		samples[i] = float32(sample) / 32768.0
	}
	return samples
}

// pcmToFloat32Mono down-mixes multi-channel 16-bit PCM to mono float32 by
// averaging all channels per frame.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 1 {
		return pcmToFloat32(pcm)
	}
	samplesPerChannel := len(pcm) / (2 * channels)
	mono := make([]float32, samplesPerChannel)
	for i := range samplesPerChannel {
		var sum float32
		for ch := range channels {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float32(sample) / 32768.0
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}

var _ asr.Provider = (*Provider)(nil)
