// Package deepgram implements asr.Provider backed by Deepgram's prerecorded
// transcription REST API: the audio file is uploaded directly in the request
// body and the transcript is returned synchronously in the response.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/MrWong99/subtitled/pkg/provider/asr"
)

const (
	baseURL         = "https://api.deepgram.com/v1/listen"
	defaultModel    = "nova-3"
	defaultLanguage = "en"
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the BCP-47 language code for recognition.
func WithLanguage(language string) Option {
	return func(p *Provider) { p.language = language }
}

// WithHTTPClient overrides the default http.Client, useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithBaseURL overrides the default API base URL, useful for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// Provider implements asr.Provider backed by Deepgram's prerecorded API.
type Provider struct {
	apiKey   string
	model    string
	language string
	client   *http.Client
	baseURL  string
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		client:   http.DefaultClient,
		baseURL:  baseURL,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Words      []struct {
					Word  string  `json:"word"`
					Start float64 `json:"start"`
					End   float64 `json:"end"`
				} `json:"words"`
			} `json:"alternatives"`
			DetectedLanguage string `json:"detected_language"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe uploads the audio file at audioPath to Deepgram's prerecorded
// endpoint and returns the transcript once Deepgram responds.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (asr.Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: open %q: %w", audioPath, err)
	}
	defer f.Close()

	u, err := url.Parse(p.baseURL)
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: parse base url: %w", err)
	}
	q := u.Query()
	q.Set("model", p.model)
	q.Set("language", p.language)
	q.Set("punctuate", "true")
	q.Set("words", "true")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), f)
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: build request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiKey)
	req.Header.Set("Content-Type", "audio/wav")

	resp, err := p.client.Do(req)
	if err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return asr.Result{}, fmt.Errorf("deepgram: unexpected status %d: %s", resp.StatusCode, body)
	}

	var out listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return asr.Result{}, fmt.Errorf("deepgram: decode response: %w", err)
	}
	return toResult(out, p.language), nil
}

func toResult(r listenResponse, fallbackLanguage string) asr.Result {
	if len(r.Results.Channels) == 0 || len(r.Results.Channels[0].Alternatives) == 0 {
		return asr.Result{LanguageCode: fallbackLanguage}
	}
	channel := r.Results.Channels[0]
	alt := channel.Alternatives[0]

	words := make([]asr.Word, len(alt.Words))
	for i, w := range alt.Words {
		words[i] = asr.Word{
			Text:    w.Word,
			StartMs: int(w.Start * 1000),
			EndMs:   int(w.End * 1000),
		}
	}

	lang := channel.DetectedLanguage
	if lang == "" {
		lang = fallbackLanguage
	}
	return asr.Result{Text: alt.Transcript, Words: words, LanguageCode: lang}
}

var _ asr.Provider = (*Provider)(nil)
