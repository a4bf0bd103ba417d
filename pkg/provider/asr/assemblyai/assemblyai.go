// Package assemblyai implements asr.Provider backed by AssemblyAI's batch
// transcription REST API: upload the audio file, submit a transcription
// job, and poll until it completes.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/MrWong99/subtitled/pkg/provider/asr"
)

const (
	baseURL      = "https://api.assemblyai.com/v2"
	pollInterval = 3 * time.Second
)

// Option is a functional option for configuring the Provider.
type Option func(*Provider)

// WithPollInterval overrides the default 3s poll interval between status
// checks while a transcription job is in progress.
func WithPollInterval(d time.Duration) Option {
	return func(p *Provider) { p.pollInterval = d }
}

// WithHTTPClient overrides the default http.Client, useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithBaseURL overrides the default API base URL, useful for tests.
func WithBaseURL(url string) Option {
	return func(p *Provider) { p.baseURL = url }
}

// Provider implements asr.Provider backed by AssemblyAI.
type Provider struct {
	apiKey       string
	client       *http.Client
	baseURL      string
	pollInterval time.Duration
}

// New creates a new AssemblyAI Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("assemblyai: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:       apiKey,
		client:       http.DefaultClient,
		baseURL:      baseURL,
		pollInterval: pollInterval,
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL string `json:"audio_url"`
}

type wordResponse struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type transcriptResponse struct {
	ID       string         `json:"id"`
	Status   string         `json:"status"`
	Text     string         `json:"text"`
	Words    []wordResponse `json:"words"`
	Error    string         `json:"error"`
	Language string         `json:"language_code"`
}

// Transcribe implements asr.Provider.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (asr.Result, error) {
	uploadURL, err := p.upload(ctx, audioPath)
	if err != nil {
		return asr.Result{}, fmt.Errorf("assemblyai: upload: %w", err)
	}

	id, err := p.submit(ctx, uploadURL)
	if err != nil {
		return asr.Result{}, fmt.Errorf("assemblyai: submit: %w", err)
	}

	return p.poll(ctx, id)
}

func (p *Provider) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/upload", f)
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", p.apiKey)
	req.Header.Set("content-type", "application/octet-stream")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.UploadURL, nil
}

func (p *Provider) submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(transcriptRequest{AudioURL: audioURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("authorization", p.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody)
	}

	var out transcriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (p *Provider) poll(ctx context.Context, id string) (asr.Result, error) {
	url := fmt.Sprintf("%s/transcript/%s", p.baseURL, id)

	for {
		select {
		case <-ctx.Done():
			return asr.Result{}, ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return asr.Result{}, err
		}
		req.Header.Set("authorization", p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return asr.Result{}, err
		}
		var out transcriptResponse
		decodeErr := json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if decodeErr != nil {
			return asr.Result{}, decodeErr
		}

		switch out.Status {
		case "completed":
			return toResult(out), nil
		case "error":
			return asr.Result{}, fmt.Errorf("assemblyai: transcription failed: %s", out.Error)
		default:
			select {
			case <-ctx.Done():
				return asr.Result{}, ctx.Err()
			case <-time.After(p.pollInterval):
			}
		}
	}
}

func toResult(r transcriptResponse) asr.Result {
	words := make([]asr.Word, len(r.Words))
	for i, w := range r.Words {
		words[i] = asr.Word{Text: w.Text, StartMs: w.Start, EndMs: w.End}
	}
	return asr.Result{Text: r.Text, Words: words, LanguageCode: r.Language}
}
