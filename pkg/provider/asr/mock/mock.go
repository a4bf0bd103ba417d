// Package mock provides a test double for asr.Provider.
package mock

import (
	"context"

	"github.com/MrWong99/subtitled/pkg/provider/asr"
)

// Provider is a configurable asr.Provider test double.
type Provider struct {
	Result Result
	Err    error

	Calls []string
}

// Result is an alias kept local so callers don't need the asr import just
// to configure a mock.
type Result = asr.Result

// Transcribe implements asr.Provider.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (asr.Result, error) {
	p.Calls = append(p.Calls, audioPath)
	if p.Err != nil {
		return asr.Result{}, p.Err
	}
	return p.Result, nil
}

var _ asr.Provider = (*Provider)(nil)
