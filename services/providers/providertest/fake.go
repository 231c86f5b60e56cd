// Package providertest provides a scripted chat provider for tests.
package providertest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/upb/nse-market-bot/services/providers"
)

// FakeProvider is a StreamingProvider that replays scripted chunks
type FakeProvider struct {
	ProviderName string
	Models       []string
	Available    bool

	// Chunks are streamed in order, followed by a "stop" finish chunk
	Chunks []string

	// Err fails the call before anything is streamed
	Err error

	// StreamErr fails the call after all Chunks were delivered
	StreamErr error

	mu       sync.Mutex
	requests []*providers.ChatRequest
}

var _ providers.StreamingProvider = (*FakeProvider)(nil)

// New returns an available fake serving gpt-4o
func New(chunks ...string) *FakeProvider {
	return &FakeProvider{
		ProviderName: "fake",
		Models:       []string{"gpt-4o"},
		Available:    true,
		Chunks:       chunks,
	}
}

func (f *FakeProvider) Name() string { return f.ProviderName }

func (f *FakeProvider) record(req *providers.ChatRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

// Requests returns the requests received so far
func (f *FakeProvider) Requests() []*providers.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*providers.ChatRequest(nil), f.requests...)
}

// LastRequest returns the most recent request, or nil
func (f *FakeProvider) LastRequest() *providers.ChatRequest {
	reqs := f.Requests()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func (f *FakeProvider) ChatCompletion(ctx context.Context, req *providers.ChatRequest) (*providers.ChatResponse, error) {
	f.record(req)
	if f.Err != nil {
		return nil, f.Err
	}
	return &providers.ChatResponse{
		ID:       "fake-completion",
		Model:    req.Model,
		Provider: f.ProviderName,
		Choices: []providers.Choice{{
			Message:      providers.Message{Role: providers.RoleAssistant, Content: strings.Join(f.Chunks, "")},
			FinishReason: "stop",
		}},
		Created: time.Now(),
	}, nil
}

func (f *FakeProvider) ChatCompletionStream(ctx context.Context, req *providers.ChatRequest, callback providers.StreamCallback) error {
	f.record(req)
	if f.Err != nil {
		return f.Err
	}
	for _, c := range f.Chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := callback(&providers.StreamChunk{ID: "fake-completion", Model: req.Model, Delta: c}); err != nil {
			return err
		}
	}
	if f.StreamErr != nil {
		return f.StreamErr
	}
	return callback(&providers.StreamChunk{ID: "fake-completion", Model: req.Model, FinishReason: "stop"})
}

func (f *FakeProvider) IsAvailable(ctx context.Context) bool { return f.Available }

func (f *FakeProvider) ValidateModel(model string) error {
	for _, m := range f.Models {
		if m == model {
			return nil
		}
	}
	return errors.New("model not supported")
}

func (f *FakeProvider) GetModelInfo(model string) (*providers.ModelInfo, error) {
	if err := f.ValidateModel(model); err != nil {
		return nil, err
	}
	return &providers.ModelInfo{ID: model, Name: model, Provider: f.ProviderName, SupportsStreaming: true}, nil
}

func (f *FakeProvider) ListModels() []string { return f.Models }
