package provider

import (
	"context"
	"fmt"
	"time"
)

// StubProvider deterministically produces a minimal structured response
// for each Operation, for tests and (registered by main.go as the
// primary route) when no API keys are configured — it never makes a
// network call.
type StubProvider struct{}

// NewStubProvider creates a stub provider connector.
func NewStubProvider() *StubProvider { return &StubProvider{} }

func (p *StubProvider) Name() string { return "stub" }

func (p *StubProvider) Complete(ctx context.Context, req *Request) (*Response, error) {
	var text string
	switch req.Operation {
	case OpIntent:
		text = `{"intent":"event_request","confidence":0.5,"language":"en","signals":{}}`
	case OpEntity:
		text = `{"entities":{}}`
	case OpVerbalization:
		text = fmt.Sprintf("[stub reply for %q]", req.UserPrompt)
	default:
		text = ""
	}
	return &Response{Text: text, Model: "stub", Latency: 0}, nil
}

func (p *StubProvider) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{Healthy: true, Latency: 0, LastCheck: time.Now()}
}
