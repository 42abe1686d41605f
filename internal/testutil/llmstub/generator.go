// Package llmstub provides a canned Generator for tests that run the
// extraction pipeline without a model provider.
package llmstub

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/contract-tracker/internal/llm"
)

// Generator answers every Generate call with Reply (or Err) and keeps
// the requests it saw.
type Generator struct {
	Reply string
	Err   error

	mu       sync.Mutex
	Requests []llm.GenerateRequest
}

func (g *Generator) Generate(_ context.Context, req llm.GenerateRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	return g.Reply, g.Err
}

func (g *Generator) Model() string { return "stub-model" }

// Last returns the most recent request.
func (g *Generator) Last() llm.GenerateRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.Requests) == 0 {
		return llm.GenerateRequest{}
	}
	return g.Requests[len(g.Requests)-1]
}

// ImageParts counts the image parts in req.
func ImageParts(req llm.GenerateRequest) []llm.Part {
	var out []llm.Part
	for _, p := range req.Parts {
		if p.Image != nil {
			out = append(out, p)
		}
	}
	return out
}
