package llm

import (
	"context"

	"github.com/joseph-ayodele/contract-tracker/internal/entity"
	"github.com/joseph-ayodele/contract-tracker/internal/parse"
)

// Part is one element of a model request: either text or an inline image.
type Part struct {
	Text  string
	Image *parse.Image
}

// TextPart wraps s as a Part.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart wraps img as a Part.
func ImagePart(img parse.Image) Part { return Part{Image: &img} }

// GenerateRequest is a provider-neutral generation call. Parts are sent as a
// single user turn in order.
type GenerateRequest struct {
	Parts       []Part
	Temperature float32
	// JSON asks the provider to constrain the response to a JSON object.
	JSON bool
}

// Generator is the generative-model collaborator. Implementations return the
// raw text of the first candidate.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	Model() string
}

// ExtractRequest is what a parser produced for one document.
type ExtractRequest struct {
	Text   string
	Images []parse.Image
}

// ScheduleExtractor is the interface our pipeline depends on.
type ScheduleExtractor interface {
	ExtractSchedule(ctx context.Context, req ExtractRequest) (entity.ContractSchedule, []entity.TaskItem, string, error)
}
