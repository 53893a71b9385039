package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/rotisserie/eris"

	"github.com/sells-group/company-detail-cli/internal/trace"
	"github.com/sells-group/company-detail-cli/pkg/anthropic"
)

// defaultMaxTokens bounds generation output when the caller does not set one.
const defaultMaxTokens = 2048

// GenerationSpec describes one structured-generation call.
type GenerationSpec struct {
	// Name identifies the generation in trace records.
	Name string
	// Model is the logical model to call.
	Model ModelName
	// System is the system prompt. Empty means none.
	System string
	// CacheSystem marks the system prompt with a cache breakpoint. Use for
	// prompts repeated across sequential calls.
	CacheSystem bool
	// Prompt is the user prompt.
	Prompt string
	// MaxTokens caps the output length. Zero uses defaultMaxTokens.
	MaxTokens int64
	// Metadata is attached to the generation's trace record.
	Metadata map[string]any
	// Parent is the span the generation is recorded under. May be nil.
	Parent *trace.Span
}

// Generator produces a structured value from a prompt. Implementations must
// fail (not degrade) when the model output cannot be parsed into out; callers
// decide whether a failure is fatal for their stage.
type Generator interface {
	Generate(ctx context.Context, spec GenerationSpec, out any) error
}

type anthropicGenerator struct {
	client anthropic.Client
}

// NewGenerator creates a Generator backed by an Anthropic client.
func NewGenerator(client anthropic.Client) Generator {
	return &anthropicGenerator{client: client}
}

func (g *anthropicGenerator) Generate(ctx context.Context, spec GenerationSpec, out any) (err error) {
	span := trace.StartSpan(spec.Name, trace.ChildOf(spec.Parent))
	defer span.End()
	span.SetInput(map[string]any{
		"model":    spec.Model.TraceName(),
		"system":   spec.System,
		"prompt":   spec.Prompt,
		"metadata": spec.Metadata,
	})
	defer func() {
		if err != nil {
			span.Error(err)
		}
	}()

	maxTokens := spec.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	req := anthropic.MessageRequest{
		Model:     spec.Model.APIName(),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: "user", Content: spec.Prompt},
		},
	}
	if spec.System != "" {
		if spec.CacheSystem {
			req.System = anthropic.BuildCachedSystemBlocks(spec.System)
		} else {
			req.System = []anthropic.SystemBlock{{Text: spec.System}}
		}
	}

	resp, err := g.client.CreateMessage(ctx, req)
	if err != nil {
		return eris.Wrapf(err, "llm: generation %s", spec.Name)
	}
	resp.Usage.LogCost(spec.Model.APIName(), spec.Name)

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return eris.Errorf("llm: generation %s returned no content", spec.Name)
	}

	if err := decodeInto(text, out); err != nil {
		return eris.Wrapf(err, "llm: generation %s", spec.Name)
	}

	span.SetOutput(out)
	return nil
}

// extractText joins the text blocks of a response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// decodeInto parses model output into out, first as-is after fence
// stripping, then after a JSON repair pass.
func decodeInto(text string, out any) error {
	cleaned := cleanJSON(text)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(cleaned)
	if repairErr != nil {
		return eris.Wrap(repairErr, "repair output json")
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return eris.Wrap(err, "unmarshal output json")
	}
	return nil
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
