// Package extract pulls business facts and addresses from one candidate page.
package extract

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
	"github.com/sells-group/company-detail-cli/pkg/jina"
)

const extractionSystemPrompt = `Role: Extract company facts from a single web page for a company-detail workflow.

Extract two kinds of items, strictly grounded in the supplied page text:
- business: short standalone statements describing what the company does
  (事業内容/サービス/プロダクト). One fact per string.
- addresses: office locations. Each entry has a description (e.g. 本社,
  大阪支社, ショールーム) and the raw address text exactly as written on
  the page.

Hard constraints:
- Every item MUST appear in the supplied page text. Never infer, never
  complete partial addresses from outside knowledge.
- Exclude marketing slogans, legal boilerplate, and lines that only carry
  contact details (tel/fax/mail) with no address.
- Deduplicate near-identical items.
- When the page holds no valid evidence, return empty lists.

Output:
- Return ONLY a JSON object that matches the output schema
- No prose, no markdown, no extra keys

Output schema:
{"business": ["<string>", ...], "addresses": [{"description": "<string>", "address": "<string>"}, ...]}`

// Extractor runs the per-page extraction stage.
type Extractor struct {
	reader jina.Client
	gen    llm.Generator
	model  llm.ModelName
}

// NewExtractor creates an Extractor.
func NewExtractor(reader jina.Client, gen llm.Generator, model llm.ModelName) *Extractor {
	return &Extractor{reader: reader, gen: gen, model: model}
}

// ExtractPage fetches one candidate page and extracts business facts and
// address entries grounded in its text. Returns nil when the fetch or the
// generation fails; the caller drops the candidate and continues. Failures
// here never abort the batch.
func (e *Extractor) ExtractPage(ctx context.Context, candidate model.CandidateURL, parent *trace.Span) *model.PageExtractionResult {
	span := trace.StartSpan("extract_company_detail_from_page", trace.ChildOf(parent))
	defer span.End()
	span.SetInput(candidate)

	resp, err := e.reader.Read(ctx, candidate.URL)
	if err != nil || resp == nil || strings.TrimSpace(resp.Data.Content) == "" {
		zap.L().Warn("extract: page fetch failed or empty",
			zap.String("url", candidate.URL),
			zap.Error(err),
		)
		if err != nil {
			span.Error(err)
		}
		return nil
	}

	prompt := fmt.Sprintf(`Target Page:
- url: %s
- title: %s
- description: %s
- category_hint: %s

Page Text:
%s`, candidate.URL, resp.Data.Title, resp.Data.Description, candidate.Category, resp.Data.Content)

	var extracted model.ExtractedContent
	if err := e.gen.Generate(ctx, llm.GenerationSpec{
		Name:   "extract_page_content",
		Model:  e.model,
		System: extractionSystemPrompt,
		// The system prompt repeats for every candidate in a run.
		CacheSystem: true,
		Prompt:      prompt,
		Metadata: map[string]any{
			"url":      candidate.URL,
			"category": candidate.Category,
		},
		Parent: span,
	}, &extracted); err != nil {
		zap.L().Warn("extract: generation failed",
			zap.String("url", candidate.URL),
			zap.Error(err),
		)
		span.Error(err)
		return nil
	}

	result := &model.PageExtractionResult{
		URL:       candidate.URL,
		Title:     resp.Data.Title,
		Extracted: extracted,
	}
	span.SetOutput(result)
	return result
}
