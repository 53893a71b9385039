// Package workflow orchestrates the company detail pipeline:
// discover candidate pages, extract facts from each, merge into one record.
package workflow

import (
	"context"

	"github.com/sells-group/company-detail-cli/internal/discover"
	"github.com/sells-group/company-detail-cli/internal/extract"
	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/merge"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
	"github.com/sells-group/company-detail-cli/pkg/jina"
)

// Models selects the logical model for each stage.
type Models struct {
	Discover llm.ModelName
	Extract  llm.ModelName
	Merge    llm.ModelName
}

// Workflow runs the three stages in sequence for one company.
type Workflow struct {
	discoverer *discover.Discoverer
	extractor  *extract.Extractor
	merger     *merge.Merger
}

// New wires a Workflow from its collaborators.
func New(reader jina.Client, gen llm.Generator, models Models) *Workflow {
	return &Workflow{
		discoverer: discover.NewDiscoverer(reader, gen, models.Discover),
		extractor:  extract.NewExtractor(reader, gen, models.Extract),
		merger:     merge.NewMerger(gen, models.Merge),
	}
}

// Run executes the full workflow for one company. Discovery and extraction
// degrade on failure (fewer candidates, fewer pages); a merge failure
// propagates after being recorded on the run's span.
func (w *Workflow) Run(ctx context.Context, companyName, companyURL string, sc *trace.SpanContext) (*model.CompanyDetailOutput, error) {
	span := trace.StartSpan("run_company_detail_workflow", sc)
	defer span.End()
	span.SetInput(map[string]any{"company_name": companyName, "company_url": companyURL})

	discovery := w.discoverer.Discover(ctx, companyName, companyURL, span)

	// Candidates are processed one at a time, in selection order. A failed
	// page is simply absent from the merge input.
	var extractions []model.PageExtractionResult
	for _, candidate := range discovery.Candidates {
		result := w.extractor.ExtractPage(ctx, candidate, span)
		if result == nil {
			continue
		}
		extractions = append(extractions, *result)
	}

	output, err := w.merger.Merge(ctx, companyName, companyURL, extractions, span)
	if err != nil {
		span.Error(err)
		return nil, err
	}

	span.SetOutput(output)
	return output, nil
}
