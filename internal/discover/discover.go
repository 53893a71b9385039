package discover

import (
	"context"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
	"github.com/sells-group/company-detail-cli/pkg/jina"
)

// Discoverer runs the page-discovery stage: hub exploration followed by
// candidate selection.
type Discoverer struct {
	reader jina.Client
	gen    llm.Generator
	model  llm.ModelName
}

// NewDiscoverer creates a Discoverer.
func NewDiscoverer(reader jina.Client, gen llm.Generator, model llm.ModelName) *Discoverer {
	return &Discoverer{reader: reader, gen: gen, model: model}
}

// Discover identifies up to 5 pages on the company site likely to contain
// the company profile, business description, or office addresses. Discovery
// never fails: upstream or generation failures degrade to an empty
// candidate list.
func (d *Discoverer) Discover(ctx context.Context, companyName, companyURL string, parent *trace.Span) model.DiscoveryResult {
	span := trace.StartSpan("discover_company_detail_candidates", trace.ChildOf(parent))
	defer span.End()
	span.SetInput(map[string]any{"company_name": companyName, "company_url": companyURL})

	hubs := d.exploreHubs(ctx, companyName, companyURL, span)
	result := d.selectCandidates(ctx, companyName, companyURL, hubs, span)

	span.SetOutput(result)
	return result
}
