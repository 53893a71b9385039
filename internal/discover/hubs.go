package discover

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
)

// maxHomeLinksForPrompt bounds the homepage link list shown to the model.
const maxHomeLinksForPrompt = 200

// hubSelection is the model output schema for hub-page selection.
type hubSelection struct {
	SelectedIndices []int `json:"selected_indices"`
}

const hubSelectionSystemPrompt = `Role: Select hub-page candidates from a same-domain link list for a company website discovery workflow.

Definition:
- A hub page is a navigational/category page that links to content pages where we can later extract:
    - company profile (会社概要/企業情報/About)
    - business/services (事業内容/サービス/プロダクト)
    - locations/access (アクセス/所在地/拠点)

Selection rubric (priority order):
1) Pages clearly about company info/services/offices AND likely to contain many internal links
2) Top-level category pages (e.g., 会社情報, サービス, 拠点一覧)
3) Avoid low-signal or single-purpose pages: privacy/terms, news, blog, campaigns, IR, standalone articles

Hard constraints:
- Choose ONLY from the provided indices
- Select 0 to 4 items
- Return an empty list if none fit

Output:
- Return ONLY a JSON object that matches the output schema
- No explanations, no markdown, no extra keys

Output schema:
{"selected_indices": [<int>, ...]}`

// exploreHubs fetches the company homepage, asks the model which of its
// same-domain links look like navigational hubs, fetches those hubs, and
// returns each page with its same-domain outbound links. The homepage is
// always the first entry. Every failure past the homepage fetch degrades to
// partial results.
func (d *Discoverer) exploreHubs(ctx context.Context, companyName, companyURL string, parent *trace.Span) []model.HubPageLinks {
	span := trace.StartSpan("explore_hubs", trace.ChildOf(parent))
	defer span.End()
	span.SetInput(map[string]any{"company_name": companyName, "company_url": companyURL})

	top, err := d.reader.Read(ctx, companyURL)
	if err != nil || top == nil || strings.TrimSpace(top.Data.Content) == "" {
		zap.L().Warn("discover: top page fetch failed, no hubs",
			zap.String("url", companyURL),
			zap.Error(err),
		)
		return nil
	}

	topURL := top.Data.URL
	topTitle := top.Data.Title
	if topTitle == "" {
		topTitle = "Top Page"
	}
	topLinks := sameDomainLinks(topURL, top)

	pool := topLinks
	if len(pool) > maxHomeLinksForPrompt {
		pool = pool[:maxHomeLinksForPrompt]
	}

	var lines []string
	for i, link := range pool {
		lines = append(lines, fmt.Sprintf("%d. [%s] (%s)", i, link.Title, link.URL))
	}

	prompt := fmt.Sprintf(`Target Company:
- name: %s
- official_site: %s

Index Range:
- valid_indices: 0..%d
- select_count: 0..3

Available Links (index is global):
%s`, companyName, companyURL, len(pool)-1, strings.Join(lines, "\n"))

	var selection hubSelection
	genErr := d.gen.Generate(ctx, llm.GenerationSpec{
		Name:   "discover_select_hubs",
		Model:  d.model,
		System: hubSelectionSystemPrompt,
		Prompt: prompt,
		Metadata: map[string]any{
			"company_name": companyName,
			"company_url":  companyURL,
		},
		Parent: span,
	}, &selection)
	if genErr != nil {
		// Non-fatal: continue with the homepage as the only hub.
		zap.L().Error("discover: hub selection failed", zap.Error(genErr))
		selection.SelectedIndices = nil
	}

	hubs := []model.HubPageLinks{{Title: topTitle, URL: topURL, Links: topLinks}}

	for _, idx := range selection.SelectedIndices {
		if idx < 0 || idx >= len(pool) {
			continue
		}
		hubMeta := pool[idx]
		if hubMeta.URL == topURL {
			continue
		}

		hubResp, err := d.reader.Read(ctx, hubMeta.URL)
		if err != nil || hubResp == nil || strings.TrimSpace(hubResp.Data.Content) == "" {
			zap.L().Warn("discover: hub page fetch failed",
				zap.String("url", hubMeta.URL),
				zap.Error(err),
			)
			continue
		}

		hubTitle := strings.TrimSpace(firstNonEmpty(hubResp.Data.Title, hubMeta.Title, hubMeta.URL))
		hubs = append(hubs, model.HubPageLinks{
			Title: hubTitle,
			URL:   hubMeta.URL,
			Links: sameDomainLinks(hubMeta.URL, hubResp),
		})
	}

	span.SetOutput(map[string]any{"hubs": len(hubs)})
	return hubs
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
