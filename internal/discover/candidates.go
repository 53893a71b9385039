package discover

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/company-detail-cli/internal/domain"
	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
)

// maxPoolForPrompt keeps the candidate prompt bounded to avoid oversized
// context.
const maxPoolForPrompt = 200

// poolItem is one deduplicated same-domain URL with the hub it came from.
type poolItem struct {
	url      string
	title    string
	hubTitle string
	hubURL   string
}

// candidateSelection is one model pick: a global pool index plus labeling.
type candidateSelection struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// candidateSelectionResult is the model output schema for candidate selection.
type candidateSelectionResult struct {
	Selections []candidateSelection `json:"selections"`
}

const candidateSelectionSystemPrompt = `Role: Select the best candidate pages for downstream extraction from a provided same-domain link list.

Downstream use:
- Each selected page will be fetched and an extraction step will try to pull:
    - addresses (本社/拠点/所在地)
    - business/service facts (事業内容/サービス/プロダクト)
- Prefer pages that likely CONTAIN the information (content pages), not just navigation link lists.

Selection rubric (aim for balance):
- Address-focused pages: 1-2
    - Examples: 会社概要 with 所在地, アクセス, 拠点一覧, 会社情報 where address is written
- Business-focused pages: 1-3
    - Examples: 事業内容, サービス一覧, プロダクト/ソリューション
- If available, include a company profile/about page (会社概要/企業情報) because it often contains the official address.

Avoid selecting (unless there is no better option):
- プライバシーポリシー/利用規約/免責
- ニュース/プレスリリース/ブログ/イベント/キャンペーン
- IR/投資家情報（住所が載る場合もあるが優先度は低い）
- 問い合わせフォームのみのページ

Rules:
- Choose ONLY from the provided indices
- Do not select near-duplicates (language duplicates or tracking variants)

For each selection, provide:
- index: the chosen index
- category: a short snake_case label (free text)
- reason (Japanese): 1-2 sentences; explicitly state whether it likely contains "住所" and/or "事業内容" and why

List format note:
- The list may be grouped with Markdown headers like "# ..." for readability
- Indices are global across the entire list (not per section)

Output:
- Return ONLY a JSON object that matches the output schema
- No prose, no markdown, no extra keys

Output schema:
{"selections": [{"index": <int>, "category": "<string>", "reason": "<string>"}, ...]}`

// selectCandidates picks up to 5 pages likely to contain business facts or
// addresses from the hub link pool. A generation failure degrades to an
// empty candidate list.
func (d *Discoverer) selectCandidates(ctx context.Context, companyName, companyURL string, hubs []model.HubPageLinks, parent *trace.Span) model.DiscoveryResult {
	span := trace.StartSpan("select_candidates", trace.ChildOf(parent))
	defer span.End()
	span.SetInput(map[string]any{"company_name": companyName, "hubs": len(hubs)})

	pool := collectPoolItems(companyURL, hubs)
	pool = orderAndTrimPool(pool)

	if len(pool) == 0 {
		span.SetOutput(map[string]any{"candidates": 0})
		return model.DiscoveryResult{Candidates: []model.CandidateURL{}}
	}

	prompt := buildSelectionPrompt(companyName, companyURL, pool)

	var selection candidateSelectionResult
	if err := d.gen.Generate(ctx, llm.GenerationSpec{
		Name:   "discover_select_candidates",
		Model:  d.model,
		System: candidateSelectionSystemPrompt,
		Prompt: prompt,
		Metadata: map[string]any{
			"company_name": companyName,
			"company_url":  companyURL,
		},
		Parent: span,
	}, &selection); err != nil {
		// Non-fatal: downstream stages tolerate zero candidates.
		zap.L().Error("discover: candidate selection failed", zap.Error(err))
		span.Error(err)
		return model.DiscoveryResult{Candidates: []model.CandidateURL{}}
	}

	// Map indices back to pool entries. Out-of-range indices and repeat URLs
	// are model noise, not system faults: drop them silently.
	candidates := make([]model.CandidateURL, 0, len(selection.Selections))
	selected := make(map[string]bool)
	for _, sel := range selection.Selections {
		if sel.Index < 0 || sel.Index >= len(pool) {
			continue
		}
		item := pool[sel.Index]
		if selected[item.url] {
			continue
		}
		selected[item.url] = true
		candidates = append(candidates, model.CandidateURL{
			URL:      item.url,
			Category: sel.Category,
			Reason:   sel.Reason,
		})
	}

	span.SetOutput(map[string]any{"candidates": len(candidates)})
	return model.DiscoveryResult{Candidates: candidates}
}

// collectPoolItems flattens hubs into unique same-domain URLs, keeping the
// first-seen metadata for each URL. Hub URLs themselves are included.
func collectPoolItems(companyURL string, hubs []model.HubPageLinks) []poolItem {
	seen := make(map[string]bool)
	var pool []poolItem

	for _, hub := range hubs {
		hubTitle := normalizeTitle(hub.Title, hub.URL)

		if domain.SameDomain(hub.URL, companyURL) && !seen[hub.URL] {
			seen[hub.URL] = true
			pool = append(pool, poolItem{url: hub.URL, title: hubTitle, hubTitle: hubTitle, hubURL: hub.URL})
		}

		for _, link := range hub.Links {
			if !domain.SameDomain(link.URL, companyURL) {
				continue
			}
			if seen[link.URL] {
				continue
			}
			seen[link.URL] = true
			pool = append(pool, poolItem{
				url:      link.URL,
				title:    normalizeTitle(link.Title, link.URL),
				hubTitle: hubTitle,
				hubURL:   hub.URL,
			})
		}
	}

	return pool
}

// orderAndTrimPool sorts the pool by (hub title, url) so the prompt groups
// links by their originating hub, then truncates it to the prompt budget.
func orderAndTrimPool(pool []poolItem) []poolItem {
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].hubTitle != pool[j].hubTitle {
			return pool[i].hubTitle < pool[j].hubTitle
		}
		return pool[i].url < pool[j].url
	})
	if len(pool) > maxPoolForPrompt {
		pool = pool[:maxPoolForPrompt]
	}
	return pool
}

// buildSelectionPrompt renders the pool grouped by hub title with global
// indices.
func buildSelectionPrompt(companyName, companyURL string, pool []poolItem) string {
	var lines []string
	currentHub := ""
	for i, item := range pool {
		if item.hubTitle != currentHub {
			if len(lines) > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, "# "+item.hubTitle)
			currentHub = item.hubTitle
		}
		lines = append(lines, fmt.Sprintf("%d. [%s](%s)", i, item.title, item.url))
	}

	return fmt.Sprintf(`Target Company:
- name: %s
- official_site_domain_root: %s

Index Range:
- valid_indices: 0..%d
- select_count: 0..5

Available Links:
%s`, companyName, companyURL, len(pool)-1, strings.Join(lines, "\n"))
}

func normalizeTitle(title, fallback string) string {
	t := strings.TrimSpace(title)
	if t == "" {
		return fallback
	}
	return t
}
