// Package merge consolidates per-page extraction results into the final
// company detail record.
package merge

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/company-detail-cli/internal/llm"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/internal/trace"
)

// maxAddresses caps the merged address list.
const maxAddresses = 5

// headquartersMarker sorts an address entry ahead of all others when it
// appears in the description.
const headquartersMarker = "本社"

// mergedAddress is one address entry in the model's merge output. SourceSlot
// is the 1-based page slot the entry came from; slots keep raw URLs out of
// the prompt and the model output.
type mergedAddress struct {
	Description string `json:"description"`
	Address     string `json:"address"`
	SourceSlot  int    `json:"source_slot"`
}

// citationSlot maps one inline citation number in the summary text to the
// slot it cites.
type citationSlot struct {
	Citation   string `json:"citation"`
	SourceSlot int    `json:"source_slot"`
}

// mergeSummary is the model's business summary output.
type mergeSummary struct {
	Detail        string         `json:"detail"`
	CitationSlots []citationSlot `json:"citation_slots"`
}

// mergeResult is the model output schema for the merge call.
type mergeResult struct {
	Addresses       []mergedAddress `json:"addresses"`
	BusinessSummary mergeSummary    `json:"business_summary"`
}

const mergeSystemPrompt = `Role: Consolidate per-page extraction results into one company record.

You receive extraction results for several pages of one company's site. Each
page is identified by a 1-based slot number. Produce:

1. addresses: the company's office locations.
   - Each entry: description (e.g. 本社, 大阪支社), address (raw text), and
     source_slot (the slot the address was extracted from).
   - Put head-office entries (本社) first.
   - At most 5 entries. Drop duplicates that only differ in formatting.
2. business_summary:
   - detail: a concise Japanese summary of the company's business, with
     inline citation markers like [1] referencing the slot the statement is
     grounded in.
   - citation_slots: one entry per citation number used in detail, mapping
     the citation string to its source slot.

Hard constraints:
- Use ONLY the supplied extraction results. No outside knowledge.
- Reference pages ONLY by slot number. Never emit raw URLs.
- When no valid evidence exists, return empty lists and an empty detail.

Output:
- Return ONLY a JSON object that matches the output schema
- No prose, no markdown, no extra keys

Output schema:
{"addresses": [{"description": "<string>", "address": "<string>", "source_slot": <int>}, ...],
 "business_summary": {"detail": "<string>", "citation_slots": [{"citation": "<string>", "source_slot": <int>}, ...]}}`

// citationPattern matches inline [n] citation markers.
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// Merger runs the merge stage.
type Merger struct {
	gen   llm.Generator
	model llm.ModelName
}

// NewMerger creates a Merger.
func NewMerger(gen llm.Generator, model llm.ModelName) *Merger {
	return &Merger{gen: gen, model: model}
}

// Merge consolidates the extraction results into the final record. Unlike
// discovery and extraction, a generation failure here propagates: there is
// no sensible degraded output for an un-mergeable result.
func (m *Merger) Merge(ctx context.Context, companyName, companyURL string, extractions []model.PageExtractionResult, parent *trace.Span) (*model.CompanyDetailOutput, error) {
	span := trace.StartSpan("merge_company_detail_extractions", trace.ChildOf(parent))
	defer span.End()
	span.SetInput(map[string]any{"company_name": companyName, "pages": len(extractions)})

	out := &model.CompanyDetailOutput{
		CompanyName: companyName,
		CompanyURL:  companyURL,
		Address:     []model.AddressOutput{},
		BusinessSummary: model.BusinessSummaryOutput{
			Detail:     "",
			SourceUrls: model.CitationMap{},
		},
		ViewedSourceURLs: []string{},
	}

	// No evidence: the empty record is already correct, skip the model call.
	if len(extractions) == 0 {
		span.SetOutput(out)
		return out, nil
	}

	// Slots are 1-based positions in the input list.
	slotURL := make(map[int]string, len(extractions))
	for i, ex := range extractions {
		slot := i + 1
		slotURL[slot] = ex.URL
		out.ViewedSourceURLs = append(out.ViewedSourceURLs, ex.URL)
	}

	prompt := buildMergePrompt(companyName, extractions)

	var merged mergeResult
	if err := m.gen.Generate(ctx, llm.GenerationSpec{
		Name:   "merge_company_detail",
		Model:  m.model,
		System: mergeSystemPrompt,
		Prompt: prompt,
		Metadata: map[string]any{
			"company_name": companyName,
			"company_url":  companyURL,
			"pages":        len(extractions),
		},
		Parent: span,
	}, &merged); err != nil {
		err = eris.Wrap(err, "merge: consolidate extractions")
		span.Error(err)
		return nil, err
	}

	out.Address = processAddresses(merged.Addresses, slotURL)
	out.BusinessSummary = processSummary(merged.BusinessSummary, slotURL)

	span.SetOutput(out)
	return out, nil
}

// buildMergePrompt lists each slot's path hint, title, business facts, and
// address entries. Only the URL path component is shown; full URLs stay out
// of the prompt.
func buildMergePrompt(companyName string, extractions []model.PageExtractionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target Company: %s\n\nExtraction Results:\n", companyName)

	for i, ex := range extractions {
		slot := i + 1
		fmt.Fprintf(&b, "\n## Slot %d\n", slot)
		fmt.Fprintf(&b, "- path: %s\n", pathHint(ex.URL))
		fmt.Fprintf(&b, "- title: %s\n", ex.Title)

		if len(ex.Extracted.Business) > 0 {
			b.WriteString("- business:\n")
			for _, fact := range ex.Extracted.Business {
				fmt.Fprintf(&b, "    - %s\n", fact)
			}
		}
		if len(ex.Extracted.Addresses) > 0 {
			b.WriteString("- addresses:\n")
			for _, addr := range ex.Extracted.Addresses {
				fmt.Fprintf(&b, "    - %s: %s\n", addr.Description, addr.Address)
			}
		}
	}

	return b.String()
}

// pathHint returns the path component of a URL, or "/" when it is empty or
// the URL does not parse.
func pathHint(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// processAddresses resolves slots to URLs, drops entries citing unknown
// slots, deduplicates by normalized text, sorts headquarters entries first,
// and caps the list.
func processAddresses(addresses []mergedAddress, slotURL map[int]string) []model.AddressOutput {
	result := make([]model.AddressOutput, 0, len(addresses))
	seen := make(map[string]bool)

	for _, a := range addresses {
		sourceURL, ok := slotURL[a.SourceSlot]
		if !ok {
			continue
		}

		key := normalizeText(a.Description) + "\x00" + normalizeText(a.Address) + "\x00" + sourceURL
		if seen[key] {
			continue
		}
		seen[key] = true

		result = append(result, model.AddressOutput{
			Description: a.Description,
			Address:     a.Address,
			SourceURL:   sourceURL,
		})
	}

	// Headquarters first, input order otherwise.
	sort.SliceStable(result, func(i, j int) bool {
		return isHeadquarters(result[i]) && !isHeadquarters(result[j])
	})

	if len(result) > maxAddresses {
		result = result[:maxAddresses]
	}
	return result
}

func isHeadquarters(a model.AddressOutput) bool {
	return strings.Contains(a.Description, headquartersMarker)
}

// processSummary keeps only citations that are both present in the detail
// text and resolvable to a known slot. Markers for dropped citations are
// stripped from the text. A summary with no valid citations is emptied
// entirely: uncited text has no attribution and is not trustworthy output.
func processSummary(summary mergeSummary, slotURL map[int]string) model.BusinessSummaryOutput {
	empty := model.BusinessSummaryOutput{Detail: "", SourceUrls: model.CitationMap{}}

	present := make(map[string]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(summary.Detail, -1) {
		present[match[1]] = true
	}
	if len(present) == 0 {
		return empty
	}

	valid := model.CitationMap{}
	for _, cs := range summary.CitationSlots {
		if !present[cs.Citation] {
			continue
		}
		sourceURL, ok := slotURL[cs.SourceSlot]
		if !ok {
			continue
		}
		valid[cs.Citation] = sourceURL
	}
	if len(valid) == 0 {
		return empty
	}

	detail := citationPattern.ReplaceAllStringFunc(summary.Detail, func(marker string) string {
		n := citationPattern.FindStringSubmatch(marker)[1]
		if _, ok := valid[n]; ok {
			return marker
		}
		return ""
	})
	detail = collapseDoubleSpaces(detail)

	return model.BusinessSummaryOutput{Detail: detail, SourceUrls: valid}
}

func collapseDoubleSpaces(s string) string {
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

// dashVariants are folded to a single ASCII hyphen when building dedupe keys.
var dashVariants = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
)

// normalizeText builds a comparison form: NFKC fold, dash variants to one
// code point, whitespace collapsed to single spaces.
func normalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = dashVariants.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
