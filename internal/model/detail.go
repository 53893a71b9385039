// Package model defines the data types passed between workflow stages.
package model

import (
	"encoding/json"
	"sort"
	"strconv"
)

// LinkItem is one outbound hyperlink found on a fetched page.
type LinkItem struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// HubPageLinks is one page treated as a link hub: its title, URL, and the
// same-domain links found on it, ordered by URL. The company homepage is
// always the first hub in a discovery run.
type HubPageLinks struct {
	Title string     `json:"title"`
	URL   string     `json:"url"`
	Links []LinkItem `json:"links"`
}

// CandidateURL is a page selected for fact extraction.
type CandidateURL struct {
	URL      string `json:"url"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// DiscoveryResult holds the candidate pages chosen by the discover stage.
type DiscoveryResult struct {
	Candidates []CandidateURL `json:"candidates"`
}

// AddressItem is one address entry extracted from a single page.
type AddressItem struct {
	Description string `json:"description"`
	Address     string `json:"address"`
}

// ExtractedContent is the per-page extraction payload.
type ExtractedContent struct {
	Business  []string      `json:"business"`
	Addresses []AddressItem `json:"addresses"`
}

// PageExtractionResult is one page's full extraction. Produced only when the
// page fetch succeeded and content was non-empty.
type PageExtractionResult struct {
	URL       string           `json:"url"`
	Title     string           `json:"title"`
	Extracted ExtractedContent `json:"extracted"`
}

// AddressOutput is one merged address entry with source attribution.
type AddressOutput struct {
	Description string `json:"description"`
	Address     string `json:"address"`
	SourceURL   string `json:"sourceUrl"`
}

// CitationMap maps citation numbers (as strings) to source URLs. It marshals
// with keys ordered by ascending numeric value so the wire format is stable.
type CitationMap map[string]string

// MarshalJSON emits entries sorted by numeric key. Non-numeric keys sort
// after numeric ones, lexically.
func (m CitationMap) MarshalJSON() ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		switch {
		case errI == nil && errJ == nil:
			return ni < nj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	buf := []byte{'{'}
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, vb...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// BusinessSummaryOutput is the citation-annotated business summary. Detail
// contains inline [n] markers; SourceUrls resolves each cited n to the URL
// it came from.
type BusinessSummaryOutput struct {
	Detail     string      `json:"detail"`
	SourceUrls CitationMap `json:"sourceUrls"`
}

// CompanyDetailOutput is the final merged record for one workflow run.
type CompanyDetailOutput struct {
	CompanyName      string                `json:"company_name"`
	CompanyURL       string                `json:"company_url"`
	Address          []AddressOutput       `json:"address"`
	BusinessSummary  BusinessSummaryOutput `json:"business_summary"`
	ViewedSourceURLs []string              `json:"viewed_source_urls"`
}
