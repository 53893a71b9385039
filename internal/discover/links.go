// Package discover finds candidate pages on a company site worth extracting.
package discover

import (
	"sort"

	"github.com/sells-group/company-detail-cli/internal/domain"
	"github.com/sells-group/company-detail-cli/internal/model"
	"github.com/sells-group/company-detail-cli/pkg/jina"
)

// sameDomainLinks extracts the same-domain links from a reader response,
// deduplicated by URL. When the same URL appears under several anchor texts
// the longest one wins. The result is sorted by URL ascending so downstream
// prompts are deterministic.
func sameDomainLinks(baseURL string, resp *jina.ReadResponse) []model.LinkItem {
	if resp == nil || len(resp.Data.Links) == 0 {
		return nil
	}

	// Walk anchors in sorted order so ties between equal-length titles
	// resolve the same way on every run.
	titles := make([]string, 0, len(resp.Data.Links))
	for title := range resp.Data.Links {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	discovered := make(map[string]string)
	for _, title := range titles {
		linkURL := resp.Data.Links[title]
		if !domain.SameDomain(linkURL, baseURL) {
			continue
		}
		if existing, ok := discovered[linkURL]; !ok || len(title) > len(existing) {
			discovered[linkURL] = title
		}
	}

	links := make([]model.LinkItem, 0, len(discovered))
	for u, t := range discovered {
		if t == "" {
			t = u
		}
		links = append(links, model.LinkItem{URL: u, Title: t})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].URL < links[j].URL })
	return links
}
