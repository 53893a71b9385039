// Package domain decides whether two URLs belong to the same website.
package domain

import (
	"net/url"
	"strings"
)

// SameDomain reports whether candidate shares a registrable domain with
// reference, ignoring a leading "www." on either side. A candidate whose
// scheme is not http or https never matches, and a URL that fails to parse
// is treated as a non-match rather than an error.
func SameDomain(candidate, reference string) bool {
	cu, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	ru, err := url.Parse(reference)
	if err != nil {
		return false
	}

	if cu.Scheme != "http" && cu.Scheme != "https" {
		return false
	}

	ch := normalizeHost(cu.Host)
	rh := normalizeHost(ru.Host)
	if ch == "" || rh == "" {
		return false
	}
	return ch == rh
}

func normalizeHost(host string) string {
	h := strings.ToLower(host)
	return strings.TrimPrefix(h, "www.")
}
