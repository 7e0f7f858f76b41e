package utils

import (
	"net/url"
	"strings"
)

// ResolveURL resolves href against base. Placeholders such as "#" and
// unparseable input are returned unchanged.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || base == "" {
		return href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if ref.IsAbs() {
		return href
	}

	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return href
	}
	return b.ResolveReference(ref).String()
}
