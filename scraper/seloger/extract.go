package seloger

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"listing-delta/services"
)

// ExtractText returns one scalar field of a card. A nil spec, a missing node,
// a missing attribute or blank text all yield the spec's default.
func ExtractText(card *goquery.Selection, spec *FieldSpec) string {
	if spec == nil {
		return ""
	}

	node := card.FindMatcher(spec.matcher).First()
	if node.Length() == 0 {
		return spec.Default
	}

	var value string
	if spec.Attr != "" {
		attr, ok := node.Attr(spec.Attr)
		if !ok {
			return spec.Default
		}
		value = strings.TrimSpace(attr)
	} else {
		value = services.NormaliseText(node.Text())
	}

	if value == "" {
		return spec.Default
	}
	return value
}

// ExtractList collects a list field in document order. Matches lacking the
// attribute or with blank text are skipped. Returns nil when nothing matched.
func ExtractList(card *goquery.Selection, spec *FieldSpec) []string {
	if spec == nil {
		return nil
	}

	var out []string
	card.FindMatcher(spec.matcher).Each(func(_ int, s *goquery.Selection) {
		var value string
		if spec.Attr != "" {
			attr, ok := s.Attr(spec.Attr)
			if !ok {
				return
			}
			value = strings.TrimSpace(attr)
		} else {
			value = services.NormaliseText(s.Text())
		}
		if value != "" {
			out = append(out, value)
		}
	})
	return out
}
