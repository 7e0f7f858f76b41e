package utils

import "testing"

func TestResolveURL(t *testing.T) {
	const base = "https://www.seloger.com/list.htm?types=1"
	tests := []struct {
		base, href, want string
	}{
		{base, "/annonces/achat/123.htm", "https://www.seloger.com/annonces/achat/123.htm"},
		{base, "https://www.seloger.com/annonces/456.htm", "https://www.seloger.com/annonces/456.htm"},
		{base, "//img.seloger.com/a.jpg", "https://img.seloger.com/a.jpg"},
		{base, "#", "#"},
		{base, "", ""},
		{"", "/annonces/1.htm", "/annonces/1.htm"},
		{"not a base", "/annonces/1.htm", "/annonces/1.htm"},
	}

	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.href); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q; want %q", tt.base, tt.href, got, tt.want)
		}
	}
}
