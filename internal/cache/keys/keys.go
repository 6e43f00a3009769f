package keys

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const maxLabelLen = 64

// CatalogKey identifies one catalog query. The readable label is the endpoint
// host and path; the hash covers the full endpoint and the sorted query string.
func CatalogKey(endpoint string, params url.Values) string {
	label := endpoint
	if u, err := url.Parse(strings.TrimSpace(endpoint)); err == nil && u.Host != "" {
		label = u.Host + u.Path
	}
	label = sanitizeForKey(strings.ToLower(label))
	if len(label) > maxLabelLen {
		label = label[:maxLabelLen]
	}

	canonical := strings.TrimRight(strings.TrimSpace(endpoint), "/") + "?" + params.Encode()
	sum := xxhash.Sum64String(canonical)

	return fmt.Sprintf("catalog:%s:q=%016x", label, sum)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case isAlphaNum(r) || r == '_' || r == '.':
			out = r
		default:
			// path separators, colons and anything non-ASCII collapse to '-'
			out = '-'
		}
		if out == '-' && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return strings.Trim(b.String(), "-")
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
