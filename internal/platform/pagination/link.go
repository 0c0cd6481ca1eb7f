package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// BuildLinkHeader constructs an RFC 8288 Link header for an offset page,
// preserving existing query params. "next" is present when more items
// follow the page and "prev" when the page does not start at zero.
func BuildLinkHeader(baseURL string, query url.Values, page Page, total int) string {
	var links []string
	if page.Offset < total-page.Limit {
		links = append(links, link(baseURL, query, page.Limit, page.Offset+page.Limit, "next"))
	}
	if page.Offset > 0 {
		links = append(links, link(baseURL, query, page.Limit, max(0, page.Offset-page.Limit), "prev"))
	}
	return strings.Join(links, ", ")
}

func link(baseURL string, query url.Values, limit, offset int, rel string) string {
	q := cloneValues(query)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))
	return fmt.Sprintf("<%s?%s>; rel=%q", baseURL, q.Encode(), rel)
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return make(url.Values)
	}
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}
