package pagination

import (
	"regexp"
	"strconv"
	"strings"
)

// RewriteLink replaces everything up to and including the last occurrence
// of endpoint in href with pageURL stripped of its query, fragment and
// trailing slash. Links that do not mention endpoint are returned as is.
func RewriteLink(href, endpoint, pageURL string) string {
	if endpoint == "" {
		return href
	}
	i := strings.LastIndex(href, endpoint)
	if i < 0 {
		return href
	}
	return pageBase(pageURL) + href[i+len(endpoint):]
}

func pageBase(pageURL string) string {
	if i := strings.IndexAny(pageURL, "?#"); i >= 0 {
		pageURL = pageURL[:i]
	}
	return strings.TrimRight(pageURL, "/")
}

var pagePatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]page=(\d+)`),
	regexp.MustCompile(`[?&]paged=(\d+)`),
	regexp.MustCompile(`[?&]page_num=(\d+)`),
	regexp.MustCompile(`/page/(\d+)(?:/|$|\?)`),
	regexp.MustCompile(`/(\d+)(?:/|$)`),
	regexp.MustCompile(`[?&]\w+=(\d+)`),
	regexp.MustCompile(`(\d+)(?:/|$)`),
}

// PageFromURL extracts the page number a pagination link points at, trying
// the page query variables first, then path segments, then any numeric
// query parameter. It returns 0 when href carries no page number.
func PageFromURL(href string) int {
	for _, re := range pagePatterns {
		m := re.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 {
			continue
		}
		return n
	}
	return 0
}
