package pagination

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteLink(t *testing.T) {
	tests := []struct {
		name, href, endpoint, page, want string
	}{
		{
			name:     "absolute endpoint link",
			href:     "http://api.local/ajax?page_num=2",
			endpoint: "/ajax",
			page:     "https://site.test/blog/?utm=x#top",
			want:     "https://site.test/blog?page_num=2",
		},
		{
			name:     "relative endpoint link with path segment",
			href:     "/ajax/page/3/",
			endpoint: "/ajax",
			page:     "https://site.test/shop/",
			want:     "https://site.test/shop/page/3/",
		},
		{
			name:     "foreign link untouched",
			href:     "https://site.test/shop/?paged=2",
			endpoint: "/ajax",
			page:     "https://site.test/shop/",
			want:     "https://site.test/shop/?paged=2",
		},
		{
			name:     "empty endpoint",
			href:     "/ajax?paged=2",
			endpoint: "",
			page:     "https://site.test/",
			want:     "/ajax?paged=2",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RewriteLink(tc.href, tc.endpoint, tc.page))
		})
	}
}

func TestRewriteLink_Repeatable(t *testing.T) {
	once := RewriteLink("/ajax?paged=2", "/ajax", "https://site.test/blog/")
	assert.Equal(t, once, RewriteLink(once, "/ajax", "https://site.test/blog/"))
}

func TestPageFromURL(t *testing.T) {
	tests := []struct {
		href string
		want int
	}{
		{"/blog?page=4", 4},
		{"/blog?x=1&paged=3", 3},
		{"/ajax?page_num=2", 2},
		{"/2024/news/page/5/", 5},
		{"/shop/7/", 7},
		{"/shop?p=9", 9},
		{"/shop", 0},
		{"", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, PageFromURL(tc.href), tc.href)
	}
}

func TestResolve_Total(t *testing.T) {
	views := []View{
		OtherView, HomeView, ArchiveView, PostTypeArchiveView, FrontPageView,
		AuthorView, SingularView, SearchView, TaxonomyView, View("unknown"),
	}
	kinds := []QueryKind{MainQuery, CustomQuery, UserQuery}

	for _, k := range kinds {
		for _, v := range views {
			f := Resolve(PageContext{Query: k, View: v})
			assert.NotEmpty(t, f, "query=%s view=%s", k, v)
		}
	}
}

func TestResolve_Dispatch(t *testing.T) {
	tests := []struct {
		pc   PageContext
		want Formula
	}{
		{PageContext{Query: MainQuery, View: TaxonomyView}, PagedVar},
		{PageContext{Query: CustomQuery, View: HomeView}, PageNumArg},
		{PageContext{Query: UserQuery, View: FrontPageView}, PageNumArg},
		{PageContext{Query: CustomQuery, View: SingularView}, PageNumArg},
		{PageContext{Query: CustomQuery, View: AuthorView}, PageNumArg},
		{PageContext{Query: CustomQuery, View: SearchView}, SearchPath},
		{PageContext{Query: CustomQuery, View: TaxonomyView, TermLink: "/genre/rock/"}, TermSegment},
		{PageContext{Query: CustomQuery, View: TaxonomyView}, GenericPage},
		{PageContext{Query: CustomQuery, View: OtherView}, GenericPage},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Resolve(tc.pc), "%+v", tc.pc)
	}
}

func TestFormula_Link(t *testing.T) {
	params := url.Values{"s": {"boots"}}
	tests := []struct {
		name string
		f    Formula
		pc   PageContext
		n    int
		want string
	}{
		{"paged first page", PagedVar, PageContext{Path: "/blog/"}, 1, "/blog/"},
		{"paged", PagedVar, PageContext{Path: "/blog/"}, 3, "/blog/?paged=3"},
		{"generic", GenericPage, PageContext{Path: "/x"}, 2, "/x?paged=2"},
		{"page_num keeps params", PageNumArg, PageContext{Path: "/shop", Params: params}, 2, "/shop?page_num=2&s=boots"},
		{"search drops params", SearchPath, PageContext{Path: "/search", Params: params}, 2, "/search?page_num=2"},
		{"term first page", TermSegment, PageContext{TermLink: "/genre/rock"}, 1, "/genre/rock/"},
		{"term", TermSegment, PageContext{TermLink: "/genre/rock/"}, 4, "/genre/rock/page/4/"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.f.Link(tc.pc, tc.n))
		})
	}
	assert.Empty(t, params.Get(PageNumParam), "Link must not mutate the caller's params")
}

func TestFormula_CurrentPage(t *testing.T) {
	assert.Equal(t, 1, PagedVar.CurrentPage(url.Values{}, 5))
	assert.Equal(t, 3, PagedVar.CurrentPage(url.Values{"paged": {"3"}}, 5))
	assert.Equal(t, 5, PageNumArg.CurrentPage(url.Values{"page_num": {"9"}}, 5))
	assert.Equal(t, 1, PageNumArg.CurrentPage(url.Values{"page_num": {"-2"}}, 5))
	assert.Equal(t, 9, PageNumArg.CurrentPage(url.Values{"page_num": {"9"}}, 0))
}
