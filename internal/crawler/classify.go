package crawler

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/nao1215/webrecon/internal/model"
)

// typeRule maps a URL pattern to a page type. Rules are evaluated in order
// and the first match wins, so more specific signals must precede generic
// ones.
//
// Design decision: Classification is a data-driven ordered rule list rather
// than a switch because:
//  1. Each rule is independently testable
//  2. Adding a site-specific rule is a one-line change
//  3. Rule precedence is explicit in the table, not buried in control flow
type typeRule struct {
	// name describes the signal, for debugging.
	name string

	// match reports whether the rule applies to the URL.
	match func(u *url.URL) bool

	// pageType is assigned when the rule matches.
	pageType model.PageType
}

// assetExtensions are path suffixes that identify non-HTML resources.
var assetExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".zip": true, ".tar": true, ".gz": true, ".rar": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".mp3": true, ".mp4": true, ".webm": true,
	".css": true, ".js": true, ".json": true, ".xml": true, ".rss": true,
}

// datePathPattern matches date-like path segments such as /2024/05/
// which strongly indicate dated article archives.
var datePathPattern = regexp.MustCompile(`/(19|20)\d{2}/\d{1,2}(/|$)`)

// segmentKeywords groups path keywords per page type.
var (
	blogSegments    = map[string]bool{"blog": true, "post": true, "posts": true, "article": true, "articles": true, "news": true, "story": true, "stories": true}
	productSegments = map[string]bool{"product": true, "products": true, "item": true, "items": true, "shop": true, "store": true, "p": true}
	listingSegments = map[string]bool{"category": true, "categories": true, "tag": true, "tags": true, "archive": true, "archives": true, "collection": true, "collections": true, "topics": true, "index": true}
	staticSegments  = map[string]bool{"about": true, "contact": true, "faq": true, "help": true, "privacy": true, "terms": true, "legal": true, "imprint": true, "team": true, "careers": true}
	searchSegments  = map[string]bool{"search": true, "results": true, "find": true}
)

// typeRules is the ordered classification table. Earlier rules win.
var typeRules = []typeRule{
	{
		name:     "homepage",
		match:    func(u *url.URL) bool { return u.Path == "" || u.Path == "/" },
		pageType: model.TypeHomepage,
	},
	{
		name: "asset extension",
		match: func(u *url.URL) bool {
			return assetExtensions[strings.ToLower(path.Ext(u.Path))]
		},
		pageType: model.TypeAsset,
	},
	{
		name: "search",
		match: func(u *url.URL) bool {
			return u.Query().Has("q") || u.Query().Has("query") || hasSegmentIn(u, searchSegments)
		},
		pageType: model.TypeSearch,
	},
	{
		name: "dated path",
		match: func(u *url.URL) bool {
			return datePathPattern.MatchString(u.Path)
		},
		pageType: model.TypeBlogPost,
	},
	{
		name:     "blog keywords",
		match:    func(u *url.URL) bool { return hasSegmentIn(u, blogSegments) },
		pageType: model.TypeBlogPost,
	},
	{
		name:     "product keywords",
		match:    func(u *url.URL) bool { return hasSegmentIn(u, productSegments) },
		pageType: model.TypeProduct,
	},
	{
		name:     "listing keywords",
		match:    func(u *url.URL) bool { return hasSegmentIn(u, listingSegments) },
		pageType: model.TypeListing,
	},
	{
		name:     "static keywords",
		match:    func(u *url.URL) bool { return hasSegmentIn(u, staticSegments) },
		pageType: model.TypeStatic,
	},
}

// hasSegmentIn reports whether any path segment appears in the keyword set.
func hasSegmentIn(u *url.URL, keywords map[string]bool) bool {
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if keywords[strings.ToLower(seg)] {
			return true
		}
	}
	return false
}

// Classify infers a coarse page type from a URL. The heuristic is best
// effort: unmatched content pages classify as TypePage and unparseable
// input degrades to TypeUnknown rather than failing.
func Classify(rawURL string) model.PageType {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return model.TypeUnknown
	}
	for _, rule := range typeRules {
		if rule.match(u) {
			return rule.pageType
		}
	}
	return model.TypePage
}
