package extractor

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Schemes that never point at a crawlable document.
var skipPrefixes = []string{"javascript:", "mailto:", "tel:", "data:"}

// assetExtensions are resources that are not documents.
var assetExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".bmp": true, ".tif": true, ".tiff": true,
	".css": true, ".js": true, ".mjs": true, ".map": true, ".json": true,
	".xml": true, ".rss": true, ".atom": true,
	".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".tgz": true,
	".bz2": true, ".xz": true, ".7z": true, ".rar": true, ".dmg": true,
	".exe": true, ".msi": true, ".deb": true, ".rpm": true, ".apk": true,
	".mp3": true, ".mp4": true, ".webm": true, ".ogg": true, ".wav": true,
	".avi": true, ".mov": true, ".woff": true, ".woff2": true, ".ttf": true,
	".otf": true, ".eot": true,
}

// extractLinks collects followable links in document order.
func extractLinks(doc *goquery.Document, base *url.URL) []string {
	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := ResolveLink(base, href)
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links
}

// ResolveLink resolves href against base and reports whether the result is
// a followable document link. The returned URL has no fragment.
func ResolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	lower := strings.ToLower(href)
	for _, p := range skipPrefixes {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(u)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" || IsAsset(resolved.Path) {
		return "", false
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""
	return resolved.String(), true
}

// IsAsset reports whether the URL path names a non-document resource.
func IsAsset(p string) bool {
	return assetExtensions[strings.ToLower(path.Ext(p))]
}

// documentBase honours <base href> when present.
func documentBase(doc *goquery.Document, pageURL *url.URL) *url.URL {
	href, ok := doc.Find("base[href]").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return pageURL
	}
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return pageURL.ResolveReference(u)
}

// absolutize rewrites link and image references so the markdown output
// points at absolute URLs.
func absolutize(doc *goquery.Document, base *url.URL) {
	rewrite := func(attr string) func(int, *goquery.Selection) {
		return func(_ int, s *goquery.Selection) {
			ref, _ := s.Attr(attr)
			ref = strings.TrimSpace(ref)
			if ref == "" || strings.HasPrefix(ref, "#") {
				return
			}
			u, err := url.Parse(ref)
			if err != nil {
				return
			}
			if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
				return
			}
			s.SetAttr(attr, base.ResolveReference(u).String())
		}
	}
	doc.Find("a[href]").Each(rewrite("href"))
	doc.Find("img[src]").Each(rewrite("src"))
}
