package fetcher

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"golang.org/x/net/html"
)

// renderScoreThreshold is the score at which a page is treated as a
// JavaScript app shell.
const renderScoreThreshold = 4

// AutoFetcher fetches over plain HTTP and falls back to a browser when the
// returned HTML looks like a client-rendered app shell.
type AutoFetcher struct {
	plain   Fetcher
	browser Fetcher
	logger  *slog.Logger
}

// NewAutoFetcher creates a fetcher that upgrades to browser when needed.
func NewAutoFetcher(plain, browser Fetcher, logger *slog.Logger) *AutoFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoFetcher{plain: plain, browser: browser, logger: logger}
}

// Fetch implements Fetcher.
func (a *AutoFetcher) Fetch(ctx context.Context, rawURL string) (*Content, error) {
	content, err := a.plain.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !content.IsHTML() || !NeedsRendering(content.Body) {
		return content, nil
	}

	a.logger.Debug("page looks client-rendered, using browser", "url", rawURL)
	rendered, err := a.browser.Fetch(ctx, rawURL)
	if err != nil {
		a.logger.Debug("browser fetch failed, keeping plain response", "url", rawURL, "error", err)
		return content, nil
	}
	return rendered, nil
}

// NeedsRendering scores raw HTML for signs that its content is produced by
// JavaScript: framework mount points, <noscript>, framework markers, a high
// script-to-text ratio and little visible text.
func NeedsRendering(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	score := 0
	lower := bytes.ToLower(data)

	if hasDivID(lower, "root") || hasDivID(lower, "app") || hasDivID(lower, "__next") {
		score += 3
	}
	if bytes.Contains(lower, []byte("<noscript")) {
		score += 2
	}
	if bytes.Contains(data, []byte(`content="Next.js"`)) ||
		bytes.Contains(data, []byte(`data-reactroot`)) ||
		bytes.Contains(data, []byte(`ng-app`)) ||
		bytes.Contains(data, []byte(`data-v-`)) {
		score += 3
	}

	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return score >= renderScoreThreshold
	}

	scriptBytes, textBytes := contentRatio(doc)
	if (textBytes > 0 && scriptBytes > textBytes*3) || (textBytes == 0 && scriptBytes > 0) {
		score += 2
	}
	if len(strings.Fields(bodyText(doc))) < 30 {
		score += 2
	}

	return score >= renderScoreThreshold
}

func hasDivID(lower []byte, id string) bool {
	return bytes.Contains(lower, []byte(`<div id="`+id+`"`)) ||
		bytes.Contains(lower, []byte(`<div id='`+id+`'`))
}

// contentRatio counts inline script bytes against visible text bytes.
func contentRatio(doc *html.Node) (scriptBytes, textBytes int) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					scriptBytes += len(c.Data)
				}
			}
			return
		}
		if n.Type == html.TextNode {
			textBytes += len(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return scriptBytes, textBytes
}

// bodyText returns the visible text of <body>.
func bodyText(doc *html.Node) string {
	body := findElement(doc, "body")
	if body == nil {
		return ""
	}
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		if n.Type == html.TextNode {
			if trimmed := strings.TrimSpace(n.Data); trimmed != "" {
				buf.WriteString(trimmed)
				buf.WriteByte(' ')
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)
	return buf.String()
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
