package extractor

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability/v2"
	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// render converts the first node of sel to normalized markdown.
// An empty selection renders as an empty string.
func render(sel *goquery.Selection) (string, error) {
	if sel == nil || sel.Length() == 0 {
		return "", nil
	}
	md, err := htmltomarkdown.ConvertNode(sel.Get(0))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return normalize(string(md)), nil
}

// readabilityMarkdown renders the article found by go-readability.
// It returns an empty string when no article is found.
func readabilityMarkdown(body []byte, base *url.URL) string {
	article, err := readability.FromReader(bytes.NewReader(body), base)
	if err != nil || article.Node == nil {
		return ""
	}
	md, err := htmltomarkdown.ConvertNode(article.Node)
	if err != nil {
		return ""
	}
	return normalize(string(md))
}

// normalize collapses runs of blank lines outside code fences and trims
// the result.
func normalize(md string) string {
	lines := strings.Split(strings.ReplaceAll(md, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	inFence := false
	blank := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
		}
		if !inFence && trimmed == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}
