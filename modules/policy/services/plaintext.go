package services

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ExtractPlainText strips markup, decodes entities and collapses whitespace.
// Text on either side of a tag boundary is kept apart, so "<p>a</p><p>b</p>" yields "a b".
// Script and style bodies are dropped. Publisher and translations both index its output.
func ExtractPlainText(content string) string {
	if strings.TrimSpace(content) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return strings.Join(strings.Fields(content), " ")
	}
	var parts []string
	doc.Contents().Each(func(_ int, s *goquery.Selection) {
		for _, n := range s.Nodes {
			collectText(n, &parts)
		}
	})
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	switch n.Type {
	case html.TextNode:
		*parts = append(*parts, n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
