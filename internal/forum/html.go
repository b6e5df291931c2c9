package forum

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"
)

// importLinkPattern matches blueprint import redirect URLs inside a cooked
// post, including ones that appear in plain text rather than anchors.
var importLinkPattern = regexp.MustCompile(`https://my\.home-assistant\.io/redirect/blueprint_import[^"'\s<)]*`)

// extractImportLinks returns the distinct blueprint import URLs found in
// cooked HTML, anchor hrefs first, in document order.
func extractImportLinks(cooked string) []string {
	if cooked == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	add := func(link string) {
		if link == "" {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	if doc, err := html.Parse(strings.NewReader(cooked)); err == nil {
		var walk func(*html.Node)
		walk = func(n *html.Node) {
			if n.Type == html.ElementNode && n.Data == "a" {
				for _, attr := range n.Attr {
					if attr.Key == "href" && importLinkPattern.MatchString(attr.Val) {
						add(attr.Val)
					}
				}
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
		}
		walk(doc)
	}

	// Catch links pasted as bare text.
	for _, m := range importLinkPattern.FindAllString(cooked, -1) {
		add(m)
	}
	return links
}

// stripHTML reduces cooked HTML to plain text with collapsed whitespace,
// suitable for excerpts and for feeding the classifier.
func stripHTML(s string) string {
	if s == "" {
		return ""
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return collapseWhitespace(tagPattern.ReplaceAllString(s, " "))
	}

	var buf strings.Builder
	extractText(doc, &buf)
	return collapseWhitespace(buf.String())
}

var tagPattern = regexp.MustCompile(`<[^>]+>`)

func extractText(n *html.Node, buf *strings.Builder) {
	if n.Type == html.TextNode {
		buf.WriteString(n.Data)
	}
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style":
			return
		case "p", "div", "br", "li", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote":
			buf.WriteByte(' ')
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		extractText(c, buf)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// htmlToMarkdown converts the cooked first post to Markdown for the detail
// view. On conversion failure the stripped text is better than raw HTML.
func htmlToMarkdown(s string) string {
	if s == "" {
		return ""
	}
	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return stripHTML(s)
	}
	return strings.TrimSpace(markdown)
}
