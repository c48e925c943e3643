package gmail

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// invisibleElements never contribute text.
	invisibleElements = "script, style, head, title, meta, link"
	// linkFallbackLabel replaces links with no usable label.
	linkFallbackLabel = "Link"
)

// HTMLToText renders an HTML body as plain text. Invisible elements are
// dropped and every link is replaced by "[label] ", where label is the link
// text, else an image alt text, else "Link"; labels that look like URLs are
// skipped.
func HTMLToText(src string) (string, error) {
	// Scripting disabled so <noscript> content parses as markup, not raw text.
	root, err := html.ParseWithOptions(strings.NewReader(src), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	doc.Find(invisibleElements).Remove()
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		a.ReplaceWithNodes(&html.Node{
			Type: html.TextNode,
			Data: "[" + linkLabel(a) + "] ",
		})
	})

	var texts []string
	collectText(root, &texts)
	return normalizeHTMLText(strings.Join(texts, " ")), nil
}

func linkLabel(a *goquery.Selection) string {
	href, _ := a.Attr("href")

	if text := strings.Join(strings.Fields(a.Text()), " "); text != "" && !LooksLikeURL(text, href) {
		return text
	}

	if alt, ok := a.Find("img[alt]").First().Attr("alt"); ok {
		if alt = strings.TrimSpace(alt); alt != "" && !LooksLikeURL(alt, href) {
			return alt
		}
	}

	return linkFallbackLabel
}

// collectText appends every text node under n in document order.
func collectText(n *html.Node, out *[]string) {
	if n.Type == html.TextNode {
		*out = append(*out, n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, out)
	}
}
