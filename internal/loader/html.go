package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"qabot/internal/domain"
)

// VisibleText returns the trimmed text nodes of an HTML document joined by
// newlines. Script, style, noscript and template content is dropped.
func VisibleText(r io.Reader) (string, error) {
	root, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return strings.Join(parts, "\n"), nil
}

// pageTitle returns the content of the first <title> element.
func pageTitle(root *html.Node) string {
	var title string
	var find func(*html.Node) bool
	find = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Title {
			if n.FirstChild != nil {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if find(c) {
				return true
			}
		}
		return false
	}
	find(root)
	return title
}

func extractHTML(source string, content []byte) ([]domain.Document, error) {
	text, err := VisibleText(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	meta := map[string]string{}
	if root, err := html.Parse(bytes.NewReader(content)); err == nil {
		if t := pageTitle(root); t != "" {
			meta["title"] = t
		}
	}
	return []domain.Document{newDocument(source, 0, text, meta)}, nil
}
