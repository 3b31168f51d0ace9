package crawler

import (
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ExtractResult contains the information pulled from a fetched page.
type ExtractResult struct {
	// Title is the page title from the <title> tag.
	Title string

	// Links contains resolved absolute URLs from href attributes,
	// in document order.
	Links []string
}

// Extractor pulls hyperlinks out of page content for the traversal engine.
// The base URL is the address of the page being parsed; relative references
// are resolved against it.
type Extractor interface {
	Extract(baseURL string, content io.Reader) (*ExtractResult, error)
}

// HTMLExtractor extracts links from HTML documents.
//
// Design decision: We use golang.org/x/net/html rather than regex because:
//  1. It correctly handles malformed HTML common on the web
//  2. Provides a proper DOM-like structure
//  3. More maintainable than complex regex patterns
type HTMLExtractor struct{}

// NewHTMLExtractor creates an HTMLExtractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract parses the content and returns the page title and all anchor
// targets resolved to absolute URLs.
func (e *HTMLExtractor) Extract(baseURL string, content io.Reader) (*ExtractResult, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	result := &ExtractResult{Links: make([]string, 0)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if result.Title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					result.Title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				if href := getAttr(n, "href"); href != "" {
					if resolved := resolveReference(base, href); resolved != "" {
						result.Links = append(result.Links, resolved)
					}
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)

	return result, nil
}

// resolveReference resolves a possibly-relative href against the page URL.
// Scheme-relative, path-relative, query-only and fragment-only references
// all resolve per standard URL rules. Non-navigational schemes and bare
// fragment anchors yield the empty string.
func resolveReference(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}

	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}
