package crawler

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Listing holds what the crawler needs from a parsed directory-listing page:
// the anchor references enumerating children, and the explicit base
// declaration if the page carries one.
type Listing struct {
	// BaseHref is the href of the page's <base> element, or empty.
	BaseHref string

	// Anchors are the raw href values of every <a> element, in document
	// order, unresolved.
	Anchors []string
}

// ParseListing parses a directory-listing page.
//
// Design decision: We use golang.org/x/net/html rather than regex because
// autoindex output varies wildly between nginx, Apache, and the odd PHP
// lister, and a real parser handles the malformed markup they produce.
func ParseListing(content io.Reader) (*Listing, error) {
	doc, err := html.Parse(content)
	if err != nil {
		return nil, err
	}

	listing := &Listing{Anchors: make([]string, 0)}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if href := cleanHref(getAttr(n, "href")); href != "" {
					listing.Anchors = append(listing.Anchors, href)
				}
			case "base":
				// First declaration wins, as in browsers.
				if listing.BaseHref == "" {
					listing.BaseHref = strings.TrimSpace(getAttr(n, "href"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return listing, nil
}

// cleanHref discards href values that can never name a child resource.
func cleanHref(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	for _, scheme := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(href, scheme) {
			return ""
		}
	}
	return href
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
