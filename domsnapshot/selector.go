package domsnapshot

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Selector computes a CSS selector chain identifying node within its
// document: the element's own id, or its class-qualified tag followed by
// :nth-of-type(k) when same-tag siblings precede it, prefixed by its
// ancestors up to (and including) the nearest ancestor bearing an id.
func Selector(node *html.Node) string {
	var parts []string

	for n := node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		parts = append([]string{elementSelector(n)}, parts...)
		if id := attr(n, "id"); id != "" {
			break
		}
	}

	return strings.Join(parts, " > ")
}

func elementSelector(n *html.Node) string {
	if id := attr(n, "id"); id != "" {
		return fmt.Sprintf("#%s", id)
	}

	sel := n.Data
	if class := attr(n, "class"); class != "" {
		fields := strings.Fields(class)
		if len(fields) > 0 {
			sel += "." + strings.Join(fields, ".")
		}
	}
	if idx := siblingIndex(n); idx > 1 {
		sel += fmt.Sprintf(":nth-of-type(%d)", idx)
	}
	return sel
}

// XPath computes an absolute XPath for node, disambiguating siblings that
// share a tag name with a positional index.
func XPath(node *html.Node) string {
	var parts []string

	for n := node; n != nil && n.Type == html.ElementNode; n = n.Parent {
		idx := siblingIndex(n)
		if idx > 1 {
			parts = append([]string{fmt.Sprintf("%s[%d]", n.Data, idx)}, parts...)
		} else {
			parts = append([]string{n.Data}, parts...)
		}
	}

	return "/" + strings.Join(parts, "/")
}

// siblingIndex returns the 1-based position of n among same-tag siblings,
// or 1 if it is the only one.
func siblingIndex(n *html.Node) int {
	if n.Parent == nil {
		return 1
	}
	idx := 1
	for sib := n.Parent.FirstChild; sib != nil; sib = sib.NextSibling {
		if sib == n {
			return idx
		}
		if sib.Type == html.ElementNode && sib.Data == n.Data {
			idx++
		}
	}
	return 1
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// matchesSelector performs a minimal selector match: "#id", ".class", an
// attribute selector (see matchesAttrSelector), or a bare tag name. It is
// sufficient for the block/mask selector lists, which
// are simple, non-combinator CSS selectors by convention.
func matchesSelector(n *html.Node, selector string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch {
	case strings.HasPrefix(selector, "#"):
		return attr(n, "id") == selector[1:]
	case strings.HasPrefix(selector, "."):
		class := selector[1:]
		for _, f := range strings.Fields(attr(n, "class")) {
			if f == class {
				return true
			}
		}
		return false
	case strings.Contains(selector, "["):
		return matchesAttrSelector(n, selector)
	default:
		return n.Data == selector
	}
}

// matchesAttrSelector handles the attribute patterns the default
// sensitive-field selectors need: tag[attr], tag[attr="value"] (exact),
// and tag[attr*="value"] (substring), e.g. for matching autocomplete or
// name attributes that merely contain a sensitive token.
func matchesAttrSelector(n *html.Node, selector string) bool {
	open := strings.Index(selector, "[")
	shut := strings.Index(selector, "]")
	if open < 0 || shut < 0 || shut < open {
		return false
	}
	tag := selector[:open]
	if tag != "" && tag != n.Data {
		return false
	}
	inner := selector[open+1 : shut]

	if star := strings.Index(inner, "*="); star >= 0 {
		key := inner[:star]
		val := strings.Trim(inner[star+2:], `"'`)
		return val != "" && strings.Contains(attr(n, key), val)
	}

	eq := strings.Index(inner, "=")
	if eq < 0 {
		_, ok := find(n.Attr, inner)
		return ok
	}
	key := inner[:eq]
	val := strings.Trim(inner[eq+1:], `"'`)
	return attr(n, key) == val
}

func find(attrs []html.Attribute, key string) (html.Attribute, bool) {
	for _, a := range attrs {
		if a.Key == key {
			return a, true
		}
	}
	return html.Attribute{}, false
}
