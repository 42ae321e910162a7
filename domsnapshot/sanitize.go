package domsnapshot

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/omnitrack/tracker-core/config"
)

// maskedPlaceholder replaces masked element text and input values.
const maskedPlaceholder = "***MASKED***"

// defaultMaskSelectors are masked unconditionally regardless of host
// configuration, per the documented default sensitive-field masking:
// password and hidden inputs, payment/SSN autocomplete hints, and
// name attributes that look like credentials.
var defaultMaskSelectors = []string{
	`input[type="password"]`,
	`input[type="hidden"]`,
	`input[autocomplete*="cc-"]`,
	`input[autocomplete="ssn"]`,
	`input[name*="password"]`,
	`input[name*="token"]`,
	`input[name*="secret"]`,
}

// SuppressionAttr, when present on an element, excludes that element's
// entire subtree from capture.
const SuppressionAttr = "data-analytics-snapshot"

// MaskMetadata reports what a sanitize pass masked or blocked.
type MaskMetadata struct {
	MaskedSelectors []string
	BlockedCount    int
}

// sanitizeTree walks a parsed document, removing blocked subtrees,
// suppressed subtrees, script/noscript elements and on* attributes, and
// masking text/values under mask selectors. It returns the metadata needed
// for the snapshot event's maskMetadata field.
func sanitizeTree(doc *html.Node, privacy config.PrivacyConfig) MaskMetadata {
	maskSelectors := append(append([]string{}, defaultMaskSelectors...), privacy.MaskSelectors...)
	meta := MaskMetadata{}
	seenMask := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}

		for c := n.FirstChild; c != nil; {
			next := c.NextSibling

			if c.Type == html.ElementNode {
				if shouldSuppress(c) {
					meta.BlockedCount++
					n.RemoveChild(c)
					c = next
					continue
				}
				if isBlocked(c, privacy.BlockSelectors) {
					meta.BlockedCount++
					n.RemoveChild(c)
					c = next
					continue
				}
				if c.Data == "script" || c.Data == "noscript" {
					n.RemoveChild(c)
					c = next
					continue
				}
				stripEventAttrs(c)
				if sel := maskingSelector(c, maskSelectors); sel != "" {
					maskElement(c)
					if !seenMask[sel] {
						seenMask[sel] = true
						meta.MaskedSelectors = append(meta.MaskedSelectors, sel)
					}
				} else if privacy.MaxNodeTextLength > 0 {
					truncateText(c, privacy.MaxNodeTextLength)
				}
			}

			walk(c)
			c = next
		}
	}
	walk(doc)

	return meta
}

func shouldSuppress(n *html.Node) bool {
	return attr(n, SuppressionAttr) == "off"
}

func isBlocked(n *html.Node, blockSelectors []string) bool {
	for _, sel := range blockSelectors {
		if matchesSelector(n, sel) {
			return true
		}
	}
	return false
}

func maskingSelector(n *html.Node, maskSelectors []string) string {
	for _, sel := range maskSelectors {
		if matchesSelector(n, sel) {
			return sel
		}
	}
	return ""
}

func maskElement(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		switch {
		case a.Key == "value":
			a.Val = maskedPlaceholder
			kept = append(kept, a)
		case strings.HasPrefix(a.Key, "data-"):
			// data-* attributes are stripped outright on masked nodes.
		default:
			kept = append(kept, a)
		}
	}
	n.Attr = kept

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			c.Data = maskedPlaceholder
		}
	}
}

// truncateText clamps each direct text child of n to maxLen runes, at a
// safe Unicode boundary, per the configured per-node text length limit.
func truncateText(n *html.Node, maxLen int) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			c.Data = maxTextLength(c.Data, maxLen)
		}
	}
}

func stripEventAttrs(n *html.Node) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if strings.HasPrefix(strings.ToLower(a.Key), "on") {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// bluemondayPolicy performs a final defense-in-depth pass over the
// serialized markup, stripping anything our own walk might have missed
// (inline event handlers, javascript: URLs, style-based exfiltration).
func bluemondayPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id", "style").Globally()
	p.AllowAttrs("data-analytics-snapshot").Globally()
	return p
}
