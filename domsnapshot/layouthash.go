package domsnapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// maxLayoutDepth bounds the tree walk so a pathologically deep document
// cannot make hashing unbounded work.
const maxLayoutDepth = 64

// transientClassPattern excludes classes toggled by interaction state from
// the layout hash (any class starting with active, selected, open, hidden or
// show), so a hover/focus/open state doesn't register as a meaningful
// layout change.
var transientClassPattern = regexp.MustCompile(`^(active|selected|open|hidden|show)`)

// LayoutHash computes a stable, "sha256:"-prefixed digest of a document's
// structural shape: tag names and stable classes, down to a bounded depth,
// excluding transient interaction classes and all text content.
func LayoutHash(root *html.Node) string {
	var b strings.Builder
	walkLayout(root, 0, &b)

	sum := sha256.Sum256([]byte(b.String()))
	return "sha256:" + hex.EncodeToString(sum[:])
}

func walkLayout(n *html.Node, depth int, b *strings.Builder) {
	if n == nil || depth > maxLayoutDepth {
		return
	}

	if n.Type == html.ElementNode {
		b.WriteByte('<')
		b.WriteString(n.Data)
		if classes := stableClasses(attr(n, "class")); classes != "" {
			b.WriteByte('.')
			b.WriteString(classes)
		}
		b.WriteByte('>')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkLayout(c, depth+1, b)
	}
}

func stableClasses(class string) string {
	fields := strings.Fields(class)
	kept := fields[:0]
	for _, f := range fields {
		if !transientClassPattern.MatchString(f) {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, ".")
}
