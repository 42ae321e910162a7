// Package domsnapshot captures a sanitized, size-bounded representation of
// a page's DOM for analytics purposes: stable element selectors, a layout
// hash used to detect meaningful change, and a compressed, privacy-scrubbed
// serialization of the document tree.
//
// It is deliberately independent of the tracker and batching queue — it
// consumes an HTML document (as read from the observed browser tab over
// CDP) and produces pure values.
package domsnapshot
