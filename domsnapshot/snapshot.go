package domsnapshot

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/net/html"

	"github.com/omnitrack/tracker-core/config"
)

// Kind discriminates why a snapshot was captured.
type Kind string

const (
	KindInitial  Kind = "initial"
	KindMutation Kind = "mutation"
	KindPeriodic Kind = "periodic"
)

// Compression describes how the serialized DOM payload was encoded.
type Compression string

const (
	CompressionGzip    Compression = "gzip"
	CompressionDeflate Compression = "deflate"
	CompressionNone    Compression = "none"
)

// SchemaVersion is stamped onto every snapshot event.
const SchemaVersion = "1"

// placeholderDoc replaces the snapshot payload when serialization fails, so
// the outage is still observable downstream rather than silently dropping
// the event.
const placeholderDoc = "<html><body><!-- Serialization failed --></body></html>"

// Snapshot is the fully computed, ready-to-emit DOM snapshot payload.
type Snapshot struct {
	Kind            Kind
	ScreenClass     string
	LayoutHash      string
	DOM             string // base64-encoded, optionally compressed
	Compression     Compression
	OriginalBytes   int
	CompressedBytes int
	Truncated       bool
	MaskedSelectors []string
	BlockedCount    int
	SchemaVersion   string
}

// Capture sanitizes and serializes rawHTML per cfg/privacy, returning a
// Snapshot or (nil, nil) when emission is suppressed because the layout
// hash is unchanged from lastHash and kind is not initial.
func Capture(rawHTML string, kind Kind, viewportWidth int, cfg config.SnapshotConfig, privacy config.PrivacyConfig, lastHash string) (*Snapshot, error) {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return &Snapshot{
			Kind:          kind,
			ScreenClass:   ScreenClass(viewportWidth),
			DOM:           base64.StdEncoding.EncodeToString([]byte(placeholderDoc)),
			Compression:   CompressionNone,
			Truncated:     true,
			SchemaVersion: SchemaVersion,
		}, nil
	}

	layoutHash := LayoutHash(doc)
	if kind != KindInitial && layoutHash == lastHash {
		return nil, nil
	}

	meta := sanitizeTree(doc, privacy)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return &Snapshot{
			Kind:          kind,
			ScreenClass:   ScreenClass(viewportWidth),
			LayoutHash:    layoutHash,
			DOM:           base64.StdEncoding.EncodeToString([]byte(placeholderDoc)),
			Compression:   CompressionNone,
			Truncated:     true,
			SchemaVersion: SchemaVersion,
		}, nil
	}

	serialized := bluemondayPolicy().SanitizeBytes(buf.Bytes())

	maxBytes := cfg.MaxSnapshotSizeBytes
	if maxBytes <= 0 {
		maxBytes = config.DefaultMaxSnapshotBytes
	}

	truncated := false
	if len(serialized) > maxBytes {
		serialized = []byte(maxTextLength(string(serialized), maxBytes) + "\n<!-- TRUNCATED -->")
		truncated = true
	}

	originalBytes := len(serialized)
	compressed, compression, err := compress(serialized)
	if err != nil {
		return nil, fmt.Errorf("domsnapshot: compress: %w", err)
	}

	return &Snapshot{
		Kind:            kind,
		ScreenClass:     ScreenClass(viewportWidth),
		LayoutHash:      layoutHash,
		DOM:             base64.StdEncoding.EncodeToString(compressed),
		Compression:     compression,
		OriginalBytes:   originalBytes,
		CompressedBytes: len(compressed),
		Truncated:       truncated,
		MaskedSelectors: meta.MaskedSelectors,
		BlockedCount:    meta.BlockedCount,
		SchemaVersion:   SchemaVersion,
	}, nil
}

func compress(data []byte) ([]byte, Compression, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, CompressionNone, err
	}
	if err := w.Close(); err != nil {
		return nil, CompressionNone, err
	}

	if buf.Len() >= len(data) {
		return data, CompressionNone, nil
	}
	return buf.Bytes(), CompressionGzip, nil
}
