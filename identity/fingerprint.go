package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
)

// Signals is the set of browser-tab properties a CDP-attached capture agent
// can read from the remote target (via Runtime.evaluate / Network headers)
// to derive a stable device fingerprint. It plays the role the original
// SDK filled by reading navigator and screen properties directly in-page.
type Signals struct {
	UserAgent      string
	AcceptLanguage string
	Platform       string
	ScreenWidth    int
	ScreenHeight   int
	ColorDepth     int
	Timezone       string
}

// FingerprintOption customizes which signals contribute to the fingerprint.
type FingerprintOption func(*fingerprintOptions)

type fingerprintOptions struct {
	includeUserAgent bool
	includeLanguage  bool
	includeScreen    bool
	includeTimezone  bool
}

func defaultFingerprintOptions() *fingerprintOptions {
	return &fingerprintOptions{
		includeUserAgent: true,
		includeLanguage:  true,
		includeScreen:    true,
		includeTimezone:  true,
	}
}

// WithoutScreen excludes screen metrics, useful when a host resizes its
// viewport between captures and doesn't want that to change the fingerprint.
func WithoutScreen() FingerprintOption {
	return func(o *fingerprintOptions) { o.includeScreen = false }
}

// WithoutTimezone excludes the timezone signal.
func WithoutTimezone() FingerprintOption {
	return func(o *fingerprintOptions) { o.includeTimezone = false }
}

// Fingerprint derives a stable "v1:<hash>" device fingerprint from the given
// browser-tab signals. Identical signals always produce the identical
// fingerprint, regardless of field order.
func Fingerprint(s Signals, opts ...FingerprintOption) string {
	o := defaultFingerprintOptions()
	for _, opt := range opts {
		opt(o)
	}

	var components []string
	if o.includeUserAgent {
		components = append(components, s.UserAgent, s.Platform)
	}
	if o.includeLanguage {
		components = append(components, s.AcceptLanguage)
	}
	if o.includeScreen {
		components = append(components,
			strconv.Itoa(s.ScreenWidth),
			strconv.Itoa(s.ScreenHeight),
			strconv.Itoa(s.ColorDepth),
		)
	}
	if o.includeTimezone {
		components = append(components, s.Timezone)
	}

	filtered := make([]string, 0, len(components))
	for _, c := range components {
		if c != "" && c != "0" {
			filtered = append(filtered, c)
		}
	}
	sort.Strings(filtered)

	hash := sha256.Sum256([]byte(strings.Join(filtered, "|")))
	return "v1:" + hex.EncodeToString(hash[:16])
}
