package domsnapshot_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnitrack/tracker-core/config"
	"github.com/omnitrack/tracker-core/domsnapshot"
)

func decode(t *testing.T, snap *domsnapshot.Snapshot) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(snap.DOM)
	require.NoError(t, err)

	if snap.Compression == domsnapshot.CompressionNone {
		return string(raw)
	}
	return gunzip(t, raw)
}

func TestCapture_MasksPasswordAndConfiguredSelectors(t *testing.T) {
	doc := `<html><body>
		<input type="password" value="hunter2">
		<div class="secret">card 4111111111111111</div>
	</body></html>`

	privacy := config.DefaultPrivacyConfig()
	privacy.MaskSelectors = []string{".secret"}

	snap, err := domsnapshot.Capture(doc, domsnapshot.KindInitial, 1280, config.DefaultSnapshotConfig(), privacy, "")
	require.NoError(t, err)
	require.NotNil(t, snap)

	decoded := decode(t, snap)
	assert.NotContains(t, decoded, "hunter2")
	assert.NotContains(t, decoded, "4111111111111111")
	assert.Contains(t, snap.MaskedSelectors, ".secret")
	assert.Contains(t, snap.MaskedSelectors, `input[type="password"]`)
}

func TestCapture_SuppressesMarkedSubtree(t *testing.T) {
	doc := `<html><body><div data-analytics-snapshot="off"><p>hidden text marker xyz</p></div><p>visible</p></body></html>`

	snap, err := domsnapshot.Capture(doc, domsnapshot.KindInitial, 1280, config.DefaultSnapshotConfig(), config.DefaultPrivacyConfig(), "")
	require.NoError(t, err)
	require.NotNil(t, snap)

	decoded := decode(t, snap)
	assert.NotContains(t, decoded, "hidden text marker xyz")
	assert.Contains(t, decoded, "visible")
}

func TestCapture_SkipsUnchangedNonInitialSnapshot(t *testing.T) {
	doc := `<html><body><p>stable</p></body></html>`
	cfg := config.DefaultSnapshotConfig()
	privacy := config.DefaultPrivacyConfig()

	first, err := domsnapshot.Capture(doc, domsnapshot.KindInitial, 1280, cfg, privacy, "")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := domsnapshot.Capture(doc, domsnapshot.KindMutation, 1280, cfg, privacy, first.LayoutHash)
	require.NoError(t, err)
	assert.Nil(t, second)
}

func TestCapture_EmitsOnLayoutChange(t *testing.T) {
	cfg := config.DefaultSnapshotConfig()
	privacy := config.DefaultPrivacyConfig()

	first, err := domsnapshot.Capture(`<html><body><p>a</p></body></html>`, domsnapshot.KindInitial, 1280, cfg, privacy, "")
	require.NoError(t, err)

	second, err := domsnapshot.Capture(`<html><body><div><p>a</p></div></body></html>`, domsnapshot.KindMutation, 1280, cfg, privacy, first.LayoutHash)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.NotEqual(t, first.LayoutHash, second.LayoutHash)
}

func TestScreenClass_Thresholds(t *testing.T) {
	assert.Equal(t, "mobile", domsnapshot.ScreenClass(375))
	assert.Equal(t, "tablet", domsnapshot.ScreenClass(900))
	assert.Equal(t, "desktop", domsnapshot.ScreenClass(1440))
}

func TestCapture_TruncatesOversizedDocument(t *testing.T) {
	cfg := config.DefaultSnapshotConfig()
	cfg.MaxSnapshotSizeBytes = 200
	privacy := config.DefaultPrivacyConfig()

	body := "<p>" + strings.Repeat("x", 5000) + "</p>"
	snap, err := domsnapshot.Capture("<html><body>"+body+"</body></html>", domsnapshot.KindInitial, 1280, cfg, privacy, "")
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.Truncated)

	decoded := decode(t, snap)
	assert.Contains(t, decoded, "TRUNCATED")
}
