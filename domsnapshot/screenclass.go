package domsnapshot

// Screen class thresholds, in CSS pixels.
const (
	mobileMaxWidth = 768
	tabletMaxWidth = 1024
)

// ScreenClass classifies a viewport width into mobile, tablet, or desktop.
func ScreenClass(viewportWidth int) string {
	switch {
	case viewportWidth <= mobileMaxWidth:
		return "mobile"
	case viewportWidth <= tabletMaxWidth:
		return "tablet"
	default:
		return "desktop"
	}
}
