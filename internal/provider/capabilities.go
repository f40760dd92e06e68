package provider

// Tier names a capability bundle. A provider reports exactly one tier for
// its lifetime; tiers are not renegotiated mid-session.
type Tier string

const (
	// TierFull supports every operation this package exposes.
	TierFull Tier = "full"
	// TierReduced supports capture operations but not script injection.
	TierReduced Tier = "reduced"
	// TierScreenshotOnly is the fallback for browsers that expose the
	// debugging endpoint but reject in-page evaluation.
	TierScreenshotOnly Tier = "screenshot-only"
)

// BrowserCapabilities describes what a provider supports. Immutable; one
// instance per tier.
type BrowserCapabilities struct {
	Tier                      Tier     `json:"tier"`
	SupportsTabList           bool     `json:"supports_tab_list"`
	SupportsScreenshot        bool     `json:"supports_screenshot"`
	SupportsHTMLCapture       bool     `json:"supports_html_capture"`
	SupportsCSSCapture        bool     `json:"supports_css_capture"`
	SupportsElementExtraction bool     `json:"supports_element_extraction"`
	SupportsScriptInjection   bool     `json:"supports_script_injection"`
	SupportsScroll            bool     `json:"supports_scroll"`
	ImageFormats              []string `json:"image_formats"`
	MaxScreenshotWidth        int      `json:"max_screenshot_width,omitempty"`
	MaxScreenshotHeight       int      `json:"max_screenshot_height,omitempty"`
	Limitations               []string `json:"limitations,omitempty"`
}

// CapabilitiesFor returns the capability descriptor for a tier. Unknown
// tiers fall back to the screenshot-only descriptor.
func CapabilitiesFor(tier Tier) BrowserCapabilities {
	switch tier {
	case TierFull:
		return BrowserCapabilities{
			Tier:                      TierFull,
			SupportsTabList:           true,
			SupportsScreenshot:        true,
			SupportsHTMLCapture:       true,
			SupportsCSSCapture:        true,
			SupportsElementExtraction: true,
			SupportsScriptInjection:   true,
			SupportsScroll:            true,
			ImageFormats:              []string{"png", "jpeg", "webp"},
			MaxScreenshotWidth:        16384,
			MaxScreenshotHeight:       16384,
		}
	case TierReduced:
		return BrowserCapabilities{
			Tier:                TierReduced,
			SupportsTabList:     true,
			SupportsScreenshot:  true,
			SupportsHTMLCapture: true,
			SupportsCSSCapture:  true,
			SupportsScroll:      true,
			ImageFormats:        []string{"png", "jpeg"},
			MaxScreenshotWidth:  8192,
			MaxScreenshotHeight: 8192,
			Limitations: []string{
				"element extraction unavailable",
				"arbitrary script injection disabled",
			},
		}
	default:
		return BrowserCapabilities{
			Tier:                TierScreenshotOnly,
			SupportsTabList:     true,
			SupportsScreenshot:  true,
			ImageFormats:        []string{"png"},
			MaxScreenshotWidth:  4096,
			MaxScreenshotHeight: 4096,
			Limitations: []string{
				"in-page evaluation unavailable; screenshot and tab listing only",
			},
		}
	}
}
