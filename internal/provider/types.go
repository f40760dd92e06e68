package provider

import "time"

// TabInfo describes one page tab at the moment it was listed. Instances are
// produced fresh on every listing call and never cached, since pages
// navigate and close independently of this process.
type TabInfo struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	Active     bool   `json:"active"`
	FaviconURL string `json:"favicon_url,omitempty"`
	WindowID   string `json:"window_id,omitempty"`
}

// ClipRect bounds a screenshot to a region of the page.
type ClipRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// CaptureOptions configures a screenshot capture. Quality applies to lossy
// formats only and ranges 1-100; the zero value means the browser encoder's
// default, not quality zero.
type CaptureOptions struct {
	Format           string    `json:"format,omitempty"`  // png, jpeg, webp
	Quality          int       `json:"quality,omitempty"` // 1-100 lossy formats; 0 = encoder default
	FullPage         bool      `json:"full_page,omitempty"`
	Clip             *ClipRect `json:"clip,omitempty"`
	DevicePixelRatio float64   `json:"device_pixel_ratio,omitempty"`
}

// HTMLCaptureOptions configures an HTML capture. The zero value strips
// scripts and styles; set both include flags to serialize the live document
// verbatim.
type HTMLCaptureOptions struct {
	IncludeStyles  bool     `json:"include_styles"`
	IncludeScripts bool     `json:"include_scripts"`
	Prettify       bool     `json:"prettify,omitempty"`
	Selectors      []string `json:"selectors,omitempty"`
}

// CSSCaptureOptions configures a computed-style capture. At least one
// selector is required.
type CSSCaptureOptions struct {
	Selectors        []string `json:"selectors"`
	IncludeComputed  bool     `json:"include_computed,omitempty"`
	IncludeInherited bool     `json:"include_inherited,omitempty"`
	Prettify         bool     `json:"prettify,omitempty"`
}

// Scroll types accepted by ScrollOptions.
const (
	ScrollPixels      = "pixels"
	ScrollCoordinates = "coordinates"
	ScrollViewport    = "viewport"
	ScrollElement     = "element"
	ScrollTop         = "top"
	ScrollBottom      = "bottom"
)

// ScrollOptions configures a scroll operation.
type ScrollOptions struct {
	ScrollType string  `json:"scroll_type"`
	X          float64 `json:"x,omitempty"`
	Y          float64 `json:"y,omitempty"`
	Selector   string  `json:"selector,omitempty"`
	Smooth     bool    `json:"smooth,omitempty"`
}

// BoundingBox is an element's page-relative box in integer pixels.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ElementInfo is the structured introspection result for one DOM element.
type ElementInfo struct {
	Selector   string            `json:"selector"`
	TagName    string            `json:"tag_name"`
	Text       string            `json:"text"`
	Styles     map[string]string `json:"styles"`
	Attributes map[string]string `json:"attributes"`
	Box        BoundingBox       `json:"box"`
	Visible    bool              `json:"visible"`
	ScrollX    int               `json:"scroll_x"`
	ScrollY    int               `json:"scroll_y"`
}

// CaptureRequest selects the sub-captures of a compound tab capture.
type CaptureRequest struct {
	Screenshot *CaptureOptions     `json:"screenshot,omitempty"`
	HTML       *HTMLCaptureOptions `json:"html,omitempty"`
	CSS        *CSSCaptureOptions  `json:"css,omitempty"`
}

// CaptureResult aggregates the outputs of a compound tab capture. Any
// sub-capture that was not requested is absent.
type CaptureResult struct {
	Tab        TabInfo   `json:"tab"`
	Screenshot string    `json:"screenshot,omitempty"` // base64
	HTML       string    `json:"html,omitempty"`
	CSS        string    `json:"css,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}
