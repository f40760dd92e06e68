package provider

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DefaultCommandTimeout bounds every network-bound operation after the
// connection is up. The operation is abandoned when the timer fires; this
// package never retries on its own.
const DefaultCommandTimeout = 30 * time.Second

// Provider is the public contract for inspecting and manipulating pages in
// a running browser. All operations except Capabilities require Connect to
// have succeeded; calling them earlier fails with a ConnectionError.
type Provider interface {
	Capabilities() BrowserCapabilities
	Connect(ctx context.Context) error
	Connected() bool
	Close() error

	ListTabs(ctx context.Context) ([]TabInfo, error)
	FindTab(ctx context.Context, tabID string) (TabInfo, error)
	CaptureScreenshot(ctx context.Context, tabID string, opts CaptureOptions) (string, error)
	CaptureHTML(ctx context.Context, tabID string, opts HTMLCaptureOptions) (string, error)
	CaptureCSS(ctx context.Context, tabID string, opts CSSCaptureOptions) (string, error)
	ExtractElements(ctx context.Context, tabID string, selectors []string) ([]ElementInfo, error)
	SetActiveTab(ctx context.Context, tabID string) error
	ScrollPage(ctx context.Context, tabID string, opts ScrollOptions) error
}

// Options configures a ChromiumProvider.
type Options struct {
	// Endpoint is the debugging endpoint base URL, e.g. "http://127.0.0.1:9222".
	Endpoint string
	// Browser identifies the target browser in errors and logs.
	Browser string
	// Tier selects the reported capability bundle. Defaults to TierFull.
	Tier Tier
	// ProbeTimeout bounds the availability probe. Defaults to DefaultProbeTimeout.
	ProbeTimeout time.Duration
	// CommandTimeout bounds each protocol command. Defaults to DefaultCommandTimeout.
	CommandTimeout time.Duration
	// Logger receives structured diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// ChromiumProvider implements Provider against a Chromium-family remote
// debugging endpoint. One long-lived connection; per-operation tab
// sessions, opened and unconditionally closed around each call.
type ChromiumProvider struct {
	caps BrowserCapabilities
	conn *Connection
	tabs tabRegistry
	log  *slog.Logger
}

// NewChromiumProvider builds a provider. No I/O happens until Connect.
func NewChromiumProvider(opts Options) *ChromiumProvider {
	if opts.Browser == "" {
		opts.Browser = "chromium"
	}
	if opts.Tier == "" {
		opts.Tier = TierFull
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	conn := newConnection(opts.Endpoint, opts.Browser, opts.ProbeTimeout, opts.CommandTimeout, opts.Logger)
	return &ChromiumProvider{
		caps: CapabilitiesFor(opts.Tier),
		conn: conn,
		tabs: tabRegistry{conn: conn},
		log:  opts.Logger,
	}
}

// Capabilities returns the static capability descriptor. No I/O.
func (p *ChromiumProvider) Capabilities() BrowserCapabilities { return p.caps }

// Connect brings up the root connection. Idempotent.
func (p *ChromiumProvider) Connect(ctx context.Context) error {
	return p.conn.Connect(ctx)
}

// Connected reports whether the root connection is up.
func (p *ChromiumProvider) Connected() bool {
	return p.conn.Connected()
}

// Close tears down the root connection. Idempotent, safe during shutdown
// even with no operation in flight, and never fails from the caller's
// perspective.
func (p *ChromiumProvider) Close() error {
	p.conn.Disconnect()
	return nil
}

// ListTabs returns a fresh tab listing snapshot.
func (p *ChromiumProvider) ListTabs(ctx context.Context) ([]TabInfo, error) {
	return p.tabs.listTabs(ctx)
}

// FindTab resolves a tab identifier against a fresh listing.
func (p *ChromiumProvider) FindTab(ctx context.Context, tabID string) (TabInfo, error) {
	return p.tabs.findTab(ctx, tabID)
}

// CaptureScreenshot captures the tab as an encoded image and returns the
// base64 payload.
func (p *ChromiumProvider) CaptureScreenshot(ctx context.Context, tabID string, opts CaptureOptions) (string, error) {
	format := opts.Format
	if format == "" {
		format = "png"
	}
	supported := false
	for _, f := range p.caps.ImageFormats {
		if f == format {
			supported = true
			break
		}
	}
	if !supported {
		return "", validationErr("unsupported image format: %s", format)
	}

	if _, err := p.tabs.findTab(ctx, tabID); err != nil {
		return "", err
	}

	session, err := p.conn.OpenTabSession(ctx, tabID)
	if err != nil {
		return "", err
	}
	defer p.conn.CloseTabSession(session)

	params := screenshotParams{
		Format:                format,
		CaptureBeyondViewport: opts.FullPage,
	}
	// Quality zero means "encoder default" and is never sent on the wire.
	if format != "png" && opts.Quality > 0 {
		params.Quality = opts.Quality
	}
	if opts.Clip != nil {
		scale := opts.DevicePixelRatio
		if scale <= 0 {
			scale = 1
		}
		params.Clip = &cdpClip{
			X:      opts.Clip.X,
			Y:      opts.Clip.Y,
			Width:  opts.Clip.Width,
			Height: opts.Clip.Height,
			Scale:  scale,
		}
	}

	cmdCtx, cancel := p.opContext(ctx)
	defer cancel()
	data, err := session.tr.captureScreenshot(cmdCtx, session.sessionID, params)
	if err != nil {
		return "", captureErr(tabID, KindScreenshot, err)
	}
	return data, nil
}

// CaptureHTML serializes the tab's document, or the outerHTML of selector
// matches when selectors are given.
func (p *ChromiumProvider) CaptureHTML(ctx context.Context, tabID string, opts HTMLCaptureOptions) (string, error) {
	selectors := sanitizeSelectors(opts.Selectors)
	if len(opts.Selectors) > 0 && len(selectors) == 0 {
		return "", validationErr("no valid selectors after sanitization")
	}

	var out struct {
		HTML string `json:"html"`
	}
	if err := p.evalOnTab(ctx, tabID, KindHTML, jsCaptureHTML(opts, selectors), &out); err != nil {
		return "", err
	}

	if opts.Prettify {
		return prettifyHTML(out.HTML), nil
	}
	return out.HTML, nil
}

// CaptureCSS collects computed styles for the given selectors. Requires at
// least one selector; selector-level misses and failures are reported as
// inline comments in the result, never as call failures.
func (p *ChromiumProvider) CaptureCSS(ctx context.Context, tabID string, opts CSSCaptureOptions) (string, error) {
	if len(opts.Selectors) == 0 {
		return "", validationErr("css capture requires at least one selector")
	}
	selectors := sanitizeSelectors(opts.Selectors)
	if len(selectors) == 0 {
		return "", validationErr("no valid selectors after sanitization")
	}

	var out struct {
		CSS string `json:"css"`
	}
	if err := p.evalOnTab(ctx, tabID, KindCSS, jsCaptureCSS(opts, selectors), &out); err != nil {
		return "", err
	}
	return out.CSS, nil
}

// extractedElement is the wire shape of one introspection entry; entries
// carrying an error marker are logged and filtered out.
type extractedElement struct {
	ElementInfo
	Error string `json:"error,omitempty"`
}

// ExtractElements inspects up to 10 matches per selector and returns the
// successfully extracted entries. The call itself only fails when the
// underlying evaluation fails.
func (p *ChromiumProvider) ExtractElements(ctx context.Context, tabID string, selectors []string) ([]ElementInfo, error) {
	valid := sanitizeSelectors(selectors)
	if len(valid) == 0 {
		return nil, validationErr("no valid selectors after sanitization")
	}

	var out struct {
		Elements []extractedElement `json:"elements"`
	}
	if err := p.evalOnTab(ctx, tabID, KindElements, jsExtractElements(valid), &out); err != nil {
		return nil, err
	}

	elements := make([]ElementInfo, 0, len(out.Elements))
	for _, e := range out.Elements {
		if e.Error != "" {
			p.log.Debug("element extraction entry skipped", "tab_id", tabID, "selector", e.Selector, "error", e.Error)
			continue
		}
		elements = append(elements, e.ElementInfo)
	}
	return elements, nil
}

// SetActiveTab raises the tab. It never navigates or changes tab content;
// activation is the only mutation here and it takes no URL.
func (p *ChromiumProvider) SetActiveTab(ctx context.Context, tabID string) error {
	if _, err := p.tabs.findTab(ctx, tabID); err != nil {
		return err
	}

	tr, err := p.conn.transportHandle()
	if err != nil {
		return err
	}

	cmdCtx, cancel := p.opContext(ctx)
	defer cancel()
	if err := tr.activateTarget(cmdCtx, tabID); err != nil {
		return connErr(p.conn.browser, err)
	}
	p.log.Info("tab activated", "tab_id", tabID)
	return nil
}

// ScrollPage executes a scroll on the tab.
func (p *ChromiumProvider) ScrollPage(ctx context.Context, tabID string, opts ScrollOptions) error {
	switch opts.ScrollType {
	case ScrollPixels, ScrollCoordinates, ScrollViewport, ScrollTop, ScrollBottom:
	case ScrollElement:
		if strings.TrimSpace(opts.Selector) == "" {
			return validationErr("element scroll requires a selector")
		}
		sanitized := sanitizeSelectors([]string{opts.Selector})
		if len(sanitized) == 0 {
			return validationErr("invalid selector: %s", opts.Selector)
		}
		opts.Selector = sanitized[0]
	default:
		return validationErr("unknown scroll type: %q", opts.ScrollType)
	}

	return p.evalOnTab(ctx, tabID, KindScroll, jsScroll(opts), nil)
}

// evalOnTab validates the tab, opens a session around the evaluation, and
// parses the structured envelope. Envelope failures become CaptureErrors of
// the given kind; transport failures stay ConnectionErrors.
func (p *ChromiumProvider) evalOnTab(ctx context.Context, tabID, kind, js string, out any) error {
	if _, err := p.tabs.findTab(ctx, tabID); err != nil {
		return err
	}

	session, err := p.conn.OpenTabSession(ctx, tabID)
	if err != nil {
		return err
	}
	defer p.conn.CloseTabSession(session)

	evalCtx, cancel := p.opContext(ctx)
	defer cancel()
	raw, err := session.tr.evaluate(evalCtx, session.sessionID, js)
	if err != nil {
		if isEvalException(err) {
			return captureErr(tabID, kind, err)
		}
		return connErr(p.conn.browser, err)
	}

	if err := parseEnvelope(raw, out); err != nil {
		return captureErr(tabID, kind, err)
	}
	return nil
}

func (p *ChromiumProvider) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.conn.cmdTimeout)
}

func isEvalException(err error) bool {
	return err != nil && strings.Contains(err.Error(), "eval exception")
}
