package provider

import (
	"context"
	"time"
)

// CaptureTab runs the requested sub-captures against one tab and
// aggregates them. The tab is resolved once, up front. Composition is
// all-or-nothing: any sub-capture failure aborts the whole call with a
// CaptureError of kind "complete" wrapping the original cause, and no
// partial result is returned. This is deliberately stricter than the
// selector-level tolerance inside CaptureCSS and ExtractElements.
func CaptureTab(ctx context.Context, p Provider, tabID string, req CaptureRequest) (CaptureResult, error) {
	tab, err := p.FindTab(ctx, tabID)
	if err != nil {
		return CaptureResult{}, err
	}

	result := CaptureResult{Tab: tab, CapturedAt: time.Now().UTC()}

	if req.Screenshot != nil {
		data, err := p.CaptureScreenshot(ctx, tabID, *req.Screenshot)
		if err != nil {
			return CaptureResult{}, captureErr(tabID, KindComplete, err)
		}
		result.Screenshot = data
	}
	if req.HTML != nil {
		html, err := p.CaptureHTML(ctx, tabID, *req.HTML)
		if err != nil {
			return CaptureResult{}, captureErr(tabID, KindComplete, err)
		}
		result.HTML = html
	}
	if req.CSS != nil {
		css, err := p.CaptureCSS(ctx, tabID, *req.CSS)
		if err != nil {
			return CaptureResult{}, captureErr(tabID, KindComplete, err)
		}
		result.CSS = css
	}

	return result, nil
}
