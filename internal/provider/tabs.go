package provider

import (
	"context"
	"strconv"
)

// tabRegistry resolves tab identifiers against the live tab list. It is
// the one place tab existence is checked; it holds no state of its own so
// every lookup reflects the browser as it is right now.
type tabRegistry struct {
	conn *Connection
}

// listTabs queries the live tab list, filters to page-type targets
// (background and service targets are excluded), and marks the first
// result active. The debugging protocol's listing endpoint carries no
// focus signal, so "first tab is active" is a documented approximation,
// not a real focus query.
func (r *tabRegistry) listTabs(ctx context.Context) ([]TabInfo, error) {
	tr, err := r.conn.transportHandle()
	if err != nil {
		return nil, err
	}

	entries, err := tr.listTargets(ctx)
	if err != nil {
		return nil, connErr(r.conn.browser, err)
	}

	tabs := make([]TabInfo, 0, len(entries))
	for _, e := range entries {
		if e.Type != "page" {
			continue
		}
		tabs = append(tabs, TabInfo{
			ID:         string(e.ID),
			URL:        e.URL,
			Title:      e.Title,
			FaviconURL: e.FaviconURL,
		})
	}
	if len(tabs) > 0 {
		tabs[0].Active = true
	}

	// The listing endpoint carries no window information; resolving the
	// owning window takes one protocol command per tab on the browser
	// connection. Best-effort: a tab whose window cannot be resolved is
	// still listed, just without a window identifier.
	for i := range tabs {
		winCtx, cancel := context.WithTimeout(ctx, r.conn.cmdTimeout)
		winID, err := tr.windowForTarget(winCtx, tabs[i].ID)
		cancel()
		if err != nil {
			continue
		}
		tabs[i].WindowID = strconv.Itoa(winID)
	}
	return tabs, nil
}

// findTab resolves a tab identifier against a fresh listing snapshot.
func (r *tabRegistry) findTab(ctx context.Context, tabID string) (TabInfo, error) {
	tabs, err := r.listTabs(ctx)
	if err != nil {
		return TabInfo{}, err
	}
	for _, tab := range tabs {
		if tab.ID == tabID {
			return tab, nil
		}
	}
	return TabInfo{}, &TabNotFoundError{TabID: tabID}
}
