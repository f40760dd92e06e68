package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// transport is a minimal CDP client speaking the browser-level WebSocket
// plus the HTTP metadata interface. It deliberately avoids the full
// protocol surface: only target attachment, domain enablement, script
// evaluation, and screenshot capture are exposed, because those are the
// only command groups this package uses.
type transport struct {
	httpBase string // e.g. "http://127.0.0.1:9222"

	mu   sync.Mutex
	conn net.Conn
	seq  atomic.Int64

	pending   map[int64]chan json.RawMessage
	pendingMu sync.Mutex
}

// tabEntry is one row of the HTTP /json/list response.
type tabEntry struct {
	ID         target.ID
	Type       string
	Title      string
	URL        string
	FaviconURL string
}

func newTransport(httpBase string) *transport {
	return &transport{
		httpBase: strings.TrimRight(httpBase, "/"),
		pending:  make(map[int64]chan json.RawMessage),
	}
}

// connect dials the browser-level WebSocket endpoint advertised by
// /json/version.
func (t *transport) connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return nil
	}

	wsURL, err := t.browserWSURL(ctx)
	if err != nil {
		return fmt.Errorf("transport: browser ws url: %w", err)
	}

	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return fmt.Errorf("transport: dial: %w", err)
	}

	t.conn = conn
	t.pending = make(map[int64]chan json.RawMessage)
	go t.readLoop()
	return nil
}

func (t *transport) close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		t.conn.Close()
		t.conn = nil
	}
}

// readLoop dispatches incoming responses to their waiters. Unsolicited
// events are dropped; this client never subscribes to any.
func (t *transport) readLoop() {
	for {
		t.mu.Lock()
		conn := t.conn
		t.mu.Unlock()
		if conn == nil {
			return
		}

		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			t.closeAllPending()
			return
		}

		var msg struct {
			ID int64 `json:"id"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.ID == 0 {
			continue
		}
		t.pendingMu.Lock()
		ch, ok := t.pending[msg.ID]
		if ok {
			delete(t.pending, msg.ID)
		}
		t.pendingMu.Unlock()
		if ok {
			ch <- json.RawMessage(data)
		}
	}
}

func (t *transport) closeAllPending() {
	t.pendingMu.Lock()
	defer t.pendingMu.Unlock()
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}

func (t *transport) deletePending(id int64) {
	t.pendingMu.Lock()
	delete(t.pending, id)
	t.pendingMu.Unlock()
}

// send issues a command addressed to the browser connection itself or, when
// sessionID is non-empty, to a flattened tab session. It waits for the
// response keyed by the command id and returns the inner result payload.
func (t *transport) send(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return nil, fmt.Errorf("transport: not connected")
	}

	id := t.seq.Add(1)
	req := struct {
		ID        int64  `json:"id"`
		Method    string `json:"method"`
		SessionID string `json:"sessionId,omitempty"`
		Params    any    `json:"params,omitempty"`
	}{ID: id, Method: method, SessionID: sessionID, Params: params}

	ch := make(chan json.RawMessage, 1)
	t.pendingMu.Lock()
	t.pending[id] = ch
	t.pendingMu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		t.deletePending(id)
		return nil, fmt.Errorf("transport: marshal: %w", err)
	}

	t.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	t.mu.Unlock()
	if err != nil {
		t.deletePending(id)
		return nil, fmt.Errorf("transport: send: %w", err)
	}

	var raw json.RawMessage
	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("transport: connection closed")
		}
		raw = resp
	case <-ctx.Done():
		t.deletePending(id)
		return nil, ctx.Err()
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return raw, nil
	}
	if envelope.Error != nil {
		return nil, fmt.Errorf("transport: %s: %s", method, envelope.Error.Message)
	}
	return envelope.Result, nil
}

// attachToTarget attaches a flat session to the given tab target.
func (t *transport) attachToTarget(ctx context.Context, targetID string) (string, error) {
	params := struct {
		TargetID string `json:"targetId"`
		Flatten  bool   `json:"flatten"`
	}{TargetID: targetID, Flatten: true}

	raw, err := t.send(ctx, "", "Target.attachToTarget", params)
	if err != nil {
		return "", err
	}

	var resp struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("transport: unmarshal attach: %w", err)
	}
	if resp.SessionID == "" {
		return "", fmt.Errorf("transport: attach returned no session")
	}
	return resp.SessionID, nil
}

// windowForTarget resolves the browser window owning a target. Only works
// on the browser-level connection.
func (t *transport) windowForTarget(ctx context.Context, targetID string) (int, error) {
	params := struct {
		TargetID string `json:"targetId"`
	}{TargetID: targetID}

	raw, err := t.send(ctx, "", "Browser.getWindowForTarget", params)
	if err != nil {
		return 0, err
	}

	var resp struct {
		WindowID int `json:"windowId"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("transport: unmarshal window: %w", err)
	}
	return resp.WindowID, nil
}

// detachFromTarget detaches a session without closing the tab.
func (t *transport) detachFromTarget(ctx context.Context, sessionID string) error {
	params := struct {
		SessionID string `json:"sessionId"`
	}{SessionID: sessionID}

	_, err := t.send(ctx, "", "Target.detachFromTarget", params)
	return err
}

// enableDomain sends the one-time <Domain>.enable handshake on the root
// connection (empty sessionID) or a tab session.
func (t *transport) enableDomain(ctx context.Context, sessionID, domain string) error {
	_, err := t.send(ctx, sessionID, domain+".enable", nil)
	return err
}

// evaluate runs JS on the given session and returns the string result.
// An in-page exception is reported as an error prefixed with "eval
// exception" so callers can tell it from transport failures.
func (t *transport) evaluate(ctx context.Context, sessionID, js string) (string, error) {
	params := struct {
		Expression    string `json:"expression"`
		ReturnByValue bool   `json:"returnByValue"`
		AwaitPromise  bool   `json:"awaitPromise"`
	}{Expression: js, ReturnByValue: true, AwaitPromise: true}

	raw, err := t.send(ctx, sessionID, "Runtime.evaluate", params)
	if err != nil {
		return "", err
	}

	var resp struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text      string `json:"text"`
			Exception *struct {
				Description string `json:"description"`
			} `json:"exception"`
		} `json:"exceptionDetails"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("transport: unmarshal eval: %w", err)
	}
	if resp.ExceptionDetails != nil {
		detail := resp.ExceptionDetails.Text
		if resp.ExceptionDetails.Exception != nil && resp.ExceptionDetails.Exception.Description != "" {
			detail = resp.ExceptionDetails.Exception.Description
		}
		return "", fmt.Errorf("eval exception: %s", detail)
	}

	// String results come back as JSON-encoded strings.
	var s string
	if err := json.Unmarshal(resp.Result.Value, &s); err != nil {
		return string(resp.Result.Value), nil
	}
	return s, nil
}

// screenshotParams mirrors Page.captureScreenshot.
type screenshotParams struct {
	Format                string   `json:"format"`
	Quality               int      `json:"quality,omitempty"`
	Clip                  *cdpClip `json:"clip,omitempty"`
	CaptureBeyondViewport bool     `json:"captureBeyondViewport,omitempty"`
	FromSurface           bool     `json:"fromSurface"`
}

type cdpClip struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// captureScreenshot captures the page on a session and returns the raw
// base64-encoded image data.
func (t *transport) captureScreenshot(ctx context.Context, sessionID string, params screenshotParams) (string, error) {
	params.FromSurface = true

	raw, err := t.send(ctx, sessionID, "Page.captureScreenshot", params)
	if err != nil {
		return "", fmt.Errorf("transport: captureScreenshot: %w", err)
	}

	var resp struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("transport: unmarshal screenshot: %w", err)
	}
	return resp.Data, nil
}

// listTargets fetches open targets via the HTTP /json/list endpoint.
func (t *transport) listTargets(ctx context.Context) ([]tabEntry, error) {
	body, err := t.httpGet(ctx, "/json/list")
	if err != nil {
		return nil, err
	}

	var entries []struct {
		ID         string `json:"id"`
		Type       string `json:"type"`
		Title      string `json:"title"`
		URL        string `json:"url"`
		FaviconURL string `json:"faviconUrl"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("transport: unmarshal /json/list: %w", err)
	}

	out := make([]tabEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, tabEntry{
			ID:         target.ID(e.ID),
			Type:       e.Type,
			Title:      e.Title,
			URL:        e.URL,
			FaviconURL: e.FaviconURL,
		})
	}
	return out, nil
}

// activateTarget raises the tab via the HTTP /json/activate endpoint. It
// brings the tab to the foreground without navigating it.
func (t *transport) activateTarget(ctx context.Context, targetID string) error {
	_, err := t.httpGet(ctx, "/json/activate/"+url.PathEscape(targetID))
	return err
}

func (t *transport) httpGet(ctx context.Context, path string) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, t.httpBase+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transport: %s: HTTP %d", path, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// browserWSURL fetches the WebSocket debugger URL from /json/version.
func (t *transport) browserWSURL(ctx context.Context) (string, error) {
	verCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(verCtx, http.MethodGet, t.httpBase+"/json/version", nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transport: /json/version: HTTP %d", resp.StatusCode)
	}

	var info struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", err
	}
	if info.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("empty webSocketDebuggerUrl")
	}
	return info.WebSocketDebuggerURL, nil
}
