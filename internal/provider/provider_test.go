package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// testProvider builds a provider whose connection believes it is connected
// and whose HTTP metadata interface is served by the given handler. No
// WebSocket is dialed; tests using it stop before any session command.
func testProvider(t *testing.T, handler http.HandlerFunc) *ChromiumProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewChromiumProvider(Options{Endpoint: srv.URL, Logger: testLogger()})
	p.conn.state = stateConnected
	p.conn.tr = newTransport(srv.URL)
	return p
}

func disconnectedProvider() *ChromiumProvider {
	return NewChromiumProvider(Options{Endpoint: "http://127.0.0.1:1", Logger: testLogger()})
}

func serveTabList(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/json/list" {
		w.Write([]byte(tabListPayload))
		return
	}
	http.NotFound(w, r)
}

func TestOperationsBeforeConnectFailWithConnectionError(t *testing.T) {
	p := disconnectedProvider()
	ctx := context.Background()

	var cerr *ConnectionError
	if _, err := p.ListTabs(ctx); !errors.As(err, &cerr) {
		t.Fatalf("ListTabs before connect: got %T (%v)", err, err)
	}
	if _, err := p.CaptureHTML(ctx, "A", HTMLCaptureOptions{IncludeScripts: true, IncludeStyles: true}); !errors.As(err, &cerr) {
		t.Fatalf("CaptureHTML before connect: got %T (%v)", err, err)
	}
	if err := p.SetActiveTab(ctx, "A"); !errors.As(err, &cerr) {
		t.Fatalf("SetActiveTab before connect: got %T (%v)", err, err)
	}
}

func TestCaptureScreenshotUnknownTab(t *testing.T) {
	p := testProvider(t, serveTabList)

	_, err := p.CaptureScreenshot(context.Background(), "C", CaptureOptions{})
	var notFound *TabNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *TabNotFoundError, got %T (%v)", err, err)
	}
	if notFound.TabID != "C" {
		t.Fatalf("TabID = %q, want C", notFound.TabID)
	}
}

func TestCaptureScreenshotRejectsUnsupportedFormat(t *testing.T) {
	p := NewChromiumProvider(Options{
		Endpoint: "http://127.0.0.1:1",
		Tier:     TierScreenshotOnly,
		Logger:   testLogger(),
	})

	_, err := p.CaptureScreenshot(context.Background(), "A", CaptureOptions{Format: "webp"})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
}

func TestCaptureCSSValidatesBeforeAnyIO(t *testing.T) {
	// The endpoint is unreachable; a ValidationError proves the call never
	// touched the network.
	p := disconnectedProvider()

	_, err := p.CaptureCSS(context.Background(), "A", CSSCaptureOptions{})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError for empty selectors, got %T (%v)", err, err)
	}

	_, err = p.CaptureCSS(context.Background(), "A", CSSCaptureOptions{Selectors: []string{"a{}", "`"}})
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError for all-sanitized-out selectors, got %T (%v)", err, err)
	}
}

func TestExtractElementsValidatesSelectors(t *testing.T) {
	p := disconnectedProvider()

	_, err := p.ExtractElements(context.Background(), "A", []string{"{bad}", ""})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
}

func TestScrollPageValidation(t *testing.T) {
	p := disconnectedProvider()
	ctx := context.Background()

	var verr *ValidationError
	if err := p.ScrollPage(ctx, "A", ScrollOptions{ScrollType: ScrollElement}); !errors.As(err, &verr) {
		t.Fatalf("element scroll without selector: got %T (%v)", err, err)
	}
	if err := p.ScrollPage(ctx, "A", ScrollOptions{ScrollType: "sideways"}); !errors.As(err, &verr) {
		t.Fatalf("unknown scroll type: got %T (%v)", err, err)
	}
	if err := p.ScrollPage(ctx, "A", ScrollOptions{ScrollType: ScrollElement, Selector: "a{}"}); !errors.As(err, &verr) {
		t.Fatalf("invalid element selector: got %T (%v)", err, err)
	}
}

func TestSetActiveTabValidatesExistence(t *testing.T) {
	p := testProvider(t, serveTabList)

	err := p.SetActiveTab(context.Background(), "gone")
	var notFound *TabNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *TabNotFoundError, got %T (%v)", err, err)
	}
}

func TestSetActiveTabIssuesActivation(t *testing.T) {
	var activated string
	p := testProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/json/list":
			w.Write([]byte(tabListPayload))
		case r.URL.Path == "/json/activate/A":
			activated = "A"
			w.Write([]byte("Target activated"))
		default:
			http.NotFound(w, r)
		}
	})

	if err := p.SetActiveTab(context.Background(), "A"); err != nil {
		t.Fatalf("SetActiveTab() = %v", err)
	}
	if activated != "A" {
		t.Fatal("activation request never reached the endpoint")
	}
}

func TestCapabilitiesNeedNoConnection(t *testing.T) {
	p := disconnectedProvider()
	caps := p.Capabilities()
	if !caps.SupportsScreenshot {
		t.Fatalf("default tier should be full: %+v", caps)
	}
}

func TestCloseIdempotent(t *testing.T) {
	p := disconnectedProvider()
	if err := p.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
}
