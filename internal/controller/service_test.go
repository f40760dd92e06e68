package controller

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/pagelens/pagelens/internal/artifact"
	"github.com/pagelens/pagelens/internal/provider"
)

// stubProvider scripts provider outcomes for service tests.
type stubProvider struct {
	connected     bool
	tab           provider.TabInfo
	findErr       error
	screenshot    string
	screenshotErr error
	html          string
	htmlErr       error
	css           string
	cssErr        error
	scrollErr     error
	activateErr   error
	activated     []string
}

func (f *stubProvider) Capabilities() provider.BrowserCapabilities {
	return provider.CapabilitiesFor(provider.TierFull)
}
func (f *stubProvider) Connect(ctx context.Context) error { return nil }
func (f *stubProvider) Connected() bool                   { return f.connected }
func (f *stubProvider) Close() error                      { return nil }

func (f *stubProvider) ListTabs(ctx context.Context) ([]provider.TabInfo, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return []provider.TabInfo{f.tab}, nil
}

func (f *stubProvider) FindTab(ctx context.Context, tabID string) (provider.TabInfo, error) {
	if f.findErr != nil {
		return provider.TabInfo{}, f.findErr
	}
	return f.tab, nil
}

func (f *stubProvider) CaptureScreenshot(ctx context.Context, tabID string, opts provider.CaptureOptions) (string, error) {
	return f.screenshot, f.screenshotErr
}

func (f *stubProvider) CaptureHTML(ctx context.Context, tabID string, opts provider.HTMLCaptureOptions) (string, error) {
	return f.html, f.htmlErr
}

func (f *stubProvider) CaptureCSS(ctx context.Context, tabID string, opts provider.CSSCaptureOptions) (string, error) {
	return f.css, f.cssErr
}

func (f *stubProvider) ExtractElements(ctx context.Context, tabID string, selectors []string) ([]provider.ElementInfo, error) {
	return nil, nil
}

func (f *stubProvider) SetActiveTab(ctx context.Context, tabID string) error {
	if f.activateErr != nil {
		return f.activateErr
	}
	f.activated = append(f.activated, tabID)
	return nil
}

func (f *stubProvider) ScrollPage(ctx context.Context, tabID string, opts provider.ScrollOptions) error {
	return f.scrollErr
}

func newTestService(t *testing.T, prov provider.Provider) *Service {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return NewService(prov, store)
}

func TestRequireNonEmpty(t *testing.T) {
	s := &Service{}
	if err := s.requireNonEmpty("tab-1", "tab_id"); err != nil {
		t.Fatalf("requireNonEmpty() = %v; want nil", err)
	}

	if err := s.requireNonEmpty("   ", "tab_id"); err == nil {
		t.Fatalf("requireNonEmpty() = nil; want validation error")
	} else if got, ok := err.(*provider.ValidationError); !ok {
		t.Fatalf("requireNonEmpty() = %T; want *provider.ValidationError", err)
	} else if got.Message != "tab_id is required" {
		t.Fatalf("requireNonEmpty() message = %q; want %q", got.Message, "tab_id is required")
	}
}

func TestGetTab_RequiresTabID(t *testing.T) {
	s := &Service{}
	_, err := s.GetTab(context.Background(), "   ")
	if err == nil {
		t.Fatalf("GetTab() = nil; want validation error")
	}
	var got *provider.ValidationError
	if !errors.As(err, &got) {
		t.Fatalf("GetTab() error type = %T; want *provider.ValidationError", err)
	}
}

func TestScreenshot_PersistsDecodedArtifact(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	prov := &stubProvider{
		tab:        provider.TabInfo{ID: "tab-1", URL: "https://example.com", Title: "Example"},
		screenshot: base64.StdEncoding.EncodeToString(payload),
	}
	s := newTestService(t, prov)

	meta, err := s.Screenshot(context.Background(), "tab-1", provider.CaptureOptions{})
	if err != nil {
		t.Fatalf("Screenshot() error = %v", err)
	}
	if meta.Format != "png" {
		t.Fatalf("Screenshot() format = %q; want %q", meta.Format, "png")
	}
	if meta.Kind != "screenshot" {
		t.Fatalf("Screenshot() kind = %q; want %q", meta.Kind, "screenshot")
	}
	if meta.SizeBytes != len(payload) {
		t.Fatalf("Screenshot() size = %d; want %d", meta.SizeBytes, len(payload))
	}
	if meta.URL != "https://example.com" {
		t.Fatalf("Screenshot() url = %q; want tab url", meta.URL)
	}

	data, _, err := s.ReadArtifactPayload(context.Background(), meta.ID)
	if err != nil {
		t.Fatalf("ReadArtifactPayload() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("ReadArtifactPayload() = %v; want decoded screenshot bytes", data)
	}
}

func TestScreenshot_UnknownTabPassesThrough(t *testing.T) {
	prov := &stubProvider{findErr: &provider.TabNotFoundError{TabID: "ghost"}}
	s := newTestService(t, prov)

	_, err := s.Screenshot(context.Background(), "ghost", provider.CaptureOptions{})
	var notFound *provider.TabNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Screenshot() error = %v; want *provider.TabNotFoundError", err)
	}
}

func TestHTML_PersistOptional(t *testing.T) {
	prov := &stubProvider{
		tab:  provider.TabInfo{ID: "tab-1", URL: "https://example.com", Title: "Example"},
		html: "<html></html>",
	}
	s := newTestService(t, prov)

	got, err := s.HTML(context.Background(), "tab-1", provider.HTMLCaptureOptions{}, false)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if got.HTML != "<html></html>" {
		t.Fatalf("HTML() = %q; want markup", got.HTML)
	}
	if got.Artifact.ID != "" {
		t.Fatalf("HTML() artifact = %+v; want none without persist", got.Artifact)
	}

	persisted, err := s.HTML(context.Background(), "tab-1", provider.HTMLCaptureOptions{}, true)
	if err != nil {
		t.Fatalf("HTML(persist) error = %v", err)
	}
	if persisted.Artifact.Kind != "html" {
		t.Fatalf("HTML(persist) kind = %q; want %q", persisted.Artifact.Kind, "html")
	}
	data, _, err := s.ReadArtifactPayload(context.Background(), persisted.Artifact.ID)
	if err != nil {
		t.Fatalf("ReadArtifactPayload() error = %v", err)
	}
	if string(data) != "<html></html>" {
		t.Fatalf("persisted html = %q; want markup", data)
	}
}

func TestActivateTab_ReturnsFreshTabInfo(t *testing.T) {
	prov := &stubProvider{tab: provider.TabInfo{ID: "tab-1", Active: true}}
	s := newTestService(t, prov)

	tab, err := s.ActivateTab(context.Background(), " tab-1 ")
	if err != nil {
		t.Fatalf("ActivateTab() error = %v", err)
	}
	if tab.ID != "tab-1" {
		t.Fatalf("ActivateTab() tab = %+v; want tab-1", tab)
	}
	if len(prov.activated) != 1 || prov.activated[0] != "tab-1" {
		t.Fatalf("activated = %v; want trimmed tab-1", prov.activated)
	}
}

func TestCaptureTab_PersistsScreenshot(t *testing.T) {
	payload := []byte("image-bytes")
	prov := &stubProvider{
		tab:        provider.TabInfo{ID: "tab-1", URL: "https://example.com"},
		screenshot: base64.StdEncoding.EncodeToString(payload),
		html:       "<p>hi</p>",
	}
	s := newTestService(t, prov)

	out, err := s.CaptureTab(context.Background(), "tab-1", provider.CaptureRequest{
		Screenshot: &provider.CaptureOptions{Format: "png"},
		HTML:       &provider.HTMLCaptureOptions{},
	})
	if err != nil {
		t.Fatalf("CaptureTab() error = %v", err)
	}
	if out.Result.HTML != "<p>hi</p>" {
		t.Fatalf("CaptureTab() html = %q", out.Result.HTML)
	}
	if out.Screenshot.ID == "" {
		t.Fatalf("CaptureTab() screenshot artifact not persisted")
	}
	if out.Screenshot.SizeBytes != len(payload) {
		t.Fatalf("CaptureTab() size = %d; want %d", out.Screenshot.SizeBytes, len(payload))
	}
}

func TestCaptureTab_FailurePersistsNothing(t *testing.T) {
	prov := &stubProvider{
		tab:        provider.TabInfo{ID: "tab-1"},
		screenshot: base64.StdEncoding.EncodeToString([]byte("img")),
		htmlErr:    errors.New("boom"),
	}
	s := newTestService(t, prov)

	_, err := s.CaptureTab(context.Background(), "tab-1", provider.CaptureRequest{
		Screenshot: &provider.CaptureOptions{},
		HTML:       &provider.HTMLCaptureOptions{},
	})
	if err == nil {
		t.Fatalf("CaptureTab() = nil; want error")
	}
	artifacts, listErr := s.ListArtifacts(context.Background())
	if listErr != nil {
		t.Fatalf("ListArtifacts() error = %v", listErr)
	}
	if len(artifacts) != 0 {
		t.Fatalf("ListArtifacts() = %d entries; want none after failed capture", len(artifacts))
	}
}

func TestReadArtifactPayload_ReturnsBytesAndMeta(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}
	prov := &stubProvider{
		tab:        provider.TabInfo{ID: "tab-1", URL: "https://example.com"},
		screenshot: base64.StdEncoding.EncodeToString(payload),
	}
	s := newTestService(t, prov)

	saved, err := s.Screenshot(context.Background(), "tab-1", provider.CaptureOptions{})
	if err != nil {
		t.Fatalf("Screenshot() error = %v", err)
	}

	data, meta, err := s.ReadArtifactPayload(context.Background(), saved.ID)
	if err != nil {
		t.Fatalf("ReadArtifactPayload() error = %v", err)
	}
	if string(data) != string(payload) {
		t.Fatalf("ReadArtifactPayload() data = %v; want stored payload", data)
	}
	if meta.ID != saved.ID || meta.Format != saved.Format {
		t.Fatalf("ReadArtifactPayload() meta = %+v; want %+v", meta, saved)
	}

	_, _, err = s.ReadArtifactPayload(context.Background(), " ")
	var verr *provider.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ReadArtifactPayload(blank) error = %T; want *provider.ValidationError", err)
	}
}

func TestHealth_ReflectsConnection(t *testing.T) {
	prov := &stubProvider{connected: false}
	s := newTestService(t, prov)

	status, err := s.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status.Connected {
		t.Fatalf("Health() connected = true; want false")
	}
	if status.Tier != string(provider.TierFull) {
		t.Fatalf("Health() tier = %q; want %q", status.Tier, provider.TierFull)
	}

	prov.connected = true
	prov.tab = provider.TabInfo{ID: "tab-1"}
	status, err = s.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if !status.Connected || status.TabCount != 1 {
		t.Fatalf("Health() = %+v; want connected with 1 tab", status)
	}
}
