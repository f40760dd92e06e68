package controller

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/pagelens/pagelens/internal/artifact"
	"github.com/pagelens/pagelens/internal/provider"
)

// Service wraps browser capture operations and artifact persistence.
type Service struct {
	prov  provider.Provider
	store *artifact.Store
}

func NewService(prov provider.Provider, store *artifact.Store) *Service {
	return &Service{prov: prov, store: store}
}

func (s *Service) requireNonEmpty(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return &provider.ValidationError{Message: fieldName + " is required"}
	}
	return nil
}

// --- Browser and tab methods ---

func (s *Service) Capabilities(ctx context.Context) (provider.BrowserCapabilities, error) {
	return s.prov.Capabilities(), nil
}

func (s *Service) ListTabs(ctx context.Context) ([]provider.TabInfo, error) {
	tabs, err := s.prov.ListTabs(ctx)
	if err != nil {
		return nil, err
	}
	if tabs == nil {
		tabs = []provider.TabInfo{}
	}
	return tabs, nil
}

func (s *Service) GetTab(ctx context.Context, tabID string) (provider.TabInfo, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return provider.TabInfo{}, err
	}
	return s.prov.FindTab(ctx, strings.TrimSpace(tabID))
}

func (s *Service) ActivateTab(ctx context.Context, tabID string) (provider.TabInfo, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return provider.TabInfo{}, err
	}
	tabID = strings.TrimSpace(tabID)
	if err := s.prov.SetActiveTab(ctx, tabID); err != nil {
		return provider.TabInfo{}, err
	}
	return s.prov.FindTab(ctx, tabID)
}

// --- Capture methods ---

// Screenshot captures a tab and persists the image as an artifact.
func (s *Service) Screenshot(ctx context.Context, tabID string, opts provider.CaptureOptions) (artifact.Meta, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return artifact.Meta{}, err
	}
	tabID = strings.TrimSpace(tabID)

	tab, err := s.prov.FindTab(ctx, tabID)
	if err != nil {
		return artifact.Meta{}, err
	}

	encoded, err := s.prov.CaptureScreenshot(ctx, tabID, opts)
	if err != nil {
		return artifact.Meta{}, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return artifact.Meta{}, fmt.Errorf("decode screenshot payload: %w", err)
	}

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "png"
	}

	meta := artifact.Meta{
		ID:        artifact.NewID(),
		TabID:     tabID,
		Kind:      "screenshot",
		Format:    format,
		URL:       tab.URL,
		Title:     tab.Title,
		SizeBytes: len(data),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Save(meta, data); err != nil {
		return artifact.Meta{}, fmt.Errorf("save screenshot artifact: %w", err)
	}
	return meta, nil
}

// HTMLResult pairs extracted markup with its persisted artifact metadata.
type HTMLResult struct {
	HTML     string
	Artifact artifact.Meta
}

// HTML extracts page markup, persisting it as an artifact when persist is true.
func (s *Service) HTML(ctx context.Context, tabID string, opts provider.HTMLCaptureOptions, persist bool) (HTMLResult, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return HTMLResult{}, err
	}
	tabID = strings.TrimSpace(tabID)

	html, err := s.prov.CaptureHTML(ctx, tabID, opts)
	if err != nil {
		return HTMLResult{}, err
	}

	result := HTMLResult{HTML: html}
	if persist {
		tab, err := s.prov.FindTab(ctx, tabID)
		if err != nil {
			return HTMLResult{}, err
		}
		meta := artifact.Meta{
			ID:        artifact.NewID(),
			TabID:     tabID,
			Kind:      "html",
			Format:    "html",
			URL:       tab.URL,
			Title:     tab.Title,
			SizeBytes: len(html),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.Save(meta, []byte(html)); err != nil {
			return HTMLResult{}, fmt.Errorf("save html artifact: %w", err)
		}
		result.Artifact = meta
	}
	return result, nil
}

func (s *Service) CSS(ctx context.Context, tabID string, opts provider.CSSCaptureOptions) (string, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return "", err
	}
	return s.prov.CaptureCSS(ctx, strings.TrimSpace(tabID), opts)
}

func (s *Service) Elements(ctx context.Context, tabID string, selectors []string) ([]provider.ElementInfo, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return nil, err
	}
	elements, err := s.prov.ExtractElements(ctx, strings.TrimSpace(tabID), selectors)
	if err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []provider.ElementInfo{}
	}
	return elements, nil
}

func (s *Service) Scroll(ctx context.Context, tabID string, opts provider.ScrollOptions) error {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return err
	}
	return s.prov.ScrollPage(ctx, strings.TrimSpace(tabID), opts)
}

// CompleteCapture holds the compound capture output plus the persisted
// screenshot artifact, when a screenshot was requested.
type CompleteCapture struct {
	Result     provider.CaptureResult
	Screenshot artifact.Meta
}

// CaptureTab runs a compound capture. The whole request fails if any
// requested part fails; the screenshot, when present, is persisted.
func (s *Service) CaptureTab(ctx context.Context, tabID string, req provider.CaptureRequest) (CompleteCapture, error) {
	if err := s.requireNonEmpty(tabID, "tab_id"); err != nil {
		return CompleteCapture{}, err
	}
	tabID = strings.TrimSpace(tabID)

	result, err := provider.CaptureTab(ctx, s.prov, tabID, req)
	if err != nil {
		return CompleteCapture{}, err
	}

	out := CompleteCapture{Result: result}
	if req.Screenshot != nil && result.Screenshot != "" {
		data, err := base64.StdEncoding.DecodeString(result.Screenshot)
		if err != nil {
			return CompleteCapture{}, fmt.Errorf("decode screenshot payload: %w", err)
		}
		format := strings.ToLower(strings.TrimSpace(req.Screenshot.Format))
		if format == "" {
			format = "png"
		}
		meta := artifact.Meta{
			ID:        artifact.NewID(),
			TabID:     tabID,
			Kind:      "screenshot",
			Format:    format,
			URL:       result.Tab.URL,
			Title:     result.Tab.Title,
			SizeBytes: len(data),
			CreatedAt: result.CapturedAt,
		}
		if err := s.store.Save(meta, data); err != nil {
			return CompleteCapture{}, fmt.Errorf("save screenshot artifact: %w", err)
		}
		out.Screenshot = meta
	}
	return out, nil
}

// --- Artifact methods ---

func (s *Service) ListArtifacts(ctx context.Context) ([]artifact.Meta, error) {
	return s.store.List()
}

func (s *Service) GetArtifact(ctx context.Context, id string) (artifact.Meta, error) {
	if err := s.requireNonEmpty(id, "artifact_id"); err != nil {
		return artifact.Meta{}, err
	}
	return s.store.Get(strings.TrimSpace(id))
}

func (s *Service) ReadArtifactPayload(ctx context.Context, id string) ([]byte, artifact.Meta, error) {
	if err := s.requireNonEmpty(id, "artifact_id"); err != nil {
		return nil, artifact.Meta{}, err
	}
	id = strings.TrimSpace(id)
	meta, err := s.store.Get(id)
	if err != nil {
		return nil, artifact.Meta{}, err
	}
	data, _, err := s.store.ReadPayload(id)
	if err != nil {
		return nil, artifact.Meta{}, err
	}
	return data, meta, nil
}

func (s *Service) DeleteArtifact(ctx context.Context, id string) error {
	if err := s.requireNonEmpty(id, "artifact_id"); err != nil {
		return err
	}
	return s.store.Delete(strings.TrimSpace(id))
}

// --- Health ---

// HealthStatus summarizes connection health for the API.
type HealthStatus struct {
	Connected bool   `json:"connected"`
	Tier      string `json:"tier"`
	TabCount  int    `json:"tab_count"`
	Detail    string `json:"detail,omitempty"`
}

// Health reports whether the debugging endpoint connection is live by
// listing tabs over the wire.
func (s *Service) Health(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{
		Connected: s.prov.Connected(),
		Tier:      string(s.prov.Capabilities().Tier),
	}
	if status.Connected {
		tabs, err := s.prov.ListTabs(ctx)
		if err != nil {
			status.Connected = false
			status.Detail = err.Error()
		} else {
			status.TabCount = len(tabs)
		}
	}
	return status, nil
}
