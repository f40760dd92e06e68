package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/pagelens/pagelens/internal/artifact"
	"github.com/pagelens/pagelens/internal/controller"
	"github.com/pagelens/pagelens/internal/provider"
)

type Service interface {
	Capabilities(ctx context.Context) (provider.BrowserCapabilities, error)
	Health(ctx context.Context) (controller.HealthStatus, error)
	ListTabs(ctx context.Context) ([]provider.TabInfo, error)
	GetTab(ctx context.Context, tabID string) (provider.TabInfo, error)
	ActivateTab(ctx context.Context, tabID string) (provider.TabInfo, error)
	Screenshot(ctx context.Context, tabID string, opts provider.CaptureOptions) (artifact.Meta, error)
	HTML(ctx context.Context, tabID string, opts provider.HTMLCaptureOptions, persist bool) (controller.HTMLResult, error)
	CSS(ctx context.Context, tabID string, opts provider.CSSCaptureOptions) (string, error)
	Elements(ctx context.Context, tabID string, selectors []string) ([]provider.ElementInfo, error)
	Scroll(ctx context.Context, tabID string, opts provider.ScrollOptions) error
	CaptureTab(ctx context.Context, tabID string, req provider.CaptureRequest) (controller.CompleteCapture, error)
	ListArtifacts(ctx context.Context) ([]artifact.Meta, error)
	GetArtifact(ctx context.Context, id string) (artifact.Meta, error)
	ReadArtifactPayload(ctx context.Context, id string) ([]byte, artifact.Meta, error)
	DeleteArtifact(ctx context.Context, id string) error
}

type tabIDInput struct {
	TabID string `path:"tab_id"`
}

func NewServer(svc Service) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("PageLens API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(docsHTML)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	})

	registerTabHandlers(api, svc)
	registerCaptureHandlers(api, svc)
	registerArtifactHandlers(api, router, svc)

	return router
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var validation *provider.ValidationError
	if errors.As(err, &validation) {
		return huma.Error400BadRequest(validation.Message)
	}
	var notFound *provider.TabNotFoundError
	if errors.As(err, &notFound) {
		return huma.Error404NotFound(notFound.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return huma.Error504GatewayTimeout(err.Error())
	}
	var connErr *provider.ConnectionError
	if errors.As(err, &connErr) {
		return huma.Error502BadGateway(connErr.Error())
	}
	var capture *provider.CaptureError
	if errors.As(err, &capture) {
		return huma.Error500InternalServerError(capture.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
