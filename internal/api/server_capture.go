package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/pagelens/pagelens/internal/artifact"
	"github.com/pagelens/pagelens/internal/provider"
)

func registerCaptureHandlers(api huma.API, svc Service) {
	type screenshotOutput struct {
		Body struct {
			Artifact artifact.Meta `json:"artifact"`
			URL      string        `json:"url"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "capture-screenshot", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/screenshot", Summary: "Capture a tab screenshot", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  struct {
				Format           string             `json:"format,omitempty" doc:"Image format: png (default), jpeg, or webp" enum:"png,jpeg,webp,"`
				Quality          int                `json:"quality,omitempty" doc:"Quality 1-100, lossy formats only"`
				FullPage         bool               `json:"full_page,omitempty" doc:"Capture beyond the viewport"`
				Clip             *provider.ClipRect `json:"clip,omitempty" doc:"Bound the capture to a page region"`
				DevicePixelRatio float64            `json:"device_pixel_ratio,omitempty" doc:"Clip scale factor, defaults to 1"`
			}
		}) (*screenshotOutput, error) {
			meta, err := svc.Screenshot(ctx, input.TabID, provider.CaptureOptions{
				Format:           input.Body.Format,
				Quality:          input.Body.Quality,
				FullPage:         input.Body.FullPage,
				Clip:             input.Body.Clip,
				DevicePixelRatio: input.Body.DevicePixelRatio,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &screenshotOutput{}
			out.Body.Artifact = meta
			out.Body.URL = "/api/v1/artifacts/" + meta.ID + "/payload"
			return out, nil
		})

	type htmlOutput struct {
		Body struct {
			HTML     string         `json:"html"`
			Artifact *artifact.Meta `json:"artifact,omitempty"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "capture-html", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/html", Summary: "Extract page markup", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  struct {
				IncludeStyles  bool     `json:"include_styles,omitempty" doc:"Keep style elements and inline style attributes"`
				IncludeScripts bool     `json:"include_scripts,omitempty" doc:"Keep script elements"`
				Prettify       bool     `json:"prettify,omitempty" doc:"Insert line breaks between adjacent tags"`
				Selectors      []string `json:"selectors,omitempty" doc:"Restrict output to matching elements"`
				Persist        bool     `json:"persist,omitempty" doc:"Also store the markup as an artifact"`
			}
		}) (*htmlOutput, error) {
			result, err := svc.HTML(ctx, input.TabID, provider.HTMLCaptureOptions{
				IncludeStyles:  input.Body.IncludeStyles,
				IncludeScripts: input.Body.IncludeScripts,
				Prettify:       input.Body.Prettify,
				Selectors:      input.Body.Selectors,
			}, input.Body.Persist)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &htmlOutput{}
			out.Body.HTML = result.HTML
			if result.Artifact.ID != "" {
				meta := result.Artifact
				out.Body.Artifact = &meta
			}
			return out, nil
		})

	type cssOutput struct {
		Body struct {
			CSS string `json:"css"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "capture-css", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/css", Summary: "Collect computed styles for selectors", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  struct {
				Selectors        []string `json:"selectors" doc:"CSS selectors to inspect, at least one"`
				IncludeComputed  bool     `json:"include_computed,omitempty" doc:"Report every computed property, not just non-defaults"`
				IncludeInherited bool     `json:"include_inherited,omitempty" doc:"Walk ancestor chain for inherited properties"`
				Prettify         bool     `json:"prettify,omitempty"`
			}
		}) (*cssOutput, error) {
			css, err := svc.CSS(ctx, input.TabID, provider.CSSCaptureOptions{
				Selectors:        input.Body.Selectors,
				IncludeComputed:  input.Body.IncludeComputed,
				IncludeInherited: input.Body.IncludeInherited,
				Prettify:         input.Body.Prettify,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &cssOutput{}
			out.Body.CSS = css
			return out, nil
		})

	type elementsOutput struct {
		Body struct {
			Elements []provider.ElementInfo `json:"elements"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "extract-elements", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/elements", Summary: "Inspect elements matching selectors", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  struct {
				Selectors []string `json:"selectors" doc:"CSS selectors to inspect"`
			}
		}) (*elementsOutput, error) {
			elements, err := svc.Elements(ctx, input.TabID, input.Body.Selectors)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &elementsOutput{}
			out.Body.Elements = elements
			return out, nil
		})

	type scrollOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "scroll-page", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/scroll", Summary: "Scroll the page", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  struct {
				ScrollType string  `json:"scroll_type" doc:"One of: pixels, coordinates, viewport, element, top, bottom" enum:"pixels,coordinates,viewport,element,top,bottom"`
				X          float64 `json:"x,omitempty"`
				Y          float64 `json:"y,omitempty"`
				Selector   string  `json:"selector,omitempty" doc:"Target element, required for element scrolls"`
				Smooth     bool    `json:"smooth,omitempty"`
			}
		}) (*scrollOutput, error) {
			err := svc.Scroll(ctx, input.TabID, provider.ScrollOptions{
				ScrollType: input.Body.ScrollType,
				X:          input.Body.X,
				Y:          input.Body.Y,
				Selector:   input.Body.Selector,
				Smooth:     input.Body.Smooth,
			})
			if err != nil {
				return nil, mapErr(err)
			}
			out := &scrollOutput{}
			out.Body.Status = "scrolled"
			return out, nil
		})

	type captureTabOutput struct {
		Body struct {
			Tab        provider.TabInfo `json:"tab"`
			Screenshot *artifact.Meta   `json:"screenshot,omitempty"`
			HTML       string           `json:"html,omitempty"`
			CSS        string           `json:"css,omitempty"`
			CapturedAt string           `json:"captured_at"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "capture-tab", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/capture", Summary: "Compound capture of one tab", Description: "Runs the requested sub-captures against a single tab snapshot. The whole request fails when any requested part fails.", Tags: []string{"Capture"}},
		func(ctx context.Context, input *struct {
			TabID string `path:"tab_id"`
			Body  provider.CaptureRequest
		}) (*captureTabOutput, error) {
			result, err := svc.CaptureTab(ctx, input.TabID, input.Body)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &captureTabOutput{}
			out.Body.Tab = result.Result.Tab
			out.Body.HTML = result.Result.HTML
			out.Body.CSS = result.Result.CSS
			out.Body.CapturedAt = result.Result.CapturedAt.Format("2006-01-02T15:04:05.000Z07:00")
			if result.Screenshot.ID != "" {
				meta := result.Screenshot
				out.Body.Screenshot = &meta
			}
			return out, nil
		})
}
