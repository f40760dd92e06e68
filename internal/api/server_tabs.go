package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/pagelens/pagelens/internal/controller"
	"github.com/pagelens/pagelens/internal/provider"
)

func registerTabHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body controller.HealthStatus
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Health check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			status, err := svc.Health(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &healthOutput{}
			out.Body = status
			return out, nil
		})

	type capabilitiesOutput struct {
		Body provider.BrowserCapabilities
	}
	huma.Register(api, huma.Operation{OperationID: "get-capabilities", Method: http.MethodGet, Path: "/api/v1/capabilities", Summary: "Get browser capability descriptor", Tags: []string{"Browser"}},
		func(ctx context.Context, input *struct{}) (*capabilitiesOutput, error) {
			caps, err := svc.Capabilities(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &capabilitiesOutput{}
			out.Body = caps
			return out, nil
		})

	type listTabsOutput struct {
		Body struct {
			Tabs []provider.TabInfo `json:"tabs"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-tabs", Method: http.MethodGet, Path: "/api/v1/tabs", Summary: "List open page tabs", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *struct{}) (*listTabsOutput, error) {
			tabs, err := svc.ListTabs(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listTabsOutput{}
			out.Body.Tabs = tabs
			return out, nil
		})

	type tabOutput struct {
		Body provider.TabInfo
	}
	huma.Register(api, huma.Operation{OperationID: "get-tab", Method: http.MethodGet, Path: "/api/v1/tabs/{tab_id}", Summary: "Get one tab by ID", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*tabOutput, error) {
			tab, err := svc.GetTab(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabOutput{}
			out.Body = tab
			return out, nil
		})

	huma.Register(api, huma.Operation{OperationID: "activate-tab", Method: http.MethodPost, Path: "/api/v1/tabs/{tab_id}/activate", Summary: "Bring a tab to the foreground", Tags: []string{"Tabs"}},
		func(ctx context.Context, input *tabIDInput) (*tabOutput, error) {
			tab, err := svc.ActivateTab(ctx, input.TabID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &tabOutput{}
			out.Body = tab
			return out, nil
		})
}
