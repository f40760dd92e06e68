package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"github.com/pagelens/pagelens/internal/artifact"
)

func registerArtifactHandlers(api huma.API, router chi.Router, svc Service) {
	type listArtifactsOutput struct {
		Body struct {
			Artifacts []artifact.Meta `json:"artifacts"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-artifacts", Method: http.MethodGet, Path: "/api/v1/artifacts", Summary: "List stored capture artifacts", Tags: []string{"Artifacts"}},
		func(ctx context.Context, input *struct{}) (*listArtifactsOutput, error) {
			metas, err := svc.ListArtifacts(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &listArtifactsOutput{}
			out.Body.Artifacts = metas
			if out.Body.Artifacts == nil {
				out.Body.Artifacts = []artifact.Meta{}
			}
			return out, nil
		})

	type artifactIDInput struct {
		ArtifactID string `path:"artifact_id"`
	}
	type getArtifactOutput struct {
		Body artifact.Meta
	}
	huma.Register(api, huma.Operation{OperationID: "get-artifact-metadata", Method: http.MethodGet, Path: "/api/v1/artifacts/{artifact_id}/metadata", Summary: "Get artifact metadata", Tags: []string{"Artifacts"}},
		func(ctx context.Context, input *artifactIDInput) (*getArtifactOutput, error) {
			meta, err := svc.GetArtifact(ctx, input.ArtifactID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &getArtifactOutput{}
			out.Body = meta
			return out, nil
		})

	type deleteArtifactOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "delete-artifact", Method: http.MethodDelete, Path: "/api/v1/artifacts/{artifact_id}", Summary: "Delete an artifact", Tags: []string{"Artifacts"}},
		func(ctx context.Context, input *artifactIDInput) (*deleteArtifactOutput, error) {
			if err := svc.DeleteArtifact(ctx, input.ArtifactID); err != nil {
				return nil, mapErr(err)
			}
			out := &deleteArtifactOutput{}
			out.Body.Status = "deleted"
			return out, nil
		})

	// Raw payload bytes go through chi directly; huma would wrap them in a
	// JSON schema they don't have.
	router.Get("/api/v1/artifacts/{artifact_id}/payload", func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "artifact_id")
		data, meta, err := svc.ReadArtifactPayload(r.Context(), id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", payloadContentType(meta.Format))
		if _, err := w.Write(data); err != nil {
			return
		}
	})
}

func payloadContentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "webp":
		return "image/webp"
	case "html":
		return "text/html; charset=utf-8"
	case "css":
		return "text/css; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
