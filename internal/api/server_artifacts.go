package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/web_agent/internal/artifact"
)

func registerArtifactHandlers(api huma.API, deps *Deps) {
	type artifactListOutput struct {
		Body struct {
			Artifacts []artifact.Meta `json:"artifacts"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-artifacts",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts",
		Summary:     "List stored screenshots and photos, newest first",
		Tags:        []string{"Artifacts"},
	}, func(ctx context.Context, input *struct{}) (*artifactListOutput, error) {
		metas, err := deps.Artifacts.List()
		if err != nil {
			return nil, mapErr(err)
		}
		out := &artifactListOutput{}
		out.Body.Artifacts = metas
		if out.Body.Artifacts == nil {
			out.Body.Artifacts = []artifact.Meta{}
		}
		return out, nil
	})

	type artifactIDInput struct {
		ArtifactID string `path:"artifact_id"`
	}
	type getOutput struct {
		Body artifact.Meta
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-artifact-metadata",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{artifact_id}/metadata",
		Summary:     "Get artifact metadata",
		Tags:        []string{"Artifacts"},
	}, func(ctx context.Context, input *artifactIDInput) (*getOutput, error) {
		meta, err := deps.Artifacts.Get(input.ArtifactID)
		if err != nil {
			return nil, mapErr(err)
		}
		out := &getOutput{}
		out.Body = meta
		return out, nil
	})

	type imageOutput struct {
		ContentType string `header:"Content-Type"`
		Body        []byte
	}
	huma.Register(api, huma.Operation{
		OperationID: "get-artifact-image",
		Method:      http.MethodGet,
		Path:        "/api/v1/artifacts/{artifact_id}/image",
		Summary:     "Get artifact image",
		Tags:        []string{"Artifacts"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Artifact image",
				Content: map[string]*huma.MediaType{
					"image/png": {
						Schema: &huma.Schema{Type: "string", Format: "binary"},
					},
				},
			},
		},
	}, func(ctx context.Context, input *artifactIDInput) (*imageOutput, error) {
		data, format, err := deps.Artifacts.ReadImage(input.ArtifactID)
		if err != nil {
			return nil, mapErr(err)
		}
		ct := "image/png"
		if format == "jpeg" || format == "jpg" {
			ct = "image/jpeg"
		}
		return &imageOutput{ContentType: ct, Body: data}, nil
	})

	type deleteOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "delete-artifact",
		Method:      http.MethodDelete,
		Path:        "/api/v1/artifacts/{artifact_id}",
		Summary:     "Delete an artifact and its metadata",
		Tags:        []string{"Artifacts"},
	}, func(ctx context.Context, input *artifactIDInput) (*deleteOutput, error) {
		if err := deps.Artifacts.Delete(input.ArtifactID); err != nil {
			return nil, mapErr(err)
		}
		out := &deleteOutput{}
		out.Body.Status = "deleted"
		return out, nil
	})
}
