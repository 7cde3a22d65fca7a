package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/dgnsrekt/web_agent/internal/tools"
)

func registerToolHandlers(api huma.API, deps *Deps) {
	type toolListOutput struct {
		Body struct {
			Tools []tools.Descriptor `json:"tools"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "list-tools",
		Method:      http.MethodGet,
		Path:        "/api/v1/tools",
		Summary:     "List available tools with their parameter schemas",
		Tags:        []string{"Tools"},
	}, func(ctx context.Context, input *struct{}) (*toolListOutput, error) {
		out := &toolListOutput{}
		out.Body.Tools = deps.Tools.Descriptors()
		return out, nil
	})

	type invokeInput struct {
		Name    string `path:"name" doc:"Tool name"`
		RawBody []byte
	}
	type invokeOutput struct {
		Body tools.Result
	}
	huma.Register(api, huma.Operation{
		OperationID: "invoke-tool",
		Method:      http.MethodPost,
		Path:        "/api/v1/tools/{name}",
		Summary:     "Invoke a tool by name with a JSON arguments body",
		Tags:        []string{"Tools"},
	}, func(ctx context.Context, input *invokeInput) (*invokeOutput, error) {
		args := json.RawMessage(input.RawBody)
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		out := &invokeOutput{}
		out.Body = deps.Tools.Dispatch(ctx, input.Name, args)
		return out, nil
	})

	// MCP-style call shape: name and arguments in one body.
	type callBody struct {
		Name      string         `json:"name" doc:"Tool name"`
		Arguments map[string]any `json:"arguments,omitempty" doc:"Tool arguments object"`
	}
	type callInput struct {
		Body callBody
	}
	huma.Register(api, huma.Operation{
		OperationID: "call-tool",
		Method:      http.MethodPost,
		Path:        "/api/v1/tools/call",
		Summary:     "Invoke a tool with name and arguments in the body",
		Tags:        []string{"Tools"},
	}, func(ctx context.Context, input *callInput) (*invokeOutput, error) {
		args := json.RawMessage(`{}`)
		if input.Body.Arguments != nil {
			encoded, err := json.Marshal(input.Body.Arguments)
			if err != nil {
				return nil, huma.Error400BadRequest("arguments must be a JSON object")
			}
			args = encoded
		}
		out := &invokeOutput{}
		out.Body = deps.Tools.Dispatch(ctx, input.Body.Name, args)
		return out, nil
	})
}
