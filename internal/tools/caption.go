package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dgnsrekt/web_agent/internal/fault"
)

type captionParams struct {
	ImagePath   string   `json:"image_path" doc:"Path to the image file to caption"`
	Mode        string   `json:"mode,omitempty" enum:"descriptive,straightforward,stable_diffusion,booru_tags" doc:"Caption style"`
	Temperature *float64 `json:"temperature,omitempty" minimum:"0.1" maximum:"1.0" doc:"Generation temperature"`
	TopP        *float64 `json:"top_p,omitempty" minimum:"0.1" maximum:"1.0" doc:"Top-p sampling parameter"`
	MaxTokens   int      `json:"max_tokens,omitempty" minimum:"50" maximum:"1024" doc:"Maximum tokens to generate"`
}

type captionRequest struct {
	ImagePath   string  `json:"image_path"`
	Mode        string  `json:"mode"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

type captionResponse struct {
	Caption string `json:"caption"`
}

// registerCaptionTool wires the image captioning tool. Inference happens in
// an external service invoked as a black box; this handler only validates,
// forwards, and bounds the call.
func registerCaptionTool(r *Registry, deps *Deps) {
	register(r, "caption_image", "Generate a caption for an image via the configured inference service",
		func(ctx context.Context, p captionParams) (Result, error) {
			if deps.Config.InferenceURL == "" {
				return Result{}, fault.Newf(fault.KindResourceUnavailable,
					"no caption inference service configured (set CAPTION_INFERENCE_URL)")
			}

			req := captionRequest{
				ImagePath:   p.ImagePath,
				Mode:        "descriptive",
				Temperature: 0.7,
				TopP:        0.9,
				MaxTokens:   256,
			}
			if p.Mode != "" {
				req.Mode = p.Mode
			}
			if p.Temperature != nil {
				req.Temperature = *p.Temperature
			}
			if p.TopP != nil {
				req.TopP = *p.TopP
			}
			if p.MaxTokens > 0 {
				req.MaxTokens = p.MaxTokens
			}

			body, err := json.Marshal(req)
			if err != nil {
				return Result{}, fault.New(fault.KindInternal, "encode inference request", err)
			}

			callCtx, cancel := context.WithTimeout(ctx,
				time.Duration(deps.Config.InferenceTimeoutMS)*time.Millisecond)
			defer cancel()

			httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost,
				deps.Config.InferenceURL, bytes.NewReader(body))
			if err != nil {
				return Result{}, fault.New(fault.KindInternal, "build inference request", err)
			}
			httpReq.Header.Set("Content-Type", "application/json")

			resp, err := deps.HTTP.Do(httpReq)
			if err != nil {
				if callCtx.Err() != nil {
					return Result{}, fault.New(fault.KindTimeout, "inference call timed out", err)
				}
				return Result{}, fault.New(fault.KindResourceUnavailable, "inference service unreachable", err)
			}
			defer func() { _ = resp.Body.Close() }()

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return Result{}, fault.Newf(fault.KindResourceUnavailable,
					"inference service returned status %d", resp.StatusCode)
			}

			data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return Result{}, fault.New(fault.KindResourceUnavailable, "read inference response", err)
			}
			var out captionResponse
			if err := json.Unmarshal(data, &out); err != nil {
				return Result{}, fault.New(fault.KindResourceUnavailable, "decode inference response", err)
			}
			return textResult("%s", out.Caption), nil
		})
}
