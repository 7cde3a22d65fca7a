package tools

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/dgnsrekt/web_agent/internal/fault"
	"github.com/google/uuid"
)

// Content is one item in a tool result envelope.
type Content struct {
	Type     string `json:"type" enum:"text,image" doc:"Content item type"`
	Text     string `json:"text,omitempty" doc:"Text payload for type=text"`
	Data     string `json:"data,omitempty" doc:"Base64 image payload for type=image"`
	MimeType string `json:"mimeType,omitempty" doc:"MIME type for type=image"`
}

// Result is the uniform tool invocation envelope. Every dispatch returns
// exactly one Result, success or error.
type Result struct {
	Content   []Content `json:"content"`
	IsError   bool      `json:"isError,omitempty"`
	ErrorKind string    `json:"errorKind,omitempty"`
}

func textResult(format string, args ...any) Result {
	return Result{Content: []Content{{Type: "text", Text: fmt.Sprintf(format, args...)}}}
}

func imageResult(text string, imageData []byte, mimeType string) Result {
	return Result{Content: []Content{
		{Type: "text", Text: text},
		{Type: "image", Data: base64.StdEncoding.EncodeToString(imageData), MimeType: mimeType},
	}}
}

// errorResult wraps an error into the envelope. Internal errors are logged
// with a correlation ID and never expose their cause to the caller.
func errorResult(tool string, err error) Result {
	kind := fault.Kind(err)
	msg := fault.Message(err)
	if kind == fault.KindInternal {
		corrID := uuid.NewString()
		slog.Error("tool dispatch internal error",
			"tool", tool, "correlation_id", corrID, "error", err)
		msg = fmt.Sprintf("internal error (correlation_id=%s)", corrID)
	}
	return Result{
		Content:   []Content{{Type: "text", Text: msg}},
		IsError:   true,
		ErrorKind: kind,
	}
}
