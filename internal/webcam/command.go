package webcam

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgnsrekt/web_agent/internal/fault"
)

// Mode selects what the encoder feeds to a virtual device.
type Mode string

const (
	ModeImage   Mode = "image"
	ModeVideo   Mode = "video"
	ModePattern Mode = "pattern"
	ModeColor   Mode = "color"
	ModeScreen  Mode = "screen"
	ModeText    Mode = "text"
)

const (
	defaultPattern = "smpte"
	defaultColor   = "blue"
	defaultDisplay = ":99"
	defaultText    = "web_agent virtual camera"

	frameSize = "640x480"
	frameRate = "30"
)

// ParseMode validates a raw mode value against the closed mode set.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeImage, ModeVideo, ModePattern, ModeColor, ModeScreen, ModeText:
		return Mode(raw), nil
	}
	return "", fault.Newf(fault.KindInvalidParameter,
		"unknown webcam mode %q (expected image, video, pattern, color, screen, or text)", raw)
}

// encoderArgs builds the ffmpeg argument list for a mode. Sources were
// already defaulted and, for text mode, rendered to a still image.
func encoderArgs(mode Mode, source, device string, loop bool) []string {
	switch mode {
	case ModeImage, ModeText:
		loopFlag := "0"
		if loop {
			loopFlag = "1"
		}
		return []string{
			"-re",
			"-loop", loopFlag,
			"-i", source,
			"-f", "v4l2",
			"-vcodec", "rawvideo",
			"-pix_fmt", "yuv420p",
			"-s", frameSize,
			"-r", frameRate,
			device,
		}
	case ModeVideo:
		loopFlag := "0"
		if loop {
			loopFlag = "-1"
		}
		return []string{
			"-re",
			"-stream_loop", loopFlag,
			"-i", source,
			"-f", "v4l2",
			"-vcodec", "rawvideo",
			"-pix_fmt", "yuv420p",
			device,
		}
	case ModePattern:
		return []string{
			"-f", "lavfi",
			"-i", fmt.Sprintf("%s=size=%s:rate=%s", source, frameSize, frameRate),
			"-f", "v4l2",
			"-pix_fmt", "yuv420p",
			device,
		}
	case ModeColor:
		return []string{
			"-f", "lavfi",
			"-i", fmt.Sprintf("color=c=%s:size=%s:rate=%s", source, frameSize, frameRate),
			"-f", "v4l2",
			"-pix_fmt", "yuv420p",
			device,
		}
	case ModeScreen:
		return []string{
			"-f", "x11grab",
			"-r", frameRate,
			"-s", "1920x1080",
			"-i", source,
			"-vf", "scale=640:480",
			"-f", "v4l2",
			"-pix_fmt", "yuv420p",
			device,
		}
	}
	return nil
}

// assets manages generated fallback media under the asset directory.
type assets struct {
	dir    string
	runner Runner
}

func (a assets) ensureDir() error {
	return os.MkdirAll(a.dir, 0o755)
}

// testPattern returns the fallback still image, generating it on first use.
func (a assets) testPattern(ctx context.Context) (string, error) {
	path := filepath.Join(a.dir, "test-pattern.jpg")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := a.ensureDir(); err != nil {
		return "", err
	}
	_, err := a.runner.Run(ctx, "convert",
		"-size", frameSize,
		"xc:blue",
		"-fill", "white",
		"-pointsize", "48",
		"-draw", "text 100,240 'web_agent webcam'",
		path,
	)
	if err != nil {
		return "", fmt.Errorf("generate test pattern: %w", err)
	}
	return path, nil
}

// testVideo returns the fallback video clip, generating it on first use.
func (a assets) testVideo(ctx context.Context) (string, error) {
	path := filepath.Join(a.dir, "test-video.mp4")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := a.ensureDir(); err != nil {
		return "", err
	}
	_, err := a.runner.Run(ctx, "ffmpeg",
		"-f", "lavfi",
		"-i", "testsrc=duration=10:size="+frameSize+":rate="+frameRate,
		"-pix_fmt", "yuv420p",
		path,
		"-y",
	)
	if err != nil {
		return "", fmt.Errorf("generate test video: %w", err)
	}
	return path, nil
}

// drawText builds the ImageMagick draw primitive for the given text.
// Backslashes and single quotes must be escaped or they terminate the
// quoted string inside the primitive.
func drawText(text string) string {
	text = strings.ReplaceAll(text, `\`, `\\`)
	text = strings.ReplaceAll(text, `'`, `\'`)
	return fmt.Sprintf("text 0,0 '%s'", text)
}

// renderText rasterizes text into a still image and returns its path. This
// side effect completes before the encoder starts.
func (a assets) renderText(ctx context.Context, text string) (string, error) {
	if err := a.ensureDir(); err != nil {
		return "", err
	}
	path := filepath.Join(a.dir, fmt.Sprintf("text_%d.jpg", time.Now().UnixNano()))
	_, err := a.runner.Run(ctx, "convert",
		"-size", frameSize,
		"xc:lightblue",
		"-fill", "black",
		"-pointsize", "36",
		"-gravity", "center",
		"-draw", drawText(text),
		path,
	)
	if err != nil {
		return "", fmt.Errorf("render text image: %w", err)
	}
	return path, nil
}

// resolveSource applies per-mode defaults and side effects, returning the
// concrete source the encoder command line will use.
func (a assets) resolveSource(ctx context.Context, mode Mode, source string) (string, error) {
	switch mode {
	case ModeImage:
		if source != "" {
			if _, err := os.Stat(source); err == nil {
				return source, nil
			}
		}
		return a.testPattern(ctx)
	case ModeVideo:
		if source != "" {
			if _, err := os.Stat(source); err == nil {
				return source, nil
			}
		}
		return a.testVideo(ctx)
	case ModePattern:
		if source == "" {
			return defaultPattern, nil
		}
		return source, nil
	case ModeColor:
		if source == "" {
			return defaultColor, nil
		}
		return source, nil
	case ModeScreen:
		if source == "" {
			return defaultDisplay, nil
		}
		return source, nil
	case ModeText:
		if source == "" {
			source = defaultText
		}
		return a.renderText(ctx, source)
	}
	return "", fault.Newf(fault.KindInvalidParameter, "unknown webcam mode %q", mode)
}
