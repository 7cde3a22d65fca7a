package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/web_agent/internal/api"
	"github.com/dgnsrekt/web_agent/internal/artifact"
	"github.com/dgnsrekt/web_agent/internal/browser"
	"github.com/dgnsrekt/web_agent/internal/config"
	"github.com/dgnsrekt/web_agent/internal/events"
	"github.com/dgnsrekt/web_agent/internal/lifecycle"
	"github.com/dgnsrekt/web_agent/internal/netutil"
	"github.com/dgnsrekt/web_agent/internal/tools"
	"github.com/dgnsrekt/web_agent/internal/webcam"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("agent config loaded",
		"bind_addr", cfg.BindAddr,
		"default_engine", cfg.DefaultEngine,
		"default_headless", cfg.DefaultHeadless,
		"default_device", cfg.DefaultDevice,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	launcher, err := browser.NewPlaywrightLauncher()
	if err != nil {
		slog.Error("failed to start playwright driver", "error", err)
		os.Exit(1)
	}
	defer func() { _ = launcher.Close() }()

	artifacts, err := artifact.NewStore(cfg.ArtifactDir)
	if err != nil {
		slog.Error("failed to open artifact store", "dir", cfg.ArtifactDir, "error", err)
		os.Exit(1)
	}

	broker := events.NewBroker()
	pool := browser.NewPool(launcher, broker)
	registry := webcam.NewRegistry(webcam.ExecRunner{}, broker, webcam.Options{
		AssetDir:       cfg.AssetDir,
		SpawnGrace:     time.Duration(cfg.SpawnGraceMS) * time.Millisecond,
		StopGrace:      time.Duration(cfg.StopGraceMS) * time.Millisecond,
		CaptureTimeout: time.Duration(cfg.CaptureTimeoutMS) * time.Millisecond,
	})

	toolRegistry := tools.NewToolRegistry(&tools.Deps{
		Pool:      pool,
		Webcam:    registry,
		Artifacts: artifacts,
		Config:    cfg,
	})

	h := api.NewServer(&api.Deps{
		Tools:         toolRegistry,
		Pool:          pool,
		Webcam:        registry,
		Artifacts:     artifacts,
		Broker:        broker,
		DefaultDevice: cfg.DefaultDevice,
	})

	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("agent listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("agent server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http shutdown failed", "error", err)
	}

	coord := &lifecycle.Coordinator{Tools: toolRegistry, Pool: pool, Webcam: registry}
	if err := coord.Shutdown(ctx); err != nil {
		slog.Error("resource drain incomplete", "error", err)
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
