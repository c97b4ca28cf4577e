package main

import (
	"embed"
	"log/slog"
	"os"

	"github.com/chazu/weldscan/pkg/config"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load(os.Getenv("WELDSCAN_CONFIG"))
	if err != nil {
		slog.Error("config", slog.Any("error", err))
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("startup", slog.Any("error", err))
		os.Exit(1)
	}

	err = wails.Run(&options.App{
		Title:     app.Title(),
		Width:     1280,
		Height:    800,
		MinWidth:  800,
		MinHeight: 600,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind:      []interface{}{app},
	})
	if err != nil {
		slog.Error("wails", slog.Any("error", err))
		os.Exit(1)
	}
}
