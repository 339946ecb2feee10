package main

import (
	"embed"
	"log"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed frontend/index.html
var appAssets embed.FS

func main() {
	app := NewApp()

	err := wails.Run(&options.App{
		Title:  "VoiceNote",
		Width:  520,
		Height: 640,
		AssetServer: &assetserver.Options{
			Assets: appAssets,
		},
		OnStartup: app.startup,
		Bind:      []interface{}{app},
	})
	if err != nil {
		log.Fatalf("run app: %v", err)
	}
}
