package main

import (
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/menu/keys"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"github.com/cdtdelta/honeydash/internal/config"
	"github.com/cdtdelta/honeydash/internal/dashboard"
	"github.com/cdtdelta/honeydash/internal/logging"
)

func main() {
	// The desktop build has no flags; settings come from HONEYDASH_* and an
	// optional file named by HONEYDASH_CONFIG.
	cfg, err := config.Load(config.NewViper(), os.Getenv("HONEYDASH_CONFIG"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	server, err := dashboard.New(cfg, log)
	if err != nil {
		log.Fatal("Building dashboard", zap.Error(err))
	}
	app := NewApp(server, log)

	appMenu := menu.NewMenu()

	fileMenu := appMenu.AddSubmenu("File")
	fileMenu.AddText("Reload Events", keys.CmdOrCtrl("r"), func(*menu.CallbackData) {
		go app.reloadFromMenu()
	})
	fileMenu.AddSeparator()
	fileMenu.AddText("Quit", keys.CmdOrCtrl("q"), func(*menu.CallbackData) {
		runtime.Quit(app.runtimeCtx())
	})

	editMenu := appMenu.AddSubmenu("Edit")
	editMenu.AddText("Cut", keys.CmdOrCtrl("x"), nil)
	editMenu.AddText("Copy", keys.CmdOrCtrl("c"), nil)
	editMenu.AddText("Paste", keys.CmdOrCtrl("v"), nil)
	editMenu.AddText("Select All", keys.CmdOrCtrl("a"), nil)

	viewMenu := appMenu.AddSubmenu("View")
	viewMenu.AddText("Graph", keys.CmdOrCtrl("1"), func(*menu.CallbackData) {
		app.navigate("/graph")
	})
	viewMenu.AddText("Table", keys.CmdOrCtrl("2"), func(*menu.CallbackData) {
		app.navigate("/table")
	})

	err = wails.Run(&options.App{
		Title:  "Event Dashboard v" + dashboard.Version,
		Width:  1400,
		Height: 900,
		Menu:   appMenu,
		AssetServer: &assetserver.Options{
			Handler: server.Handler(),
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})

	if err != nil {
		log.Error("Desktop window failed", zap.Error(err))
	}
}
