// Command loadorder-inspect is a thin demonstration binary over the
// loadorder CORE: it loads a game's plugin order from disk and prints it.
// With -watch it stays running and re-prints the order whenever the
// plugins directory or the active-plugins/load-order files change. It
// exists so the library can be exercised end to end; it is not part of
// the CORE's public contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mod-troubleshooter/loadorder/internal/fswatch"
	"github.com/mod-troubleshooter/loadorder/internal/gamesettings"
	"github.com/mod-troubleshooter/loadorder/internal/header"
	"github.com/mod-troubleshooter/loadorder/internal/loadorder"
)

var gameNames = map[string]gamesettings.GameID{
	"morrowind":  gamesettings.Morrowind,
	"oblivion":   gamesettings.Oblivion,
	"fallout3":   gamesettings.Fallout3,
	"falloutnv":  gamesettings.FalloutNV,
	"skyrim":     gamesettings.Skyrim,
	"skyrimse":   gamesettings.SkyrimSE,
	"skyrimvr":   gamesettings.SkyrimVR,
	"fallout4":   gamesettings.Fallout4,
	"fallout4vr": gamesettings.Fallout4VR,
}

func main() {
	game := flag.String("game", "skyrimse", "game id (morrowind, oblivion, fallout3, falloutnv, skyrim, skyrimse, skyrimvr, fallout4, fallout4vr)")
	pluginsDir := flag.String("plugins-dir", "", "path to the game's plugins directory")
	localAppData := flag.String("local-appdata", "", "path to the game's local app data folder (ignored for Morrowind)")
	cacheDB := flag.String("cache-db", "", "path to the header parse cache database (defaults to loadorder-cache.db under -local-appdata, or under -plugins-dir when -local-appdata is empty)")
	watch := flag.Bool("watch", false, "keep running and re-print the order whenever it changes on disk")
	debounce := flag.Duration("watch-debounce", 500*time.Millisecond, "how long to wait for a burst of filesystem events to settle before reloading (with -watch)")
	flag.Parse()

	if *pluginsDir == "" {
		log.Fatalf("loadorder-inspect: -plugins-dir is required")
	}

	id, ok := gameNames[*game]
	if !ok {
		log.Fatalf("loadorder-inspect: unrecognized -game %q", *game)
	}

	settings, err := gamesettings.New(id, *pluginsDir, *localAppData)
	if err != nil {
		log.Fatalf("loadorder-inspect: %v", err)
	}

	dbPath := *cacheDB
	if dbPath == "" {
		base := *localAppData
		if base == "" {
			base = *pluginsDir
		}
		dbPath = filepath.Join(base, "loadorder-cache.db")
	}
	cache, err := header.NewCache(dbPath)
	if err != nil {
		log.Fatalf("loadorder-inspect: %v", err)
	}
	defer cache.Close()

	parser := header.NewParser(cache)
	lo, err := loadorder.New(settings, parser)
	if err != nil {
		log.Fatalf("loadorder-inspect: %v", err)
	}

	ctx := context.Background()
	if err := lo.Load(ctx); err != nil {
		log.Fatalf("loadorder-inspect: load: %v", err)
	}
	printOrder(settings, lo)

	if !*watch {
		return
	}

	w, err := fswatch.New(settings.PluginsDirectory(), []string{settings.LoadOrderFile(), settings.ActivePluginsFile()}, *debounce)
	if err != nil {
		log.Fatalf("loadorder-inspect: watch: %v", err)
	}
	defer w.Close()

	w.OnError = func(err error) {
		log.Printf("loadorder-inspect: watch error: %v", err)
	}
	w.OnChange = func() {
		if err := lo.ReloadChangedPlugins(ctx); err != nil {
			log.Printf("loadorder-inspect: reload: %v", err)
			return
		}
		printOrder(settings, lo)
	}
	w.Start()

	log.Printf("watching %s for changes, press Ctrl+C to stop", settings.PluginsDirectory())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func printOrder(settings *gamesettings.Settings, lo *loadorder.LoadOrder) {
	log.Printf("%s: %d plugins, method %s", settings.ID(), lo.Len(), settings.Method())
	for i, name := range lo.PluginNames() {
		marker := " "
		if lo.IsActive(name) {
			marker = "*"
		}
		fmt.Printf("%s %3d %s\n", marker, i, name)
	}
}
