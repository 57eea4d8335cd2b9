//go:build ebiten

package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"walk-ca/internal/app"
	"walk-ca/internal/driver"
	"walk-ca/internal/logging"

	"github.com/hajimehoshi/ebiten/v2"
)

func main() {
	cfg := app.NewConfig()
	cfg.Bind(flag.CommandLine)
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if *configPath != "" {
		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
		if err := cfg.LoadFile(*configPath, func(name string) bool { return set[name] }); err != nil {
			log.Fatal(err)
		}
	}

	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)
	drv := driver.New(cfg.DriverConfig(), driver.WithLogger(logger))
	defer drv.Pause()

	game := app.New(drv, cfg, logger)
	w, h := game.WindowSize()

	ebiten.SetWindowTitle("walk-ca random walk")
	ebiten.SetWindowSize(w, h)

	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		log.Fatal(err)
	}
}
