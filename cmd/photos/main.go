// Package main runs the photo library shell.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kimhsiao/photolib/backend/internal/config"
	"github.com/kimhsiao/photolib/backend/internal/export"
	"github.com/kimhsiao/photolib/backend/internal/library"
	"github.com/kimhsiao/photolib/backend/internal/logging"
	"github.com/kimhsiao/photolib/backend/internal/media"
	"github.com/kimhsiao/photolib/backend/internal/search"
	"github.com/kimhsiao/photolib/backend/internal/store"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("photos v%s\n", Version)
		return
	}

	if err := run(*configPath, *envFile, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "photos: %v\n", err)
		os.Exit(1)
	}
}

// run opens the configured library, runs the shell until exit or end of
// input, then performs the final save.
func run(configPath, envFile string, in io.Reader, out, logOut io.Writer) error {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.InitWithFormat(logOut, level, logging.Format(cfg.LogFormat))
	// The global logger survives across runs; the configured level still applies.
	logging.Get().SetLevel(level)
	defer logging.Sync()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return err
	}
	logging.Info("Opened storage", map[string]interface{}{
		"backend":  cfg.Backend,
		"data_dir": cfg.DataDir,
	})

	lib, err := library.Open(store.New(backend), media.NewStockDir(cfg.StockDir))
	if err != nil {
		backend.Close()
		return err
	}

	archiver := export.NewArchiver(filepath.Join(cfg.DataDir, "exports"))
	NewShell(lib, search.NewEngine(loc), archiver, in, out).Run()

	if err := lib.Close(); err != nil {
		logging.Error("Final save failed", err)
		return err
	}
	logging.Info("Library closed")
	return nil
}
