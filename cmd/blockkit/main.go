package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/webtero/blockkit/internal/config"
	"github.com/webtero/blockkit/internal/server"
	"github.com/webtero/blockkit/pkg/renderers/tui"
	"github.com/webtero/blockkit/pkg/schema"
	"github.com/webtero/blockkit/pkg/versions"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "blockkit: logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "edit":
		err = runEdit(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, tui.ErrAborted) {
			os.Exit(130)
		}
		zap.S().Errorw("command failed", "error", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: blockkit <serve|edit> [flags]")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// runEdit opens an interactive editing session against a settings instance
// and saves the result as a new version.
func runEdit(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	configPath := fs.String("config", "", "configuration file path")
	instance := fs.String("instance", "", "settings instance name")
	blockType := fs.String("type", "", "block type (defaults to the instance name)")
	author := fs.String("author", "cli", "author recorded on the saved version")
	fs.Parse(args)

	if *instance == "" {
		return fmt.Errorf("blockkit: -instance is required")
	}
	if *blockType == "" {
		*blockType = *instance
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	registry := schema.NewRegistry()
	if cfg.DefinitionsDir != "" {
		err = schema.LoadFS(os.DirFS(cfg.DefinitionsDir), registry)
	} else {
		err = schema.LoadFS(schema.EmbeddedDefinitions(), registry)
	}
	if err != nil {
		return err
	}
	block, err := registry.Get(*blockType)
	if err != nil {
		return err
	}

	store, err := versions.NewSQLiteStore(filepath.Join(cfg.DataDir, "options.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	current, err := store.ActiveValues(ctx, *instance)
	if err != nil {
		return err
	}

	editor := tui.NewEditor()
	values, err := editor.Edit(ctx, block.Fields, current)
	if err != nil {
		return err
	}

	snap, err := store.Save(ctx, *instance, values, *author)
	if err != nil {
		return err
	}
	fmt.Printf("Saved version %d for %s\n", snap.Timestamp, *instance)
	return nil
}
