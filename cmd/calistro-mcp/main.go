// calistro-mcp exposes the training data over the Model Context Protocol on
// stdio. It runs in one of three modes: against the server database (-config),
// against a standalone local database file (-data), or against a remote
// server's REST API (-server plus -token).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/calistro/calistro/internal/client"
	"github.com/calistro/calistro/internal/config"
	"github.com/calistro/calistro/internal/localdb"
	"github.com/calistro/calistro/internal/mcp"
	"github.com/calistro/calistro/internal/storage"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (direct database mode)")
	dataDir := flag.String("data", "", "local data directory (embedded database mode)")
	serverURL := flag.String("server", "", "base URL of a remote server (remote mode)")
	token := flag.String("token", "", "bearer token for remote mode")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds mcp.DataSource
	switch {
	case *serverURL != "":
		if *token == "" {
			log.Error("remote mode requires -token")
			os.Exit(1)
		}
		ds = client.New(*serverURL, *token)
		log.Info("remote mode", "server", *serverURL)

	case *configPath != "":
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		db, err := storage.New(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Error("failed to connect database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		log.Info("database mode", "host", cfg.Database.Host)

	default:
		dir := *dataDir
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				log.Error("cannot resolve home directory", "error", err)
				os.Exit(1)
			}
			dir = home + "/.calistro"
		}
		db, err := localdb.Open(dir)
		if err != nil {
			log.Error("failed to open local database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		ds = db
		log.Info("local mode", "dir", dir)
	}

	s := mcp.New(ds, Version, log)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
