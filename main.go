package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/pgtools/internal/api"
	"github.com/hazyhaar/pgtools/internal/config"
	"github.com/hazyhaar/pgtools/internal/db"
	"github.com/hazyhaar/pgtools/internal/mcp"
	"github.com/hazyhaar/pgtools/internal/session"
	"github.com/hazyhaar/pgtools/internal/tools"
	"github.com/hazyhaar/pgtools/pkg/audit"
)

var version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stdio":
		cmdStdio(os.Args[2:])
	case "http":
		cmdHTTP(os.Args[2:])
	case "version":
		fmt.Printf("pgtools %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`pgtools — PostgreSQL tool server for MCP clients

Usage:
  pgtools stdio [--config config.toml]
  pgtools http  [--config config.toml] [--port 3003] [--database-url URL]
  pgtools version
  pgtools help

Commands:
  stdio     Serve one session over stdin/stdout
  http      Serve many sessions over HTTP/SSE
  version   Print version
  help      Show this help

The connection string comes from DATABASE_URL, the config file, or
--database-url (http only); it is required.`)
}

// runtime is everything both transports share: pool, session store, audit.
type runtime struct {
	pool     *db.DB
	store    *session.Store
	auditLog audit.Logger
}

func setup(ctx context.Context, cfg *config.Config) (*runtime, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("no connection string: set DATABASE_URL or database.url in the config")
	}

	pool, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	rt := &runtime{
		pool:  pool,
		store: session.NewStore(pool),
	}
	if cfg.Audit.Enabled {
		auditLog, err := audit.Open(cfg.Audit.Path)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		rt.auditLog = auditLog
	}
	return rt, nil
}

func (rt *runtime) close() {
	rt.store.CloseAll()
	rt.pool.Close()
	if rt.auditLog != nil {
		rt.auditLog.Close()
	}
}

func cmdStdio(args []string) {
	fs := flag.NewFlagSet("stdio", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer rt.close()

	// stdout carries the wire protocol; everything human-facing goes to stderr.
	sess := rt.store.Create(session.KindStdio)
	reg := tools.CoreRegistry(rt.auditLog)
	srv := mcp.NewServer(reg, sess.Exec, version)

	slog.Info("pgtools stdio server started", "session", sess.ID)
	errLogger := log.New(os.Stderr, "[pgtools] ", log.LstdFlags)
	if err := mcpserver.ServeStdio(srv, mcpserver.WithErrorLogger(errLogger)); err != nil && !errors.Is(err, context.Canceled) {
		rt.close()
		log.Fatalf("stdio server: %v", err)
	}
	slog.Info("stdio stream closed", "session", sess.ID)
}

func cmdHTTP(args []string) {
	fs := flag.NewFlagSet("http", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config.toml")
	port := fs.Int("port", 0, "listen port (overrides config, default 3003)")
	databaseURL := fs.String("database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *databaseURL != "" {
		cfg.Database.URL = *databaseURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := setup(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer rt.close()

	handler := api.New(rt.store, tools.HTTPRegistry(rt.auditLog))
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.Handler(),
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	slog.Info("pgtools HTTP server listening", "port", cfg.Server.Port)
	slog.Info("connect via", "url", fmt.Sprintf("http://localhost:%d/mcp", cfg.Server.Port))
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		rt.close()
		log.Fatalf("server error: %v", err)
	}
}
