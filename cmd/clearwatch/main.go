// Command clearwatch watches the clears spreadsheet and announces what
// changed since the previous run.
//
//	clearwatch -config clearwatch.yaml            one run, then exit
//	clearwatch -interval 10m -listen :8085        run forever, serve /healthz
//	clearwatch -dry-run                           print the notices, send nothing
//	clearwatch -mcp stdio                         serve the MCP tools on stdio
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/clearwatch/channels"
	"github.com/hazyhaar/clearwatch/monitor"
	"github.com/hazyhaar/clearwatch/notify"
	"github.com/hazyhaar/clearwatch/safenet"
	"github.com/hazyhaar/clearwatch/sheets"
	"github.com/hazyhaar/clearwatch/store"
	"github.com/hazyhaar/clearwatch/tiers"
)

var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("CLEARWATCH_CONFIG"), "YAML config file")
	once := flag.Bool("once", false, "run once and exit, even when an interval is configured")
	interval := flag.Duration("interval", 0, "run every interval instead of once")
	listen := flag.String("listen", "", "serve the status API on this address")
	mcpTransport := flag.String("mcp", "", `serve MCP tools ("stdio")`)
	dryRun := flag.Bool("dry-run", false, "log the notices of the next run without sending or saving")
	flag.Parse()

	cfg, err := monitor.Load(*configPath)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	if *interval > 0 {
		cfg.Service.Interval = *interval
	}
	if *once {
		cfg.Service.Interval = 0
	}
	if *listen != "" {
		cfg.Service.Listen = *listen
	}

	// Logging. stdout belongs to the MCP stdio transport when it is used.
	var out io.Writer = os.Stdout
	if *mcpTransport == "stdio" {
		out = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.Service.LogLevel)}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	creds, err := cfg.Credentials()
	if err != nil {
		slog.Error("credentials", "error", err)
		os.Exit(1)
	}
	client, err := sheets.NewClient(ctx, creds)
	if err != nil {
		slog.Error("sheets client", "error", err)
		os.Exit(1)
	}

	deps := monitor.Deps{
		Source: sheets.NewPageSource(client, cfg.Source.SpreadsheetID, cfg.Source.ClearsPage).Rows,
		Layout: cfg.Layout,
		Logger: logger,
	}

	// State: the local database when configured, the state sheet otherwise.
	if cfg.State.DB != "" {
		st, err := store.Open(cfg.State.DB)
		if err != nil {
			slog.Error("state db", "error", err)
			os.Exit(1)
		}
		defer st.Close()
		deps.State = st
		deps.Runs = st
	} else {
		deps.State = sheets.NewStateSheet(client, cfg.State.SpreadsheetID, cfg.State.Page)
	}

	if cfg.Source.TiersPage != "" {
		tierPage := sheets.NewPageSource(client, cfg.Source.SpreadsheetID, cfg.Source.TiersPage)
		deps.Tiers = func() *tiers.Lookup { return tiers.New(tierPage.Rows, cfg.Tiers) }
	}

	regOpts := []channels.RegistryOption{channels.WithLogger(logger), channels.WithDelivery(cfg.Delivery)}
	if !cfg.Delivery.AllowPrivateTargets {
		regOpts = append(regOpts, channels.WithHTTPClient(safenet.Client(30*time.Second)))
	}
	registry := channels.NewRegistry(regOpts...)
	specs := cfg.ChannelSpecs()
	if *dryRun {
		specs = []monitor.ChannelConfig{{Name: "dry-run", Role: monitor.RolePrimary, Platform: "log"}}
	}
	notifier, err := monitor.BuildNotifier(registry, specs,
		notify.WithLogger(logger), notify.WithLimit(limitOrDefault(cfg.NotifyLimit)))
	if err != nil {
		slog.Error("channels", "error", err)
		os.Exit(1)
	}
	if notifier != nil {
		deps.Notifier = notifier
	}

	m := monitor.New(deps)

	if *dryRun {
		notices, err := m.Preview(ctx)
		if err != nil {
			slog.Error("preview", "error", err)
			os.Exit(1)
		}
		if len(notices) == 0 {
			slog.Info("no changes detected since last run")
			return
		}
		if _, err := notifier.Notify(ctx, notices); err != nil {
			slog.Error("preview delivery", "error", err)
			os.Exit(1)
		}
		return
	}

	// Optional MCP stdio.
	if *mcpTransport == "stdio" {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "clearwatch",
			Version: version,
		}, nil)
		m.RegisterMCP(mcpSrv)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("MCP stdio", "error", err)
			}
			cancel()
		}()
	} else if *mcpTransport != "" {
		slog.Error("unknown MCP transport", "transport", *mcpTransport)
		os.Exit(1)
	}

	// Optional status API.
	var srv *http.Server
	if cfg.Service.Listen != "" {
		srv = &http.Server{
			Addr:              cfg.Service.Listen,
			Handler:           m.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			slog.Info("server starting", "addr", cfg.Service.Listen)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("server error", "error", err)
				os.Exit(1)
			}
		}()
	}

	switch {
	case cfg.Service.Interval > 0:
		slog.Info("watching", "interval", cfg.Service.Interval.String(), "version", version)
		m.Run(ctx, cfg.Service.Interval)
	case *mcpTransport != "":
		<-ctx.Done()
	default:
		if _, err := m.RunOnce(ctx); err != nil {
			os.Exit(1)
		}
		if srv != nil {
			<-ctx.Done()
		}
	}

	if srv != nil {
		slog.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown", "error", err)
		}
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return notify.DefaultLimit
	}
	return n
}
