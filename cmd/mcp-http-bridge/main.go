// Command mcp-http-bridge relays newline-delimited JSON-RPC 2.0 from stdin to
// an HTTP endpoint and writes normalized responses to stdout. All diagnostics
// go to stderr; stdout carries protocol lines only.
//
// Usage:
//
//	mcp-http-bridge [--secret s] [--log-level l] <endpoint-url>
//	mcp-http-bridge install --config <path> [--name n] [--secret s] <endpoint-url>
//	mcp-http-bridge uninstall --config <path> [--name n]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ggoodman/mcp-http-bridge/bridge"
	"github.com/ggoodman/mcp-http-bridge/internal/config"
	"github.com/ggoodman/mcp-http-bridge/internal/logctx"
	"github.com/ggoodman/mcp-http-bridge/provision"
)

const defaultServerName = "mcp-http-bridge"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 {
		switch args[0] {
		case "install":
			return runInstall(args[1:])
		case "uninstall":
			return runUninstall(args[1:])
		}
	}

	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-http-bridge: %v\n", err)
		fmt.Fprintln(os.Stderr, "usage: mcp-http-bridge [--secret s] [--log-level l] <endpoint-url>")
		return 2
	}

	log := slog.New(logctx.Handler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}),
	})

	opts := []bridge.Option{bridge.WithLogger(log)}
	if cfg.HasSecret {
		opts = append(opts, bridge.WithBasicAuth(cfg.Secret))
	}

	h, err := bridge.New(cfg.Endpoint, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-http-bridge: %v\n", err)
		return 2
	}

	if err := h.Serve(context.Background()); err != nil {
		log.Error("relay terminated", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func runInstall(args []string) int {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to the host application's config file")
	name := fs.String("name", defaultServerName, "server name to register")
	secret := fs.String("secret", "", "secret forwarded to the relay at launch")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	endpoint := fs.Arg(0)
	if *cfgPath == "" || endpoint == "" {
		fmt.Fprintln(os.Stderr, "usage: mcp-http-bridge install --config <path> [--name n] [--secret s] <endpoint-url>")
		return 2
	}

	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-http-bridge: resolve executable: %v\n", err)
		return 1
	}

	var entryArgs []string
	secretSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "secret" {
			secretSet = true
		}
	})
	if secretSet {
		entryArgs = append(entryArgs, "--secret", *secret)
	}
	entryArgs = append(entryArgs, endpoint)

	if err := provision.Install(*cfgPath, *name, provision.Entry{Command: exe, Args: entryArgs}); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-http-bridge: %v\n", err)
		return 1
	}
	return 0
}

func runUninstall(args []string) int {
	fs := flag.NewFlagSet("uninstall", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to the host application's config file")
	name := fs.String("name", defaultServerName, "server name to remove")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "usage: mcp-http-bridge uninstall --config <path> [--name n]")
		return 2
	}

	if err := provision.Uninstall(*cfgPath, *name); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-http-bridge: %v\n", err)
		return 1
	}
	return 0
}
