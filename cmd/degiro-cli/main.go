package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"degiro/internal/config"
	"degiro/internal/util"
)

const version = "0.1.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: degiro-cli <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  login      Log in and print a reusable session\n")
	fmt.Fprintf(os.Stderr, "  client     Show the client profile\n")
	fmt.Fprintf(os.Stderr, "  cash       Show cash funds\n")
	fmt.Fprintf(os.Stderr, "  portfolio  Show positions\n")
	fmt.Fprintf(os.Stderr, "  orders     Show open orders (or the local journal with -journal)\n")
	fmt.Fprintf(os.Stderr, "  search     Search products by text\n")
	fmt.Fprintf(os.Stderr, "  buy        Place a buy order for a symbol\n")
	fmt.Fprintf(os.Stderr, "  sell       Place a sell order for a symbol\n")
	fmt.Fprintf(os.Stderr, "  cancel     Cancel a journaled order by local id\n")
	fmt.Fprintf(os.Stderr, "  snapshot   Write today's positions to Parquet\n")
	fmt.Fprintf(os.Stderr, "\nConfiguration is read from $DEGIRO_CONFIG (default config/degiro.yaml).\n")
}

func main() {
	flag.Usage = usage

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	name, args := os.Args[1], os.Args[2:]

	if name == "version" {
		fmt.Printf("degiro-cli %s\n", version)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", name)
		usage()
		os.Exit(1)
	}

	cfgPath := "config/degiro.yaml"
	if p := os.Getenv("DEGIRO_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.LogLevel(), cfg.Logging.Format)
	util.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{cfg: cfg, log: logger}
	defer a.close()

	runErr := cmd(ctx, a, args)
	writeMetrics(cfg.Metrics.TextfilePath, logger)
	if runErr != nil {
		logger.Error("command failed", "command", name, "error", runErr)
		a.close()
		os.Exit(1)
	}
}

// writeMetrics exports the default registry for the node exporter textfile
// collector.
func writeMetrics(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		logger.Warn("writing metrics textfile", "path", path, "error", err)
	}
}
