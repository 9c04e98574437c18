// ABOUTME: CLI entrypoint for the node graph engine with server, validate, and eval modes.
// ABOUTME: Wires together the session store, snapshot library, HTTP server, and signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/2389-research/nodegraph/editor"
	"github.com/2389-research/nodegraph/graph"
	"github.com/2389-research/nodegraph/nodes"
	"github.com/2389-research/nodegraph/store"
)

var version = "dev"

// config holds all CLI configuration parsed from flags and positional arguments.
type config struct {
	serverMode   bool
	validateOnly bool
	port         int
	configPath   string
	dataDir      string
	verbose      bool
	showVersion  bool
	snapshotFile string
}

func main() {
	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("nodegraph %s\n", version)
		os.Exit(0)
	}

	os.Exit(run(cfg))
}

// parseFlags parses command-line flags and returns a populated config.
func parseFlags() config {
	var cfg config

	fs := flag.NewFlagSet("nodegraph", flag.ContinueOnError)
	fs.BoolVar(&cfg.serverMode, "server", false, "Start HTTP server mode")
	fs.IntVar(&cfg.port, "port", 0, "Server port (default: 2389)")
	fs.BoolVar(&cfg.validateOnly, "validate", false, "Validate a snapshot file without evaluating")
	fs.StringVar(&cfg.configPath, "config", "", "Config file path (default: $XDG_CONFIG_HOME/nodegraph/config.yaml)")
	fs.StringVar(&cfg.dataDir, "data-dir", "", "Data directory for the graph library (default: $XDG_DATA_HOME/nodegraph)")
	fs.BoolVar(&cfg.verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		printHelp(os.Stderr, version)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if fs.NArg() > 0 {
		cfg.snapshotFile = fs.Arg(0)
	}

	return cfg
}

// run dispatches to the appropriate mode based on the config.
// Returns an exit code: 0 for success, 1 for failure.
func run(cfg config) int {
	if cfg.serverMode {
		return runServer(cfg)
	}

	if cfg.snapshotFile == "" {
		printHelp(os.Stderr, version)
		return 0
	}

	if cfg.validateOnly {
		return validateSnapshot(cfg)
	}

	return evalSnapshot(cfg)
}

// resolveConfig loads the optional config file and merges flag overrides.
func resolveConfig(cfg config) (fileConfig, error) {
	path := cfg.configPath
	explicit := path != ""
	if !explicit {
		var err error
		path, err = defaultConfigPath()
		if err != nil {
			return fileConfig{}, err
		}
	}

	fc, err := loadConfigFile(path, explicit)
	if err != nil {
		return fileConfig{}, err
	}

	if cfg.port != 0 {
		fc.Port = cfg.port
	}
	if cfg.dataDir != "" {
		fc.DataDir = cfg.dataDir
	}
	if fc.Port == 0 {
		fc.Port = 2389
	}
	if fc.MaxSessions == 0 {
		fc.MaxSessions = 100
	}
	if fc.DataDir == "" {
		fc.DataDir, err = defaultDataDir()
		if err != nil {
			return fileConfig{}, err
		}
	}
	return fc, nil
}

// runServer starts the HTTP editing server.
func runServer(cfg config) int {
	fc, err := resolveConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	ttl, err := fc.sessionTTL()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	lib, err := store.OpenLibrary(fc.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer lib.Close()
	if err := lib.Rebuild(); err != nil {
		log.Printf("warning: rebuild library index: %v", err)
	}

	sessions := editor.NewStore(nodes.DefaultRegistry(), fc.MaxSessions, ttl, fc.HistoryLimit)
	stopCleanup := sessions.StartCleanup(5 * time.Minute)
	defer stopCleanup()

	server := editor.NewServer(sessions, editor.WithLibrary(lib))

	addr := fmt.Sprintf("127.0.0.1:%d", fc.Port)

	// Set up context with signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: server,
	}

	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	log.Printf("listening on %s (library: %s)", addr, fc.DataDir)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	return 0
}

// validateSnapshot loads and deserializes a snapshot file without evaluating it.
func validateSnapshot(cfg config) int {
	snap, err := store.Load(cfg.snapshotFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	g, err := graph.FromSnapshot(snap, nodes.DefaultRegistry().Resolver())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if cfg.verbose {
		fmt.Fprintf(os.Stderr, "graph %s: %d nodes, %d edges\n",
			g.SID(), len(g.Nodes()), len(g.Edges()))
	}
	fmt.Println("Snapshot is valid.")
	return 0
}

// evalSnapshot loads a snapshot, evaluates every node, and prints terminal
// node values.
func evalSnapshot(cfg config) int {
	snap, err := store.Load(cfg.snapshotFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	g, err := graph.FromSnapshot(snap, nodes.DefaultRegistry().Resolver())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	hasInvalid := false
	for _, n := range g.Nodes() {
		if _, err := n.Evaluate(); err != nil {
			hasInvalid = true
			if cfg.verbose {
				fmt.Fprintf(os.Stderr, "[invalid] %s (%s): %v\n", n.Title(), n.SID(), err)
			}
		}
	}

	// Terminal nodes are the graph's results: nothing consumes them.
	for _, n := range g.Nodes() {
		if len(n.ChildNodes()) > 0 {
			continue
		}
		if n.Invalid() {
			fmt.Printf("%s: invalid\n", n.Title())
			continue
		}
		fmt.Printf("%s: %v\n", n.Title(), n.Value())
	}

	if hasInvalid {
		return 1
	}
	return 0
}
