package main

import (
	"context"
	"flag"
	"fmt"
	"lanchat/codec"
	"lanchat/domain"
	"lanchat/infrastructure/network"
	"lanchat/infrastructure/storage"
	"lanchat/internal"
	"lanchat/runtime"
	"lanchat/runtime/workers"
	"lanchat/ui"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Node terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, hands the terminal to the menu and shuts the
// node down once the operator quits or a signal is received.
// Deferred cleanups (badger, sequence lease) always run before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := applyFlags(&config, os.Args[1:]); err != nil {
		return exitConfig, err
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Key material
	if err := os.MkdirAll(config.DataDir, 0o700); err != nil {
		return exitRuntime, fmt.Errorf("data directory %s: %w", config.DataDir, err)
	}
	keyPair, err := codec.LoadOrCreateKeyPair(config.DataDir)
	if err != nil {
		return exitRuntime, fmt.Errorf("key pair provisioning failed: %w", err)
	}
	if fingerprint, err := keyPair.Fingerprint(); err == nil {
		logger.Info("Node key pair ready", "fingerprint", fingerprint)
	}
	messageCodec, err := codec.NewCodec(codec.NewFileSecretStore(config.DataDir))
	if err != nil {
		return exitRuntime, fmt.Errorf("codec init failed: %w", err)
	}

	// 3. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository, err := storage.NewMessageRepository(db, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = messageRepository.Close() }()

	directory := runtime.NewPeerDirectory(logger, storage.NewPeerRepository(db, logger))
	if err := directory.Load(); err != nil {
		return exitRuntime, fmt.Errorf("peer directory reload failed: %w", err)
	}

	if config.InspectPort != 0 {
		if _, err := internal.StartInspector(ctx, logger, db, config.InspectPort, nil); err != nil {
			logger.Warn("Inspector disabled", "error", err)
		}
	}

	// 4. Node & Menu
	menu := ui.NewMenu(os.Stdin, os.Stdout, true)
	node := runtime.NewNode(
		logger,
		runtime.Settings{
			Node:              domain.NodeConfig{DisplayName: config.NodeName, ListenPort: config.NodePort},
			TeamTag:           config.TeamTag,
			LocalIP:           network.LocalIP(config.AdvertiseIP),
			DiscoveryEnabled:  config.DiscoveryEnabled,
			DiscoveryPort:     config.DiscoveryPort,
			BroadcastTarget:   config.BroadcastTarget(),
			BroadcastInterval: config.BroadcastInterval,
			DedupWindow:       config.DiscoveryDedupWindow,
			LivenessInterval:  config.LivenessInterval,
			ProbeConcurrency:  config.ProbeConcurrency,
			DialTimeout:       config.DialTimeout,
			MaxFrameSize:      config.MaxFrameSize,
		},
		workers.NewSupervisor(logger, config.RestartInterval),
		messageCodec,
		directory,
		messageRepository,
		network.NewTCPProber(logger, config.ProbeTimeout, config.ProbeAttempts, config.ProbeBackoff),
		menu,
	)

	// 5. Start the loops
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := node.Start(ctx); err != nil {
			logger.Error("Node error", "error", err)
		}
	}()

	// 6. Menu in the foreground until quit, end of input or signal
	logger.Info("Node ready", "id", node.ID(), "name", config.NodeName, "peers", directory.Len())
	if err := menu.Run(ctx, node); err != nil {
		logger.Info("Shutdown signal received")
	}

	// 7. Graceful shutdown
	node.Stop()
	<-done
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

// applyFlags lets --name and --port override NODE_NAME and NODE_PORT.
func applyFlags(config *internal.Config, args []string) error {
	fs := flag.NewFlagSet("lanchat", flag.ContinueOnError)
	name := fs.String("name", config.NodeName, "Name of the peer")
	port := fs.Int("port", config.NodePort, "Port number for the peer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	config.NodeName = *name
	config.NodePort = *port
	return nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(filepath.Join(config.DataDir, "db"))

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.INFO)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}

	return options
}
