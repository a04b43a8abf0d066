package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chaz8081/fastpair-seeker/internal/ble"
	"github.com/chaz8081/fastpair-seeker/internal/ble/advert"
	"github.com/chaz8081/fastpair-seeker/internal/config"
	"github.com/chaz8081/fastpair-seeker/internal/console"
	"github.com/chaz8081/fastpair-seeker/internal/discovery"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/fastpair-seeker/config.yaml)")
	debug := flag.Bool("debug", false, "enable debug logging")
	initConfig := flag.Bool("init", false, "write the default config file and exit")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
		} else {
			log.Printf("Wrote default config to %s", path)
		}
		return
	}

	// Load configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	level := config.ParseLogLevel(cfg.LogLevel)
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	printBanner(cfg)

	serviceUUID, _ := cfg.ServiceUUIDValue()

	// Platform: advertisement source, capability query, device factory
	p, err := openPlatform(cfg)
	if err != nil {
		log.Fatalf("bluetooth: %v", err)
	}
	defer p.Close()

	caps, err := ble.CheckCapabilities(p.capabilities)
	if err != nil {
		log.Fatalf("bluetooth: %v", err)
	}
	slog.Debug("[MAIN] adapter capabilities", "le", caps.LE, "central", caps.CentralRole, "extended", caps.ExtendedAdvertising)

	bridge := ble.NewBridge(p.source, ble.BridgeOptions{
		BufferSize: cfg.Scan.BufferSize,
		Scan: ble.ScanOptions{
			Active:        cfg.Scan.Active,
			AllowExtended: cfg.Scan.AllowExtended && caps.ExtendedAdvertising,
		},
	})
	defer bridge.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	catalogue := discovery.NewCatalogue()
	var cons *console.Console
	loop := discovery.NewLoop(catalogue, p.factory, discovery.Options{
		ServiceUUID:  serviceUUID,
		OnDiscovered: func(e discovery.Entry) { cons.Announce(e) },
	})

	scan, err := bridge.Start()
	if err != nil {
		log.Fatalf("bluetooth: %v", err)
	}
	stopScan := func() {
		if err := bridge.Stop(scan); err != nil && !errors.Is(err, ble.ErrNotScanning) {
			slog.Warn("[MAIN] stop scan failed", "error", err)
		}
	}

	cons = console.New(os.Stdin, os.Stdout, catalogue, loop, console.Options{
		Prompt: console.IsInteractive(os.Stdin),
		Stop:   stopScan,
	})

	if cfg.Scan.Duration > 0 {
		timer := time.AfterFunc(cfg.Scan.Duration, stopScan)
		defer timer.Stop()
	}

	// Discovery in the background
	discoveryDone := make(chan struct{})
	go func() {
		defer close(discoveryDone)
		if err := loop.Run(ctx, scan); err != nil {
			slog.Error("[MAIN] discovery stopped", "error", err)
		}
		cons.Done()
	}()

	// User input in the background
	consoleDone := make(chan error, 1)
	go func() { consoleDone <- cons.Run(ctx) }()

	// Signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Scanning for Fast Pair devices (service %s). Enter an index to pair, help for commands.", advert.FormatUUID16(serviceUUID))

	inputClosed, scanFinished := false, false
	for {
		select {
		case sig := <-sigCh:
			log.Printf("Received %s, shutting down...", sig)
			return

		case err := <-consoleDone:
			consoleDone = nil
			if errors.Is(err, console.ErrQuit) {
				log.Println("Goodbye!")
				return
			}
			if err != nil {
				slog.Warn("[MAIN] console stopped", "error", err)
			}
			inputClosed = true
			if scanFinished {
				return
			}

		case <-discoveryDone:
			discoveryDone = nil
			scanFinished = true
			if inputClosed {
				return
			}
		}
	}
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	cfg, err := config.LoadOrDefault(defaultPath)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
	}
	return cfg, nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	fmt.Println("=== fastpair-seeker ===")
	fmt.Printf("  Adapter: %s\n", cfg.Adapter)
	fmt.Printf("  Service: %s\n", cfg.ServiceUUID)
	fmt.Printf("  Scan:    active=%t extended=%t buffer=%d\n", cfg.Scan.Active, cfg.Scan.AllowExtended, cfg.Scan.BufferSize)
	if cfg.Scan.Duration > 0 {
		fmt.Printf("  Stop:    after %s\n", cfg.Scan.Duration)
	}
	fmt.Printf("  Agent:   %s\n", cfg.Pairing.AgentCapability)
	fmt.Printf("  Log:     %s\n", cfg.LogLevel)
	fmt.Println("=======================")
}
