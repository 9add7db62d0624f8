package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/monify-labs/hostwatch/internal/agent"
	"github.com/monify-labs/hostwatch/internal/config"
	"github.com/monify-labs/hostwatch/internal/sink"
	"github.com/monify-labs/hostwatch/internal/store"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "run":
		runAgent(args)
	case "snapshot":
		showSnapshot(args)
	case "storage":
		showStorage(args)
	case "version":
		showVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hostwatch - Host Telemetry Collector

Usage:
  hostwatch <command> [flags]

Commands:
  run       Collect continuously and write snapshots to the sink
  snapshot  Collect once and print the full snapshot as JSON
  storage   Load and print the disk and volume inventory
  version   Show version information
  help      Show this help message

Common Flags:
  --config PATH    Configuration file (default: /etc/hostwatch/config.yaml)
  --env-file PATH  Environment file (default: /etc/hostwatch/env)

Environment Variables:
  HOSTWATCH_DEBUG              Enable debug logging (true/1)
  HOSTWATCH_INTERVAL           Sampling interval (e.g. 1s, 500ms)
  HOSTWATCH_INVENTORY_BACKEND  Inventory backend: auto, profiler or ghw

Examples:
  hostwatch run --output /var/lib/hostwatch/snapshots.jsonl
  hostwatch run --output /var/lib/hostwatch/snapshots.jsonl.zst --compress zstd
  hostwatch snapshot --timeout 20s
  hostwatch snapshot --summary
  hostwatch storage`)
}

// commonFlags are accepted by every collecting command
type commonFlags struct {
	configPath string
	envFile    string
}

func newFlagSet(name string) (*pflag.FlagSet, *commonFlags) {
	common := &commonFlags{}
	flags := pflag.NewFlagSet(name, pflag.ExitOnError)
	flags.StringVar(&common.configPath, "config", "", "configuration file")
	flags.StringVar(&common.envFile, "env-file", config.EnvFilePath, "environment file")
	return flags, common
}

// setup loads the environment file and configuration and builds the logger
func setup(common *commonFlags) (*config.Config, *logrus.Entry) {
	if err := config.LoadEnvFile(common.envFile); err != nil {
		fmt.Printf("Warning: Failed to load env file: %v\n", err)
	}

	cfg, err := config.Load(common.configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Log)
	return cfg, logrus.NewEntry(logger).WithField("version", config.Version)
}

func newAgent(cfg *config.Config, log *logrus.Entry) *agent.Agent {
	a, err := agent.New(cfg, log)
	if err != nil {
		fmt.Printf("Error creating agent: %v\n", err)
		os.Exit(1)
	}
	return a
}

func runAgent(args []string) {
	flags, common := newFlagSet("run")
	output := flags.StringP("output", "o", "", "snapshot output file (default: stdout)")
	compression := flags.String("compress", "", "compress the snapshot stream: none, gzip or zstd")
	_ = flags.Parse(args)

	cfg, log := setup(common)
	if flags.Changed("output") {
		cfg.Sink.Output = *output
	}
	if flags.Changed("compress") {
		cfg.Sink.Compression = *compression
	}

	codec, err := sink.ParseCompression(cfg.Sink.Compression)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if codec != sink.CompressionNone && cfg.Sink.Output == "" && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Println("Error: refusing to write compressed snapshots to a terminal, use --output")
		os.Exit(1)
	}

	out, err := sink.OpenJSONSink(cfg.Sink.Output, codec)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.WithError(err).Error("Failed to close sink")
		}
	}()

	a := newAgent(cfg, log)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	changes := a.Store().Subscribe()
	defer a.Store().Unsubscribe(changes)

	log.WithFields(logrus.Fields{
		"interval":    cfg.Interval,
		"output":      cfg.Sink.Output,
		"compression": codec,
	}).Info("Starting hostwatch")
	a.Initialize(ctx)
	defer a.Stop()

	// Emit at most one snapshot per interval; changes arriving while
	// waiting are folded into the next snapshot
	limiter := rate.NewLimiter(rate.Every(cfg.Interval), 1)

	for {
		select {
		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				log.Info("Received SIGHUP, reloading overview and storage")
				a.RefreshOverview(ctx)
				a.FetchStorageIfNeeded(true)
			default:
				log.Info("Received shutdown signal")
				return
			}

		case _, ok := <-changes:
			if !ok {
				return
			}
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			drain(changes)

			snap := a.Snapshot()
			if err := out.Write(ctx, &snap); err != nil {
				log.WithError(err).Error("Failed to write snapshot")
			}
		}
	}
}

// drain discards queued change notifications
func drain(changes <-chan store.Slot) {
	for {
		select {
		case <-changes:
		default:
			return
		}
	}
}

func showSnapshot(args []string) {
	flags, common := newFlagSet("snapshot")
	timeout := flags.Duration("timeout", time.Minute, "maximum time to wait for inventory")
	summary := flags.Bool("summary", false, "print a human readable summary instead of JSON")
	_ = flags.Parse(args)

	cfg, log := setup(common)
	a := newAgent(cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Initialize(ctx)

	waitBackground(a, *timeout, log)
	// The first usage reading needs one sampling interval
	time.Sleep(cfg.Interval)

	snap := a.Snapshot()
	a.Stop()

	if *summary {
		printSummary(snap)
		return
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func showStorage(args []string) {
	flags, common := newFlagSet("storage")
	timeout := flags.Duration("timeout", time.Minute, "maximum time to wait for inventory")
	_ = flags.Parse(args)

	cfg, log := setup(common)
	cfg.USB.Enabled = false
	a := newAgent(cfg, log)
	defer a.Stop()

	a.FetchStorageIfNeeded(true)
	waitBackground(a, *timeout, log)

	snap := a.Snapshot()
	fmt.Printf("Storage: %s\n\n", snap.StorageState)

	fmt.Println("Disks")
	fmt.Println("-----")
	for _, disk := range snap.Disks {
		fmt.Printf("%s (%s) %s %s\n", disk.Name, deref(disk.BSDName), deref(disk.Model), formatBytes(disk.Size))
		for _, partition := range disk.Partitions {
			fmt.Printf("  %-24s %-10s %-8s %10s free of %s\n",
				partition.Name, deref(partition.BSDName), deref(partition.FileSystem),
				formatBytes(partition.Free), formatBytes(partition.Size))
			if partition.MountPoint != nil {
				fmt.Printf("  %-24s mounted at %s\n", "", *partition.MountPoint)
			}
		}
	}

	fmt.Println("")
	fmt.Println("Mounted Volumes")
	fmt.Println("---------------")
	for _, volume := range snap.MountedVolumes {
		fmt.Printf("%-24s %-32s %10s free of %s\n",
			volume.Name, deref(volume.MountPoint), formatBytes(volume.Free), formatBytes(volume.Size))
	}
}

func printSummary(snap models.Snapshot) {
	usage := models.Pending
	if snap.Processor.Usage != nil {
		usage = fmt.Sprintf("%.1f%%", *snap.Processor.Usage*100)
	}

	fmt.Printf("Host:      %s (%s)\n", snap.Host.Hostname, snap.Host.SerialNumber)
	fmt.Printf("OS:        %s, kernel %s\n", snap.Host.OSVersion, snap.Host.KernelRelease)
	fmt.Printf("Uptime:    %s\n", models.FormatUptime(snap.Host.Uptime))
	fmt.Printf("Processor: %s, %d cores, %s busy\n", snap.Processor.Brand, snap.Processor.PhysicalCores, usage)
	fmt.Printf("Memory:    %s of %s\n", humanize.Bytes(snap.Memory.Used), humanize.Bytes(snap.Memory.Total))

	for _, display := range snap.Displays {
		suffix := ""
		if display.Main {
			suffix = " (main)"
		}
		fmt.Printf("Display:   %s %s @%gx%s\n", display.Name, display.Resolution, display.Scale, suffix)
	}
	for _, gpu := range snap.GPUs {
		fmt.Printf("GPU:       %s\n", gpu)
	}
	for _, volume := range snap.MountedVolumes {
		fmt.Printf("Volume:    %s %s free of %s\n", deref(volume.MountPoint), formatBytes(volume.Free), formatBytes(volume.Size))
	}
	for _, device := range snap.USBDevices {
		fmt.Printf("USB:       %s [%s:%s]\n", deref(device.Name), hexID(device.VendorID), hexID(device.ProductID))
	}
}

func hexID(id *int) string {
	if id == nil {
		return "----"
	}
	return fmt.Sprintf("%04x", *id)
}

// waitBackground waits for the background inventory tasks, giving up
// after timeout
func waitBackground(a *agent.Agent, timeout time.Duration, log *logrus.Entry) {
	done := make(chan struct{})
	go func() {
		a.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.WithField("timeout", timeout).Warn("Inventory still loading, printing partial results")
	}
}

func deref(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "-"
	}
	return *s
}

func formatBytes(v *uint64) string {
	if v == nil {
		return "-"
	}
	return humanize.Bytes(*v)
}

func showVersion() {
	fmt.Printf("hostwatch v%s\n", config.Version)
	fmt.Printf("Commit: %s\n", config.Commit)
	fmt.Printf("Build Date: %s\n", config.BuildDate)
}
