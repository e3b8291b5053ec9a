// Package main is the CLI entry point for actmon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/actmon/internal/config"
	"github.com/eliteGoblin/focusd/actmon/internal/daemon"
	"github.com/eliteGoblin/focusd/actmon/internal/domain"
	"github.com/eliteGoblin/focusd/actmon/internal/infra"
	"github.com/eliteGoblin/focusd/actmon/internal/policy"
	"github.com/eliteGoblin/focusd/actmon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "actmon",
	Short: "Activity monitor - reports what you are doing, closes what you shouldn't",
	Long: `actmon samples idle time, the foreground window and audio playback, and
reports new processes. Observations are written to stdout as one JSON object
per line for a parent process to consume. Logs go to stderr.

When a blocked application (League of Legends by default) is in the
foreground, actmon closes it, sweeps its helper processes and exits.`,
	Version:      Version,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sample activity and track processes until stopped",
	RunE:  runRun,
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Run only the activity sampling loop",
	RunE:  runActivity,
}

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "Run only the new-process tracker",
	RunE:  runProcesses,
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print one activity snapshot and exit (no enforcement)",
	RunE:  runSample,
}

var listCmd = &cobra.Command{
	Use:   "list [policy-id...]",
	Short: "List blocked applications and their keywords",
	RunE:  runList,
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show recent enforcement records",
	RunE:  runJournal,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath   string
	debug        bool
	jsonOutput   bool
	journalLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	journalCmd.Flags().IntVar(&journalLimit, "limit", 20, "Number of records to show (0 = all)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(activityCmd)
	rootCmd.AddCommand(processesCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(journalCmd)
	rootCmd.AddCommand(versionCmd)
}

// app holds the components shared by the long-running commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	sink    *infra.JSONEmitter
	pm      domain.ProcessManager
	blocked *policy.BlockList
	journal domain.Journal
	closers []func() error
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger := createLogger(debug)
	ignoreBrokenPipe()
	a := &app{
		cfg:     cfg,
		logger:  logger,
		sink:    infra.NewJSONEmitter(os.Stdout),
		pm:      infra.NewProcessManager(),
		blocked: policy.NewBlockList(buildPolicyStore(cfg)),
	}

	if cfg.Journal.Enabled {
		j, err := infra.OpenJournal(cfg.Journal.Dir)
		if err != nil {
			// Enforcement still works without the record.
			logger.Warn("journal unavailable", zap.String("dir", cfg.Journal.Dir), zap.Error(err))
		} else {
			a.journal = j
			a.closers = append(a.closers, j.Close)
		}
	}
	return a, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Debug("close failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) activityLoop() *daemon.ActivityLoop {
	probe := infra.NewPlatformProbe(a.cfg.Probe.SubProbeTimeout, a.logger)
	a.closers = append(a.closers, probe.Close)

	term := usecase.NewTerminator(a.pm, a.blocked,
		a.cfg.Terminator.GracePeriod, a.cfg.Terminator.PollInterval, a.logger)
	sampler := usecase.NewSampler(probe, a.blocked, term, a.sink, a.journal,
		a.cfg.Activity.CycleTimeout, a.logger)
	return daemon.NewActivityLoop(sampler, a.cfg.Activity.Interval, a.logger)
}

func (a *app) trackerLoop() *daemon.TrackerLoop {
	var lister domain.ProcessLister = a.pm
	if a.cfg.Tracker.Lister == config.ListerPS {
		lister = infra.NewPSLister()
	}
	tracker := usecase.NewProcessTracker(lister, a.sink, a.cfg.Tracker.ExcludeNames, a.logger)
	return daemon.NewTrackerLoop(tracker, a.cfg.Tracker.Interval, a.logger)
}

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext(logger *zap.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}

// ignoreBrokenPipe turns a closed stdout into EPIPE write errors, so the emitter
// reports ErrSinkClosed and the loops stop with exit status 1.
func ignoreBrokenPipe() {
	signal.Ignore(syscall.SIGPIPE)
}

func runMonitor(withActivity, withTracker bool) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	var activity, tracker daemon.Runner
	if withActivity {
		activity = a.activityLoop()
	}
	if withTracker {
		tracker = a.trackerLoop()
	}

	a.logger.Info("actmon started",
		zap.String("version", Version),
		zap.Strings("keywords", a.blocked.Keywords()),
		zap.Bool("activity", withActivity),
		zap.Bool("processes", withTracker))

	return daemon.NewMonitor(activity, tracker, a.logger).Run(ctx)
}

func runRun(cmd *cobra.Command, args []string) error {
	return runMonitor(true, true)
}

func runActivity(cmd *cobra.Command, args []string) error {
	return runMonitor(true, false)
}

func runProcesses(cmd *cobra.Command, args []string) error {
	return runMonitor(false, true)
}

func runSample(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	probe := infra.NewPlatformProbe(a.cfg.Probe.SubProbeTimeout, a.logger)
	defer probe.Close()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Activity.CycleTimeout)
	defer cancel()

	snapshot, err := probe.Sample(ctx)
	if err != nil {
		return errors.Wrap(err, "sample activity")
	}
	if a.blocked.IsBlocked(snapshot.Foreground) {
		a.logger.Info("foreground application is blocked",
			zap.String("canonical", snapshot.Foreground.CanonicalName))
	}
	return a.sink.EmitActivity(snapshot)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := buildPolicyStore(cfg)
	ids := args
	if len(ids) == 0 {
		ids = store.List()
	}

	fmt.Println("\n=== Blocked Applications ===")
	for _, id := range ids {
		p, err := store.GetByID(id)
		if err != nil {
			return err
		}
		fmt.Printf("\n[%s] %s\n", p.ID, p.Name)
		fmt.Println("  Keywords:")
		for _, kw := range p.Keywords {
			fmt.Printf("    - %s\n", kw)
		}
	}
	fmt.Println("\nMatching is a case-insensitive substring test on the process name.")
	fmt.Println("============================")
	return nil
}

func runJournal(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	j, err := infra.OpenJournal(cfg.Journal.Dir)
	if err != nil {
		return errors.Wrap(err, "open journal")
	}
	defer j.Close()

	entries, err := j.Recent(context.Background(), journalLimit)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No enforcement records.")
		return nil
	}

	fmt.Println("\n=== Enforcement Journal ===")
	fmt.Printf("(%s)\n", j.Path())
	for _, e := range entries {
		fmt.Printf("%s  %-24s pid=%-7d %-17s swept=%d errors=%d\n",
			e.ExecutedAt.Format("2006-01-02 15:04:05"), e.Target, e.PID, e.Method, e.SweptCount, e.ErrorCount)
	}
	fmt.Println("===========================")
	return nil
}

// buildPolicyStore returns the built-in policies, or a single custom policy when the
// config lists its own keywords.
func buildPolicyStore(cfg *config.Config) domain.PolicyStore {
	if len(cfg.Policy.Keywords) > 0 {
		return policy.NewPolicyStoreFromRegistry(policy.NewRegistryWithPolicies(
			policy.NewKeywordPolicy("custom", "Custom block list", cfg.Policy.Keywords)))
	}
	return policy.NewPolicyStore()
}

// createLogger logs JSON to stderr; stdout carries the event stream.
func createLogger(debug bool) *zap.Logger {
	zcfg := zap.NewProductionConfig()
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	zcfg.EncoderConfig.TimeKey = "time"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("actmon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
