package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"sightline/internal/config"
	"sightline/internal/prof"
	"sightline/internal/tracer"
)

var runCmd = &cobra.Command{
	Use:   "run [notifications-file]",
	Short: "Trace a notification stream and relay events to the observer",
	Long: `Read newline-delimited JSON execution notifications from a file (or stdin),
run them through the tracing pipeline, and stream the resulting events to the
observer over TCP`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTrace,
}

func init() {
	runCmd.Flags().String("host", "", "observer host (overrides config)")
	runCmd.Flags().Int("port", 0, "observer port (overrides config)")
	runCmd.Flags().String("project-root", "", "project root for relative paths")
	runCmd.Flags().String("config", "", "explicit sightline.toml path")
	runCmd.Flags().String("encoding", "", "wire encoding (ndjson|msgpack)")
	runCmd.Flags().Duration("heartbeat", 0, "heartbeat interval, 0 disables")
	runCmd.Flags().Duration("write-timeout", 0, "per-message transport write timeout")
	runCmd.Flags().Duration("dial-timeout", 0, "observer connection timeout")
	runCmd.Flags().StringSlice("exclude-file", nil, "additional file paths to skip")
	runCmd.Flags().StringSlice("exclude-module", nil, "additional modules to skip")
	runCmd.Flags().StringSlice("include", nil, "glob patterns restricting traced files")
	runCmd.Flags().Bool("stats", false, "print session statistics on exit")
	runCmd.Flags().String("cpuprofile", "", "write CPU profile to file")
	runCmd.Flags().String("memprofile", "", "write heap profile to file")
}

func runTrace(cmd *cobra.Command, args []string) error {
	applyColorMode(cmd)

	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("cpuprofile"); path != "" {
		stop, err := prof.StartCPU(path)
		if err != nil {
			return err
		}
		defer stop()
	}

	input, closeInput, err := openInput(args)
	if err != nil {
		return err
	}
	defer closeInput()

	level := slog.LevelInfo
	if quiet {
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	engine := &tracer.HookEngine{}
	sess := tracer.NewSession(tracer.Config{
		Host:           cfg.Observer.Host,
		Port:           cfg.Observer.Port,
		ProjectRoot:    cfg.Project.Root,
		Encoding:       cfg.Observer.Encoding,
		Heartbeat:      cfg.Observer.Heartbeat.Std(),
		WriteTimeout:   cfg.Observer.WriteTimeout.Std(),
		DialTimeout:    cfg.Observer.DialTimeout.Std(),
		ExcludeFiles:   cfg.Filter.ExcludeFiles,
		ExcludeModules: cfg.Filter.ExcludeModules,
		Include:        cfg.Filter.Include,
		Logger:         logger,
	}, engine)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	if !quiet {
		green := color.New(color.FgGreen)
		green.Fprintf(cmd.ErrOrStderr(), "tracing session %s started\n", sess.ID())
		if !sess.Connected() {
			yellow := color.New(color.FgYellow)
			yellow.Fprintf(cmd.ErrOrStderr(), "observer %s:%d unreachable, capturing locally\n",
				cfg.Observer.Host, cfg.Observer.Port)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return tracer.ReadNotifications(gctx, input, engine.Notify)
	})
	readErr := g.Wait()

	stats := sess.Stop()

	if path, _ := cmd.Flags().GetString("memprofile"); path != "" {
		if err := prof.WriteHeap(path); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "memprofile: %v\n", err)
		}
	}

	if show, _ := cmd.Flags().GetBool("stats"); show {
		printStats(cmd.OutOrStdout(), stats)
	}

	// Interruption is a normal way to end a tracing session.
	if readErr != nil && !errors.Is(readErr, context.Canceled) {
		return readErr
	}
	return nil
}

// resolveConfig layers: defaults, then the manifest, then explicit flags.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)

	explicit, _ := cmd.Flags().GetString("config")
	root, _ := cmd.Flags().GetString("project-root")

	if explicit != "" {
		cfg, err = config.Load(explicit)
	} else {
		start := root
		if start == "" {
			start, _ = os.Getwd()
		}
		cfg, err = config.Discover(start)
	}
	if err != nil {
		return config.Config{}, err
	}

	if root != "" {
		cfg.Project.Root = root
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Observer.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Observer.Port = port
	}
	if enc, _ := cmd.Flags().GetString("encoding"); enc != "" {
		cfg.Observer.Encoding = enc
	}
	if cmd.Flags().Changed("heartbeat") {
		hb, _ := cmd.Flags().GetDuration("heartbeat")
		cfg.Observer.Heartbeat = config.Duration(hb)
	}
	if cmd.Flags().Changed("write-timeout") {
		wt, _ := cmd.Flags().GetDuration("write-timeout")
		cfg.Observer.WriteTimeout = config.Duration(wt)
	}
	if cmd.Flags().Changed("dial-timeout") {
		dt, _ := cmd.Flags().GetDuration("dial-timeout")
		cfg.Observer.DialTimeout = config.Duration(dt)
	}
	if files, _ := cmd.Flags().GetStringSlice("exclude-file"); len(files) > 0 {
		cfg.Filter.ExcludeFiles = append(cfg.Filter.ExcludeFiles, files...)
	}
	if mods, _ := cmd.Flags().GetStringSlice("exclude-module"); len(mods) > 0 {
		cfg.Filter.ExcludeModules = append(cfg.Filter.ExcludeModules, mods...)
	}
	if globs, _ := cmd.Flags().GetStringSlice("include"); len(globs) > 0 {
		cfg.Filter.Include = append(cfg.Filter.Include, globs...)
	}
	return cfg, nil
}

// openInput returns the notification stream: the named file, or stdin.
func openInput(args []string) (io.Reader, func(), error) {
	if len(args) == 0 || args[0] == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open notifications file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// printStats renders the end-of-session summary with grouped digits.
func printStats(out io.Writer, stats *tracer.Statistics) {
	p := message.NewPrinter(language.English)
	p.Fprintf(out, "session %s\n", stats.SessionID)
	p.Fprintf(out, "events captured:  %d\n", stats.TotalEvents)
	p.Fprintf(out, "functions timed:  %d\n", stats.TotalFunctions)

	if len(stats.FunctionTimings) == 0 {
		return
	}

	keys := make([]string, 0, len(stats.FunctionTimings))
	for k := range stats.FunctionTimings {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return stats.FunctionTimings[keys[i]].TotalTime > stats.FunctionTimings[keys[j]].TotalTime
	})

	for _, k := range keys {
		s := stats.FunctionTimings[k]
		p.Fprintf(out, "  %s: calls=%d total=%.6fs avg=%.6fs max=%.6fs\n",
			k, s.Calls, s.TotalTime, s.AvgTime, s.MaxTime)
	}
}
