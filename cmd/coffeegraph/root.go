// # cmd/coffeegraph/root.go
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"coffeegraph/internal/core/app"
	"coffeegraph/internal/core/config"
	"coffeegraph/internal/core/errors"
	"coffeegraph/internal/data/history"
	"coffeegraph/internal/engine/lexer"
	"coffeegraph/internal/output"
	"coffeegraph/internal/shared/observability"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

type rootFlags struct {
	configPath string
	print      bool
	println    bool
	tree       bool
	compile    bool
	output     string
	clipboard  bool
	dot        string
	tsv        string
	watch      bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "coffeegraph [files|dirs...]",
		Short: "Order CoffeeScript files by their implicit global dependencies",
		Long: `coffeegraph reads CoffeeScript sources, infers which file defines each
global name another file uses, and prints or joins the files so every
definition comes before its first use.

Examples:
  coffeegraph -p src/               # one line, dependency order
  coffeegraph -l src/ vendor/a.coffee
  coffeegraph -t src/               # dependency tree
  coffeegraph -o app.coffee src/    # join in order
  coffeegraph -c -o app.js src/     # join compiled output
  coffeegraph -w -p src/            # rebuild on change`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			setupLogging(cmd.ErrOrStderr(), f.verbose)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, f, args)
		},
	}
	cmd.SetVersionTemplate("coffeegraph v{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "Path to config file (default ./"+config.DefaultFile+")")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "Enable verbose logging")

	fl := cmd.Flags()
	fl.BoolVarP(&f.print, "print", "p", false, "Print files in dependency order on one line")
	fl.BoolVarP(&f.println, "println", "l", false, "Print files in dependency order, one per line")
	fl.BoolVarP(&f.tree, "tree", "t", false, "Print the dependency tree")
	fl.BoolVarP(&f.compile, "compile", "c", false, "Pipe each joined file through output.compile_command")
	fl.StringVarP(&f.output, "output", "o", "", "Join files in dependency order into this file")
	fl.BoolVar(&f.clipboard, "clipboard", false, "Copy the ordered file list to the clipboard")
	fl.StringVar(&f.dot, "dot", "", "Write the file graph as Graphviz DOT")
	fl.StringVar(&f.tsv, "tsv", "", "Write file edges as TSV")
	fl.BoolVarP(&f.watch, "watch", "w", false, "Rebuild whenever a source file changes")

	cmd.AddCommand(newHistoryCmd(f), newWhyCmd(f))
	return cmd
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// loadConfig reads .env and the config file. The default file is optional;
// an explicit --config must exist.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(config.DefaultFile)
}

// applyFlags lets command-line flags override config values. Only flags
// the user set take effect.
func applyFlags(cmd *cobra.Command, f *rootFlags, cfg *config.Config, args []string) error {
	if len(args) > 0 {
		cfg.Sources = args
	}
	changed := cmd.Flags().Changed
	if changed("print") {
		cfg.Output.Print = f.print
	}
	if changed("println") {
		cfg.Output.Println = f.println
	}
	if changed("tree") {
		cfg.Output.Tree = f.tree
	}
	if changed("clipboard") {
		cfg.Output.Clipboard = f.clipboard
	}
	if changed("output") {
		cfg.Output.Join = f.output
	}
	if changed("dot") {
		cfg.Output.DOT = f.dot
	}
	if changed("tsv") {
		cfg.Output.TSV = f.tsv
	}
	if changed("compile") {
		cfg.Output.Compile = f.compile
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return errors.Wrap(errs[0], errors.CodeValidationError, "invalid options")
	}
	if len(cfg.Sources) == 0 {
		return errors.New(errors.CodeNoInput, "no input files or directories given")
	}
	if !cfg.Output.HasExporter() {
		return errors.AddContext(
			errors.New(errors.CodeMissingComponent, "no output selected (use -p, -l, -t, -o, --clipboard, --dot or --tsv)"),
			errors.CtxComponent, "exporter",
		)
	}
	return nil
}

// buildChain assembles the exporters selected in cfg, in a fixed order.
func buildChain(cfg *config.Config, stdout, stderr io.Writer) *output.Chain {
	chain := output.NewChain()
	if cfg.Output.Print {
		chain.Add("print", &output.ListExporter{W: stdout})
	}
	if cfg.Output.Println {
		chain.Add("println", &output.ListExporter{W: stdout, PerLine: true})
	}
	if cfg.Output.Tree {
		chain.Add("tree", &output.TreeExporter{W: stdout})
	}
	if cfg.Output.Join != "" {
		join := &output.JoinExporter{Path: cfg.Output.Join, Log: stderr}
		if cfg.Output.Compile {
			join.CompileCommand = cfg.Output.CompileCommand
		}
		chain.Add("join", join)
	}
	if cfg.Output.Clipboard {
		chain.Add("clipboard", output.NewClipboardExporter(cfg.Output.Println))
	}
	if cfg.Output.DOT != "" {
		chain.Add("dot", &output.DOTExporter{Path: cfg.Output.DOT})
	}
	if cfg.Output.TSV != "" {
		chain.Add("tsv", &output.TSVExporter{Path: cfg.Output.TSV})
	}
	return chain
}

// runtime holds the long-lived pieces shared by one-shot and watch runs.
type runtime struct {
	cfg     *config.Config
	builder *app.Builder
	health  *observability.Health
	store   *history.Store
	server  *observability.Server
	tracing func(context.Context) error
}

func newRuntime(ctx context.Context, cfg *config.Config, exporter app.Exporter) (*runtime, error) {
	cache, err := lexer.NewCachingLexer(lexer.NewScanner(), cfg.Analysis.TokenCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "token cache")
	}

	rt := &runtime{cfg: cfg, health: observability.NewHealth()}
	rt.builder = app.NewBuilder(app.OptionsFromConfig(cfg)).
		WithLexer(cache).
		WithExporter(exporter).
		WithHealth(rt.health).
		WithLogger(slog.Default())

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		rt.store = store
		rt.builder.WithHistory(store)
	}

	if cfg.Observability.EnableTracing {
		shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
		if err != nil {
			rt.close(ctx)
			return nil, err
		}
		rt.tracing = shutdown
	}

	if cfg.Observability.MetricsAddr != "" {
		rt.server = observability.NewServer(cfg.Observability.MetricsAddr, rt.health)
		if err := rt.server.Start(ctx); err != nil {
			rt.close(ctx)
			return nil, err
		}
	}
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) {
	if rt.server != nil {
		if err := rt.server.Stop(ctx); err != nil {
			slog.Warn("failed to stop observability server", "error", err)
		}
	}
	if rt.tracing != nil {
		if err := rt.tracing(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			slog.Warn("failed to close history store", "error", err)
		}
	}
}

func runRoot(cmd *cobra.Command, f *rootFlags, args []string) error {
	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, f, cfg, args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chain := buildChain(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
	rt, err := newRuntime(ctx, cfg, chain)
	if err != nil {
		return err
	}
	defer rt.close(context.Background())

	build, err := rt.builder.Build(ctx, cfg.Sources)
	if !f.watch {
		if err == nil && f.verbose {
			fmt.Fprintln(cmd.ErrOrStderr(), formatSummary(build))
		}
		return err
	}
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	} else {
		fmt.Fprintln(cmd.ErrOrStderr(), formatSummary(build))
	}
	return watchLoop(ctx, rt, cmd.ErrOrStderr())
}
