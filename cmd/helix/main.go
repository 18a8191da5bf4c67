package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"github.com/whynotshrutz/helix/internal/output"
	"github.com/whynotshrutz/helix/internal/progress"
	"github.com/whynotshrutz/helix/pkg/analyzer"
	"github.com/whynotshrutz/helix/pkg/analyzer/vulnscan"
	"github.com/whynotshrutz/helix/pkg/config"
	"github.com/whynotshrutz/helix/pkg/report"
	"github.com/whynotshrutz/helix/pkg/semantic"
	"github.com/whynotshrutz/helix/pkg/watch"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

// rootDir returns the positional path argument, defaulting to ".".
func rootDir(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "helix",
		Usage:   "Semantic code analysis CLI",
		Version: version,
		Description: `Helix analyzes codebases for security vulnerabilities, circular
dependencies, unused imports, and complexity hotspots.

Supports: Go, Rust, Python, TypeScript, JavaScript, Java, C, C++, Ruby,
and more via heuristic fallbacks.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"HELIX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "no-progress",
				Usage: "Disable the progress bar",
			},
		},
		Commands: []*cli.Command{
			analyzeCmd(),
			complexityCmd(),
			vulnsCmd(),
			graphCmd(),
			importsCmd(),
			watchCmd(),
			initCmd(),
		},
	}
}

// loadConfig loads the explicit config file or searches the defaults.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault()
}

// engineOptions maps config onto the explicit engine options.
func engineOptions(cfg *config.Config) ([]semantic.Option, error) {
	timeout, err := cfg.FileTimeoutDuration()
	if err != nil {
		return nil, err
	}

	opts := []semantic.Option{
		semantic.WithMaxFiles(cfg.Analysis.MaxFiles),
		semantic.WithMaxFileSize(cfg.Analysis.MaxFileSize),
		semantic.WithComplexityThreshold(cfg.Thresholds.CyclomaticComplexity),
		semantic.WithMaxFunctionLines(cfg.Thresholds.MaxFunctionLines),
		semantic.WithFileTimeout(timeout),
		semantic.WithExcludeDirs(cfg.Exclude.Dirs...),
	}
	if len(cfg.Analysis.Include) > 0 {
		opts = append(opts, semantic.WithIncludePatterns(cfg.Analysis.Include...))
	}
	if cfg.Analysis.Concurrency > 0 {
		opts = append(opts, semantic.WithConcurrency(cfg.Analysis.Concurrency))
	}
	if cfg.Exclude.Gitignore {
		opts = append(opts, semantic.WithGitignore())
	}
	return opts, nil
}

// newFormatter builds the output formatter from flags and config.
func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	format := cfg.Output.Format
	if f := c.String("format"); f != "" {
		format = f
	}
	return output.NewFormatter(output.ParseFormat(format), c.String("output"), cfg.Output.Color)
}

// runEngine performs one full analysis with signal handling and an optional
// progress bar.
func runEngine(c *cli.Context, cfg *config.Config, extra ...semantic.Option) (*report.Report, error) {
	opts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, extra...)

	a, err := semantic.New(opts...)
	if err != nil {
		return nil, err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var bar *progress.Bar
	if cfg.Output.Progress && !c.Bool("no-progress") && c.String("output") == "" {
		bar = progress.NewBar("Analyzing...")
		ctx = analyzer.WithTracker(ctx, analyzer.NewTracker(bar.Update))
	}

	rep, err := a.Analyze(ctx, rootDir(c))
	if err != nil {
		if bar != nil {
			bar.FinishError(err)
		}
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if bar != nil {
		bar.Finish()
	}
	return rep, nil
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Run the full semantic analysis and print the report",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "max-files",
				Usage: "Cap the number of analyzed files",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("max-files"); n > 0 {
		cfg.Analysis.MaxFiles = n
	}

	rep, err := runEngine(c, cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(rep)
}

func complexityCmd() *cli.Command {
	return &cli.Command{
		Name:      "complexity",
		Aliases:   []string{"cx"},
		Usage:     "Report cyclomatic complexity hotspots",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "threshold",
				Usage: "Cyclomatic complexity warning threshold",
			},
			&cli.IntFlag{
				Name:  "max-lines",
				Usage: "Function body line count warning threshold",
			},
		},
		Action: runComplexityCmd,
	}
}

func runComplexityCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("threshold"); n > 0 {
		cfg.Thresholds.CyclomaticComplexity = n
	}
	if n := c.Int("max-lines"); n > 0 {
		cfg.Thresholds.MaxFunctionLines = n
	}

	rep, err := runEngine(c, cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	if len(rep.ComplexFunctions) == 0 {
		formatter.Success("No complex functions found")
		return nil
	}

	rows := make([][]string, 0, len(rep.ComplexFunctions))
	for _, fn := range rep.ComplexFunctions {
		rows = append(rows, []string{
			fn.Name,
			string(fn.Kind),
			fmt.Sprintf("%s:%d", fn.File, fn.StartLine),
			strconv.Itoa(fn.Cyclomatic),
			strconv.Itoa(fn.BodyLines),
		})
	}

	dist := rep.Summary.Complexity
	table := output.NewTable(
		"Complexity Hotspots",
		[]string{"Function", "Kind", "Location", "Cyclomatic", "Body Lines"},
		rows,
		[]string{
			fmt.Sprintf("Avg: %.1f", dist.Average),
			fmt.Sprintf("Median: %.1f", dist.Median),
			fmt.Sprintf("P90: %.1f", dist.P90),
			fmt.Sprintf("Max: %d", dist.Max),
			"",
		},
		rep.ComplexFunctions,
	)
	return formatter.Output(table)
}

func vulnsCmd() *cli.Command {
	return &cli.Command{
		Name:      "vulns",
		Aliases:   []string{"v"},
		Usage:     "Report security findings",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "min-severity",
				Value: "low",
				Usage: "Lowest severity to report: low, medium, high, critical",
			},
		},
		Action: runVulnsCmd,
	}
}

func runVulnsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	rep, err := runEngine(c, cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	minWeight := vulnscan.Severity(c.String("min-severity")).Weight()
	var findings []vulnscan.Finding
	for _, f := range rep.Findings {
		if f.Severity.Weight() >= minWeight {
			findings = append(findings, f)
		}
	}

	if len(findings) == 0 {
		formatter.Success("No findings at or above the requested severity")
		return nil
	}

	rows := make([][]string, 0, len(findings))
	for _, f := range findings {
		sev := string(f.Severity)
		if formatter.Colored() {
			sev = output.SeverityColor(sev, sev)
		}
		rows = append(rows, []string{
			sev,
			string(f.Category),
			fmt.Sprintf("%s:%d", f.File, f.Line),
			f.Title,
			f.Remediation,
		})
	}

	table := output.NewTable(
		"Security Findings",
		[]string{"Severity", "Category", "Location", "Issue", "Remediation"},
		rows,
		nil,
		findings,
	)
	if err := formatter.Output(table); err != nil {
		return err
	}

	if rep.Summary.RulesSkipped > 0 && formatter.Format() == output.FormatText {
		formatter.Warning("%d rules skipped due to evaluation failures", rep.Summary.RulesSkipped)
	}
	return nil
}

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Aliases:   []string{"g"},
		Usage:     "Report dependency cycles and graph metrics",
		ArgsUsage: "[path]",
		Action:    runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	rep, err := runEngine(c, cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	metrics := &output.Section{
		Title: "Graph Metrics",
		Content: fmt.Sprintf("Nodes: %d\nEdges: %d\nDensity: %.3f\nAvg degree: %.2f\nStrongly connected components: %d",
			rep.Graph.Nodes, rep.Graph.Edges, rep.Graph.Density,
			rep.Graph.AvgDegree, rep.Graph.StronglyConnected),
	}

	cycles := &output.Section{Title: "Circular Dependencies"}
	if len(rep.Cycles) == 0 {
		cycles.Content = "None found"
	} else {
		for _, cycle := range rep.Cycles {
			cycles.Content += fmt.Sprintf("%s -> %s\n", cycle.Key(), cycle.Files[0])
		}
	}

	combined := &output.Report{
		Title:    "Dependency Graph",
		Sections: []output.Renderable{metrics, cycles},
		Data: map[string]any{
			"metrics": rep.Graph,
			"cycles":  rep.Cycles,
		},
	}
	return formatter.Output(combined)
}

func importsCmd() *cli.Command {
	return &cli.Command{
		Name:      "imports",
		Aliases:   []string{"i"},
		Usage:     "Report unused and unresolved imports",
		ArgsUsage: "[path]",
		Action:    runImportsCmd,
	}
}

func runImportsCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	rep, err := runEngine(c, cfg)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	unusedRows := make([][]string, 0, len(rep.UnusedImports))
	for _, u := range rep.UnusedImports {
		unusedRows = append(unusedRows, []string{fmt.Sprintf("%s:%d", u.File, u.Line), u.Name, u.Spec})
	}
	unresolvedRows := make([][]string, 0, len(rep.UnresolvedImports))
	for _, u := range rep.UnresolvedImports {
		unresolvedRows = append(unresolvedRows, []string{fmt.Sprintf("%s:%d", u.File, u.Line), u.Spec})
	}

	combined := &output.Report{
		Title: "Imports",
		Sections: []output.Renderable{
			output.NewTable("Unused", []string{"Location", "Name", "Import"}, unusedRows, nil, rep.UnusedImports),
			output.NewTable("Unresolved", []string{"Location", "Import"}, unresolvedRows, nil, rep.UnresolvedImports),
		},
		Data: map[string]any{
			"unused_imports":     rep.UnusedImports,
			"unresolved_imports": rep.UnresolvedImports,
		},
	}
	return formatter.Output(combined)
}

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Aliases:   []string{"w"},
		Usage:     "Re-run analysis when source files change",
		ArgsUsage: "[path]",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "Quiet period before a change batch triggers analysis",
			},
		},
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	root := rootDir(c)

	runOnce := func() {
		rep, err := runEngine(c, cfg)
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		formatter, err := newFormatter(c, cfg)
		if err != nil {
			color.Red("Error: %v", err)
			return
		}
		defer formatter.Close()
		if err := formatter.Output(rep); err != nil {
			color.Red("Error: %v", err)
		}
	}

	runOnce()

	w, err := watch.New(root, watch.Options{
		ExcludeDirs: cfg.Exclude.Dirs,
		Debounce:    c.Duration("debounce"),
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	w.OnChange(func(paths []string) {
		for _, p := range paths {
			color.Yellow("Changed: %s", p)
		}
		runOnce()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	color.Cyan("Watching %s for changes. Press Ctrl+C to stop.", root)
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write a starter helix.toml config file",
		ArgsUsage: "[path]",
		Action: func(c *cli.Context) error {
			path := "helix.toml"
			if c.Args().Len() > 0 {
				path = c.Args().First()
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			color.Green("Wrote %s", path)
			return nil
		},
	}
}
