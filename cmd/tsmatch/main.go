package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/arjunmahishi/tsmatch/grammar"
	"github.com/arjunmahishi/tsmatch/output"
	"github.com/arjunmahishi/tsmatch/scanner"
	"github.com/arjunmahishi/tsmatch/tsmatch"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout).Run(ctx, os.Args); err != nil {
		output.WriteError(err)
		stop()
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "tsmatch",
		Usage:     "structurally query source files with tree-sitter grammars",
		ArgsUsage: "GLOB...",

		// Language mappings carry commas of their own.
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "path to a tree-sitter query file",
			},
			&cli.StringFlag{
				Name:  "query-string",
				Usage: "tree-sitter query given inline",
			},
			&cli.StringSliceFlag{
				Name:    "languages",
				Aliases: []string{"l"},
				Usage:   "extension mapping ext,ext=language (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:    "exclude",
				Aliases: []string{"e"},
				Usage:   "path or glob to leave out (repeatable)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   output.Terse.String(),
				Usage:   "output format: " + strings.Join(output.FormatNames(), ", "),
			},
			&cli.StringFlag{
				Name:    "grammar-dir",
				Usage:   "directory holding <language>/parser grammar modules",
				Sources: cli.EnvVars("GRAMMAR_DIR"),
			},
			&cli.BoolFlag{
				Name:  "builtin-grammars",
				Usage: "fall back to compiled-in grammars when a module is not installed",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Value:   1,
				Usage:   "number of parallel workers",
			},
			&cli.BoolFlag{
				Name:  "keep-going",
				Usage: "skip files that fail and report them at the end",
			},
			&cli.Int64Flag{
				Name:  "max-bytes",
				Usage: "skip files larger than this (0 = no limit)",
			},
			&cli.BoolFlag{
				Name:  "skip-dirs",
				Usage: "skip VCS, dependency and build directories reached through a glob",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "indent verbose output",
			},
			&cli.StringFlag{
				Name:  "color",
				Value: "auto",
				Usage: "snippet colors: auto, always, never",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "log level: debug, info, warn, error",
				Sources: cli.EnvVars("TSMATCH_LOG_LEVEL"),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "re-run the query on files as they change",
			},
		},
		Commands: []*cli.Command{
			grammarsCommand(stdout),
			examplesCommand(stdout),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runQuery(ctx, cmd, stdout)
		},
	}
}

func runQuery(ctx context.Context, cmd *cli.Command, stdout io.Writer) error {
	globs := cmd.Args().Slice()
	if len(globs) == 0 {
		return errors.New("at least one input glob is required")
	}

	queryText, err := resolveQuery(cmd.String("query-string"), cmd.String("query"))
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	useColor, err := resolveColor(cmd.String("color"))
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.String("log-level"))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	reg, err := newRegistry(cmd, logger)
	if err != nil {
		return err
	}

	scanCfg := scanner.Config{
		Excludes: cmd.StringSlice("exclude"),
		MaxBytes: cmd.Int64("max-bytes"),
		Logger:   logger,
	}
	if cmd.Bool("skip-dirs") {
		scanCfg.IgnoreDirs = scanner.DefaultIgnoreDirs()
	}
	scan, err := scanner.New(scanCfg)
	if err != nil {
		return err
	}

	runner, err := tsmatch.NewRunner(tsmatch.Options{
		Grammars:  reg,
		QueryText: queryText,
		Languages: cmd.StringSlice("languages"),
		Format:    format,
		Output: output.Config{
			Pretty: cmd.Bool("pretty"),
			Color:  useColor,
		},
		Jobs:      cmd.Int("jobs"),
		KeepGoing: cmd.Bool("keep-going"),
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	files, err := scan.Collect(globs)
	if err != nil {
		return err
	}

	sum, err := runner.Run(ctx, stdout, files)
	logger.Info("run finished",
		zap.Int("files", sum.Files),
		zap.Int("matches", sum.Matches),
		zap.Int("failed", sum.Failed),
	)
	if err != nil {
		return err
	}

	if cmd.Bool("watch") {
		return watch(ctx, stdout, runner, scan, globs, logger)
	}
	return nil
}

func resolveQuery(text, filePath string) (string, error) {
	if text != "" && filePath != "" {
		return "", errors.New("use --query or --query-string, not both")
	}
	if text != "" {
		return text, nil
	}
	if filePath == "" {
		return "", errors.New("--query or --query-string is required")
	}
	return tsmatch.LoadQuery(filePath)
}

func resolveColor(mode string) (bool, error) {
	switch mode {
	case "auto":
		// fatih/color disables itself when stdout is not a terminal or NO_COLOR is set.
		return !color.NoColor, nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, fmt.Errorf("unknown color mode %q (want auto, always or never)", mode)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func newRegistry(cmd *cli.Command, logger *zap.Logger) (*grammar.Registry, error) {
	dir := cmd.String("grammar-dir")
	builtins := cmd.Bool("builtin-grammars")
	if dir == "" && !builtins {
		return nil, errors.New("--grammar-dir (or GRAMMAR_DIR) is required unless --builtin-grammars is set")
	}
	return grammar.NewRegistry(dir,
		grammar.WithBuiltins(builtins),
		grammar.WithLogger(logger),
	), nil
}

func grammarsCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "grammars",
		Usage: "list installed and compiled-in grammars",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "compact",
				Usage: "minimize output",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			listing := struct {
				Dir       string   `json:"dir"`
				Installed []string `json:"installed"`
				Builtin   []string `json:"builtin"`
			}{
				Dir:       cmd.String("grammar-dir"),
				Installed: []string{},
				Builtin:   grammar.Builtins(),
			}
			if listing.Dir != "" {
				listing.Installed = append(listing.Installed, grammar.NewRegistry(listing.Dir).Installed()...)
			}
			return writeJSON(stdout, listing, cmd.Bool("compact"))
		},
	}
}

// JSON output helpers
func writeJSON(w io.Writer, v any, compact bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
