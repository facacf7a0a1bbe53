// Package main wires presto's CLI surface (spec.md §6): a single cobra
// root command carrying every flag, constructed explicitly from main with
// no init() magic (dagu-org-dagu's cmd/main.go shape).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rdebroiz/presto/internal/datamodel"
	"github.com/rdebroiz/presto/internal/executor"
	"github.com/rdebroiz/presto/internal/logger"
	"github.com/rdebroiz/presto/internal/pipeline"
	"github.com/rdebroiz/presto/internal/report"
	"github.com/rdebroiz/presto/internal/settings"
	"github.com/rdebroiz/presto/internal/yamlio"
)

// version is set at build time via -ldflags.
var version = "0.0.0"

// errEmptyPipeline is returned when the built pipeline has no nodes beyond
// the synthetic root, mapping to exit code 1 per spec.md §6.
var errEmptyPipeline = errors.New("presto: pipeline has no nodes to run")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		if errors.Is(err, errShownVersionOrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, errEmptyPipeline) {
			return 1
		}
		return -1
	}
	return 0
}

// errShownVersionOrHelp is a sentinel RunE error used only to short-circuit
// the exit-code switch in run: --version/--help already printed their own
// output, so the process should still exit 0.
var errShownVersionOrHelp = errors.New("presto: informational exit")

type cliFlags struct {
	logLevel      string
	workers       int
	print         bool
	force         bool
	node          string
	overrideScope []string
	report        bool
	showVersion   bool
}

func newRootCommand() *cobra.Command {
	var f cliFlags

	cmd := &cobra.Command{
		Use:           "presto [flags] <pipe.yaml>",
		Short:         "A declarative, scope-driven pipeline runner",
		Long:          `presto expands command templates against a filesystem-derived data model and runs them in parallel across a DAG of scoped nodes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.showVersion {
				fmt.Println(version)
				return errShownVersionOrHelp
			}
			return runPresto(cmd.Context(), args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.logLevel, "log", "INFO", "log level: DEBUG|INFO|WARNING|ERROR|CRITICAL")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "worker pool size (0 = host CPU count)")
	cmd.Flags().BoolVar(&f.print, "print", false, "print resolved commands instead of running them")
	cmd.Flags().BoolVar(&f.force, "force", false, "re-run scope values that already succeeded")
	cmd.Flags().StringVar(&f.node, "node", "", "start execution from this node instead of root")
	cmd.Flags().StringArrayVar(&f.overrideScope, "override_scope", nil, "NAME:REGEXP, repeatable")
	cmd.Flags().BoolVar(&f.report, "report", false, "print a report of the last execution and exit")
	cmd.Flags().BoolVarP(&f.showVersion, "version", "v", false, "print version and exit")

	return cmd
}

func runPresto(ctx context.Context, pipeFile string, f cliFlags) error {
	pipeFile, err := filepath.Abs(pipeFile)
	if err != nil {
		return fmt.Errorf("presto: unable to resolve %q: %w", pipeFile, err)
	}
	pipelineDir := filepath.Dir(pipeFile)

	if err := os.MkdirAll(settings.PrestoDir(pipelineDir), 0o755); err != nil {
		return fmt.Errorf("presto: unable to create %s: %w", settings.PrestoDir(pipelineDir), err)
	}

	log, logFile, err := setupLogger(pipelineDir, f.logLevel)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}
	ctx = logger.WithLogger(ctx, log)

	if f.report {
		rendered, err := report.Render(pipelineDir)
		if err != nil {
			return err
		}
		fmt.Print(rendered)
		return nil
	}

	overrides, err := parseOverrides(f.overrideScope)
	if err != nil {
		return err
	}

	documents, err := yamlio.LoadAll(pipeFile)
	if err != nil {
		return err
	}
	if len(documents) == 0 {
		return fmt.Errorf("presto: %s contains no YAML documents", pipeFile)
	}

	dm, err := datamodel.Build(documents[0], overrides)
	if err != nil {
		return fmt.Errorf("presto: unable to build data model: %w", err)
	}

	graph, err := pipeline.Build(documents[1:], dm, pipelineDir)
	if err != nil {
		return fmt.Errorf("presto: unable to build pipeline: %w", err)
	}
	if len(graph.Nodes) <= 1 {
		return errEmptyPipeline
	}

	workers := f.workers
	if workers <= 0 {
		workers, err = settings.HostWorkers(ctx)
		if err != nil {
			return fmt.Errorf("presto: %w", err)
		}
	}

	exec := executor.New(graph, dm, pipelineDir, workers, log)
	exec.SetPrintOnly(f.print)
	exec.SetForce(f.force)

	log.Infof("starting pipeline %s with %d workers", pipeFile, workers)
	return exec.Execute(ctx, f.node)
}

func setupLogger(pipelineDir, levelName string) (logger.Logger, *os.File, error) {
	level, err := logger.ParseLevel(levelName)
	if err != nil {
		return nil, nil, fmt.Errorf("presto: %w", err)
	}

	logPath := settings.LogFile(pipelineDir)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("presto: unable to open log file %s: %w", logPath, err)
	}

	log := logger.NewLogger(logger.WithLevel(level), logger.WithWriter(f))
	return log, f, nil
}

// parseOverrides splits each "NAME:REGEXP" argument on its first colon,
// per spec.md §6: "malformed values are fatal".
func parseOverrides(raw []string) (map[string]string, error) {
	overrides := make(map[string]string, len(raw))
	for _, entry := range raw {
		idx := strings.Index(entry, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("presto: malformed --override_scope %q, expected NAME:REGEXP", entry)
		}
		overrides[entry[:idx]] = entry[idx+1:]
	}
	return overrides, nil
}
