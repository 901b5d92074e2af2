package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"rollgen/internal/audit"
	"rollgen/internal/changelog"
	"rollgen/internal/config"
	"rollgen/internal/output"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type runFlags struct {
	configPath  string
	output      string
	dryRun      bool
	format      string
	granularity string
	reverse     bool
	audit       bool
	verbose     bool
}

func newRootCmd() *cobra.Command {
	var flags runFlags

	rootCmd := &cobra.Command{
		Use:   "rollgen <changelog>",
		Short: "Add rollback directives to Liquibase changelogs",
		Long: `rollgen finds change units without a rollback in a Liquibase changelog and
appends one derived from the unit's forward statements. Operations that cannot be
undone from the changelog alone get a placeholder that asks for manual work.

The changelog format is picked from the extension: .sql for formatted SQL and
.xml for XML changelogs. Use the sql or xml subcommand to force a format.

Examples:
  rollgen db/changelog.sql
  rollgen db/changelog.xml --dry-run
  rollgen sql db/changes.txt -o db/changes.rollback.txt --audit`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &flags, args[0], "")
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a TOML config file (default .rollgen.toml if present)")
	pf.StringVarP(&flags.output, "output", "o", "", "Write the result to this file instead of rewriting the changelog")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Print the rewritten changelog to stdout without writing it")
	pf.StringVarP(&flags.format, "format", "f", "", "Report format: summary, json or sql")
	pf.StringVar(&flags.granularity, "granularity", "", "Rollback lines per formatted SQL unit: statement or unit")
	pf.BoolVar(&flags.reverse, "reverse", false, "Emit rollback entries in reverse statement order")
	pf.BoolVar(&flags.audit, "audit", false, "Warn about destructive and blocking forward statements")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	formatCmd := func(format changelog.Format, short string) *cobra.Command {
		return &cobra.Command{
			Use:          string(format) + " <changelog>",
			Short:        short,
			Args:         cobra.ExactArgs(1),
			SilenceUsage: true,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd, &flags, args[0], format)
			},
		}
	}

	rootCmd.AddCommand(formatCmd(changelog.FormatSQL, "Process a formatted SQL changelog regardless of its extension"))
	rootCmd.AddCommand(formatCmd(changelog.FormatXML, "Process an XML changelog regardless of its extension"))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the rollgen version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "rollgen %s\n", version)
		},
	})

	return rootCmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// resolveConfig loads the config file and lets explicitly set flags override it.
func resolveConfig(cmd *cobra.Command, flags *runFlags) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, err
	}

	changed := cmd.Flags().Changed
	if changed("granularity") {
		g, err := changelog.ParseGranularity(flags.granularity)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Granularity = g
	}
	if changed("reverse") {
		cfg.Reverse = flags.reverse
	}
	if changed("audit") {
		cfg.Audit = flags.audit
	}
	if changed("format") {
		cfg.Format = flags.format
	}
	return cfg, nil
}

func run(cmd *cobra.Command, flags *runFlags, path string, format changelog.Format) error {
	logger := newLogger(cmd.ErrOrStderr(), flags.verbose)

	cfg, err := resolveConfig(cmd, flags)
	if err != nil {
		return err
	}
	formatter, err := output.NewFormatter(cfg.Format)
	if err != nil {
		return err
	}

	dst := flags.output
	if dst == "" && !cfg.InPlace {
		dst = changelog.SideBySidePath(path, cfg.Suffix)
	}

	logger.Debug("processing changelog",
		"path", path,
		"format", format,
		"granularity", cfg.Granularity,
		"reverse", cfg.Reverse,
		"dry_run", flags.dryRun,
	)

	rewritten, res, err := changelog.Run(changelog.Job{
		Path:    path,
		Format:  format,
		Output:  dst,
		DryRun:  flags.dryRun,
		Options: cfg.Options(),
	})
	if err != nil {
		return err
	}
	logger.Debug("changelog processed", "seen", res.Seen, "added", res.Added, "skipped", res.Skipped)

	report := &output.Report{
		Path:        path,
		Destination: dst,
		DryRun:      flags.dryRun,
		Result:      res,
	}
	if report.Destination == "" {
		report.Destination = path
	}
	if cfg.Audit {
		report.Findings = audit.New().Audit(res.Units)
		for _, f := range report.Findings {
			logger.Debug("audit finding", "unit", f.Unit, "level", f.Level, "message", f.Message)
		}
	}

	reportOut := cmd.OutOrStdout()
	if flags.dryRun {
		if _, err := cmd.OutOrStdout().Write(rewritten); err != nil {
			return fmt.Errorf("failed to write changelog: %w", err)
		}
		reportOut = cmd.ErrOrStderr()
	}
	if err := output.WriteReport(reportOut, formatter, report); err != nil {
		return fmt.Errorf("failed to format output: %w", err)
	}
	return nil
}
