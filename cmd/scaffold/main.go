package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tordrt/scaffold"
	"github.com/tordrt/scaffold/internal/config"
	"github.com/tordrt/scaffold/internal/db"
	"github.com/tordrt/scaffold/internal/generator"
	"github.com/tordrt/scaffold/internal/logging"
	"github.com/tordrt/scaffold/internal/modules/todo"
	"github.com/tordrt/scaffold/internal/schema"
	"github.com/tordrt/scaffold/internal/shell"
)

// errDrift makes `scaffold check` exit non-zero without printing usage.
var errDrift = errors.New("database does not match the declared schemas")

// modules lists every feature module compiled into the binary.
func modules() []shell.Module {
	return []shell.Module{
		todo.Module(),
	}
}

func schemas() []*schema.Schema {
	var out []*schema.Schema
	for _, m := range modules() {
		out = append(out, m.Schemas...)
	}
	return out
}

type app struct {
	configPath string
	dbURL      string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "scaffold",
		Short:         "Serve and inspect modular CRUD applications",
		Long:          `Scaffold composes feature modules into one JSON API backed by PostgreSQL, MySQL, or SQLite.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.dbURL != "" {
				cfg.DatabaseURL = a.dbURL
			}
			a.cfg = cfg

			a.logger, err = logging.New(cfg.LogLevel, a.verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "scaffold.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVar(&a.dbURL, "db-url", "", "Database URL (postgres://, mysql://, or sqlite://), overrides the config")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		a.serveCmd(),
		a.checkCmd(),
		a.describeCmd(),
		a.generateCmd(),
	)
	return rootCmd
}

func (a *app) serveCmd() *cobra.Command {
	var listen string
	var createTables bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API of every module",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if listen == "" {
				listen = a.cfg.Listen
			}

			if createTables {
				if dbType, _, err := db.ParseURL(a.cfg.DatabaseURL); err == nil && dbType != db.SQLite.Name {
					return fmt.Errorf("--create-tables is only supported on SQLite")
				}
			}

			q, err := db.Open(ctx, a.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer func() {
				if err := q.Close(); err != nil {
					a.logger.Warn("failed to close database", zap.Error(err))
				}
			}()

			if createTables {
				if _, err := q.Exec(ctx, todo.SQLiteDDL); err != nil {
					return fmt.Errorf("failed to create tables: %w", err)
				}
			}

			s := shell.New(q, shell.WithLogger(a.logger), shell.WithPageSize(a.cfg.PageSize))
			for _, m := range modules() {
				if err := s.Register(m); err != nil {
					return err
				}
			}
			if err := s.Validate(); err != nil {
				return err
			}
			return s.ListenAndServe(ctx, listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&createTables, "create-tables", false, "Create the todo module tables before serving (SQLite only)")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	var namespace string
	var format string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Compare the declared entities with the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if namespace == "" {
				namespace = a.cfg.Namespace
			}

			issues, err := scaffold.CheckURL(cmd.Context(), a.cfg.DatabaseURL, schemas(), namespace)
			if err != nil {
				return err
			}
			a.logger.Debug("schema check finished", zap.Int("issues", len(issues)))

			if err := scaffold.WriteIssues(cmd.OutOrStdout(), issues, format); err != nil {
				return err
			}
			if scaffold.HasErrors(issues) {
				return errDrift
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&namespace, "schema", "s", "", "Database schema for unprefixed entities (default from config)")
	cmd.Flags().StringVarP(&format, "format", "f", scaffold.FormatText, "Output format: text or markdown")
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	var outputFile string
	var outputDir string
	var format string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Document the declared entities",
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputDir != "" && outputFile != "" {
				return fmt.Errorf("cannot use both --output-dir and --output flags")
			}

			opts := &scaffold.OutputOptions{
				Writer:    cmd.OutOrStdout(),
				OutputDir: outputDir,
				Format:    format,
			}
			if outputFile != "" {
				f, err := os.Create(outputFile)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer func() {
					if err := f.Close(); err != nil {
						a.logger.Warn("failed to close output file", zap.Error(err))
					}
				}()
				opts.Writer = f
			}

			if err := scaffold.Describe(schemas(), opts); err != nil {
				return fmt.Errorf("failed to format output: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "Output directory for multi-file output")
	cmd.Flags().StringVarP(&format, "format", "f", scaffold.FormatMarkdown, "Output format: text or markdown")
	return cmd
}

func (a *app) generateCmd() *cobra.Command {
	opts := generator.Options{}

	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate a new feature module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Name = args[0]
			files, err := generator.Generate(opts)
			if err != nil {
				return err
			}
			for _, f := range files {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			a.logger.Info("generated module", zap.String("module", opts.Name), zap.Int("files", len(files)))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "internal/modules", "Parent directory of the new module")
	cmd.Flags().StringVar(&opts.ModulePath, "module-path", generator.DefaultModulePath, "Go module path the generated code imports")
	cmd.Flags().StringVar(&opts.Locale, "locale", "en-US", "Locale of the generated catalog")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
