// Command cardimport analyzes and imports CSV files of flashcards into a
// local or shared collection.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/cardimport/internal/config"
	"github.com/JonMunkholm/cardimport/internal/core"
	"github.com/JonMunkholm/cardimport/internal/core/notetypes"
	"github.com/JonMunkholm/cardimport/internal/logging"
	"github.com/JonMunkholm/cardimport/internal/store"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailure    = 1
	exitUsage      = 2
	exitValidation = 3
	exitStore      = 4
)

// exitError carries a process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	driver     string
	sqlitePath string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(root.ErrOrStderr(), core.FormatUserError(err))
		}
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return exitFailure
	}
	return exitOK
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	root := &cobra.Command{
		Use:           "cardimport",
		Short:         "Import CSV files as flashcard notes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "YAML config file (default: $"+config.FileEnv+")")
	root.PersistentFlags().StringVar(&g.driver, "store", "", "Store driver: sqlite, postgres or memory")
	root.PersistentFlags().StringVar(&g.sqlitePath, "collection", "", "SQLite collection file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newAnalyzeCmd(&g),
		newImportCmd(&g),
		newStripCmd(),
		newNoteTypesCmd(&g),
		newDecksCmd(&g),
	)
	return root
}

// app is what a command needs to talk to the collection.
type app struct {
	cfg   *config.Config
	store store.Store
}

func (a *app) Close() error { return a.store.Close() }

func (a *app) importer() *core.Importer {
	return core.NewImporter(a.store, core.NewDetector(a.cfg.Import.SniffSample, a.cfg.Import.FallbackLines))
}

// loadConfig reads .env, the config file and the environment, then applies
// command-line overrides.
func loadConfig(g *globalOptions) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, withCode(exitUsage, err)
	}
	path := g.configFile
	if path == "" {
		path = os.Getenv(config.FileEnv)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	if g.driver != "" {
		cfg.Store.Driver = g.driver
	}
	if g.sqlitePath != "" {
		cfg.Store.SQLitePath = g.sqlitePath
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, withCode(exitUsage, err)
	}
	return cfg, nil
}

// openApp loads configuration, registers extra note types and opens the store.
func openApp(ctx context.Context, g *globalOptions) (*app, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	core.MaxFileSize = cfg.Import.MaxFileSize

	if cfg.Import.NoteTypeFile != "" {
		n, err := notetypes.RegisterFile(cfg.Import.NoteTypeFile)
		if err != nil {
			return nil, withCode(exitValidation, err)
		}
		logging.FromContext(ctx).Debug("note types loaded", "file", cfg.Import.NoteTypeFile, "count", n)
	}

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, withCode(exitStore, err)
	}
	return &app{cfg: cfg, store: st}, nil
}
