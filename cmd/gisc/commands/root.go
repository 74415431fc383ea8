// Package commands implements the gisc subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/gisc/internal/adapters/archive"
	"github.com/okian/gisc/internal/adapters/eventstore"
	"github.com/okian/gisc/internal/config"
	"github.com/okian/gisc/internal/domain/dedupe"
	"github.com/okian/gisc/pkg/logger"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configPath string
	logLevel   string
	logFormat  string
	logsDir    string
	driver     string
	dsn        string
	archives   []string

	cfg *config.Config
}

// NewRootCommand builds the gisc command tree.
func NewRootCommand() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:   "gisc",
		Short: "Measure whether influential GitHub actors speed up repository growth",
		Long: `gisc imports GitHub archive events, selects the most-followed actors and
compares each repository's watcher growth after their watch with a
polynomial fitted to the growth before it.

Commands:
  import    Load archive files into the event store
  analyze   Evaluate impact windows and render charts
  top       List the most-followed actors
  serve     Serve the latest analysis over HTTP
  generate  Write a synthetic archive`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = logger.Sync()
		},
	}

	f := root.PersistentFlags()
	f.StringVarP(&o.configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
	f.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&o.logFormat, "log-format", "", "log format: text or json")
	f.StringVar(&o.logsDir, "logs-dir", "", "also write logs to <dir>/"+logger.FileName)
	f.StringVar(&o.driver, "store", "", "event store driver: sqlite or memory")
	f.StringVar(&o.dsn, "dsn", "", "SQLite database path")
	f.StringSliceVar(&o.archives, "archive", nil, "archive to load into a memory store at startup (repeatable)")

	root.AddCommand(
		newImportCommand(o),
		newAnalyzeCommand(o),
		newTopCommand(o),
		newServeCommand(o),
		newGenerateCommand(o),
		newVersionCommand(),
	)
	return root
}

func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context(), o.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	setIfChanged(flags, "log-level", &cfg.LogLevel, o.logLevel)
	setIfChanged(flags, "log-format", &cfg.LogFormat, o.logFormat)
	setIfChanged(flags, "logs-dir", &cfg.LogsDir, o.logsDir)
	setIfChanged(flags, "store", &cfg.Store.Driver, o.driver)
	setIfChanged(flags, "dsn", &cfg.Store.DSN, o.dsn)
	setIfChanged(flags, "archive", &cfg.Store.Archives, o.archives)

	if err := logger.Init(
		logger.WithFormat(cfg.LogFormat),
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithDir(cfg.LogsDir),
	); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: log_level=%s", config.ErrInvalidConfig, cfg.LogLevel)
	}
	o.cfg = cfg
	return nil
}

// openStore opens the configured store. A memory store is filled from
// store.archives.
func openStore(ctx context.Context, cfg *config.Config) (eventstore.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		s := eventstore.NewMemStore()
		if len(cfg.Store.Archives) == 0 {
			return s, nil
		}
		if _, err := newImporter(cfg, s).Import(ctx, cfg.Store.Archives...); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return eventstore.OpenSQLite(cfg.Store.DSN, eventstore.WithBatchSize(cfg.Import.BatchSize))
	}
}

func newImporter(cfg *config.Config, w eventstore.Writer) *archive.Importer {
	return archive.NewImporter(w,
		archive.WithBatchSize(cfg.Import.BatchSize),
		archive.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(cfg.Import.DedupeSize))),
		archive.WithLogger(logger.Named("import")),
	)
}
