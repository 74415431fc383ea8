package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/gisc/internal/config"
	"github.com/okian/gisc/pkg/logger"
)

// ErrNoArchives is returned when import has nothing to read.
var ErrNoArchives = errors.New("no archive files given")

func newImportCommand(o *options) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "import [archive.json[.gz]...]",
		Short: "Load GitHub archive files into the event store",
		Long: `Reads hourly GitHub archive dumps (.json or .json.gz, one event per line,
2012 or 2015+ layout) and appends Push, Watch and Follow events to the
SQLite store. Re-importing a file is safe: known event ids are skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := o.cfg
			setIfChanged(cmd.Flags(), "batch-size", &cfg.Import.BatchSize, batch)
			if len(args) == 0 {
				args = cfg.Store.Archives
			}
			if len(args) == 0 {
				return ErrNoArchives
			}
			if cfg.Store.Driver == config.DriverMemory {
				return fmt.Errorf("%w: import needs a persistent store, got store.driver=%s", config.ErrInvalidConfig, cfg.Store.Driver)
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			began := time.Now()
			res, err := newImporter(cfg, store).Import(ctx, args...)
			if err != nil {
				return err
			}
			logger.Get().Info(ctx, "import finished",
				logger.Int("files", res.Files),
				logger.Int("inserted", res.Inserted),
				logger.Duration("elapsed", time.Since(began)),
			)

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Files", "Lines", "Inserted", "Duplicates", "Ignored", "Malformed"})
			tbl.AppendRow(table.Row{
				res.Files,
				humanize.Comma(int64(res.Lines)),
				humanize.Comma(int64(res.Inserted)),
				humanize.Comma(int64(res.Duplicates)),
				humanize.Comma(int64(res.Ignored)),
				humanize.Comma(int64(res.Malformed)),
			})
			tbl.Render()
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch-size", 0, "events per store write")
	return cmd
}
