package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/gisc/internal/adapters/repository"
	"github.com/okian/gisc/internal/app"
)

func newTopCommand(o *options) *cobra.Command {
	var k int
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List the most-followed actors",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := o.cfg
			setIfChanged(cmd.Flags(), "top", &cfg.Analysis.Top, k)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			ranks, err := app.NewSelector(store, repository.NewTreapStore()).Select(ctx, cfg.Analysis.Top)
			if err != nil {
				return err
			}

			tbl := table.NewWriter()
			tbl.SetOutputMirror(cmd.OutOrStdout())
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"#", "Actor", "Followers"})
			for _, r := range ranks {
				tbl.AppendRow(table.Row{r.Rank, r.Actor, humanize.Comma(int64(r.Followers))})
			}
			tbl.Render()
			return nil
		},
	}
	cmd.Flags().IntVarP(&k, "top", "k", 0, "number of actors; 0 for all")
	return cmd
}
