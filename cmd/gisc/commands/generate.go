package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/okian/gisc/internal/synth"
)

func newGenerateCommand(_ *options) *cobra.Command {
	cfg := synth.DefaultConfig()
	cmd := &cobra.Command{
		Use:   "generate <out.json[.gz]>",
		Short: "Write a synthetic GitHub archive",
		Long: `Writes a deterministic archive in the 2012 layout: a few heavily-followed
influencers whose watches are followed by bursts of watches from other
users, over background activity. Output ending in .gz is gzipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := synth.WriteFile(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(),
				"wrote %s: %d events (%d follows, %d watches, %d pushes)\n",
				args[0], st.Events, st.Follows, st.Watches, st.Pushes)
			return nil
		},
	}
	f := cmd.Flags()
	f.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")
	f.IntVar(&cfg.Hours, "hours", cfg.Hours, "archive span in hours")
	f.IntVar(&cfg.Users, "users", cfg.Users, "ordinary users")
	f.IntVar(&cfg.Influencers, "influencers", cfg.Influencers, "heavily-followed users")
	f.IntVar(&cfg.Repos, "repos", cfg.Repos, "repositories")
	f.StringSliceVar(&cfg.Languages, "languages", cfg.Languages, "repository languages")
	f.IntVar(&cfg.BaseRate, "base-rate", cfg.BaseRate, "background watches per repository per hour")
	f.IntVar(&cfg.Burst, "burst", cfg.Burst, "watches following each influencer watch")
	f.IntVar(&cfg.Influence, "influence", cfg.Influence, "repositories each influencer watches")
	return cmd
}
