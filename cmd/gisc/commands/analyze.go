package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/okian/gisc/internal/adapters/render"
	"github.com/okian/gisc/internal/app"
	"github.com/okian/gisc/internal/config"
	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/logger"
)

// analysisFlags override config keys for analyze and serve.
type analysisFlags struct {
	top          int
	language     string
	degree       int
	threshold    float64
	significance string
	genuineness  string
	maxStdDev    float64
	workers      int
	outDir       string
	format       string
	clean        bool
	dryRun       bool
}

func (a *analysisFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVarP(&a.top, "top", "k", 0, "number of most-followed actors; 0 for all")
	f.StringVarP(&a.language, "language", "l", "", "only repositories in this language")
	f.IntVar(&a.degree, "degree", 0, "degree of the fitted polynomial")
	f.Float64Var(&a.threshold, "threshold", 0, "deviation threshold")
	f.StringVar(&a.significance, "significance", "", "deviation test: max_abs, relative or net")
	f.StringVar(&a.genuineness, "genuineness", "", "genuineness strategy: dispersion or weighted")
	f.Float64Var(&a.maxStdDev, "max-stddev", 0, "largest delta stddev still considered genuine")
	f.IntVarP(&a.workers, "workers", "w", 0, "concurrent window evaluations")
	f.StringVarP(&a.outDir, "out", "o", "", "chart output directory")
	f.StringVar(&a.format, "format", "", "chart file format: html or htm")
	f.BoolVar(&a.clean, "clean", false, "empty the output directory first")
	f.BoolVar(&a.dryRun, "dry-run", false, "evaluate without rendering charts")
}

func (a *analysisFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	setIfChanged(f, "top", &cfg.Analysis.Top, a.top)
	setIfChanged(f, "language", &cfg.Analysis.Language, a.language)
	setIfChanged(f, "degree", &cfg.Analysis.Degree, a.degree)
	setIfChanged(f, "threshold", &cfg.Analysis.DeviationThreshold, a.threshold)
	setIfChanged(f, "significance", &cfg.Analysis.Significance, a.significance)
	setIfChanged(f, "genuineness", &cfg.Genuineness.Strategy, a.genuineness)
	setIfChanged(f, "max-stddev", &cfg.Genuineness.MaxStdDev, a.maxStdDev)
	setIfChanged(f, "workers", &cfg.Analysis.Workers, a.workers)
	setIfChanged(f, "out", &cfg.Output.Dir, a.outDir)
	setIfChanged(f, "format", &cfg.Output.Format, a.format)
	setIfChanged(f, "clean", &cfg.Output.Clean, a.clean)
	setIfChanged(f, "dry-run", &cfg.Output.DryRun, a.dryRun)
}

// serviceOptions builds the renderer unless rendering is disabled.
func serviceOptions(cfg *config.Config) ([]app.Option, error) {
	opts := []app.Option{app.WithLogger(logger.Named("analysis"))}
	if cfg.Output.DryRun {
		return opts, nil
	}
	if cfg.Output.Clean {
		if err := render.Clean(cfg.Output.Dir); err != nil {
			return nil, err
		}
	}
	r, err := render.NewHTMLRenderer(cfg.Output.Dir, render.WithFormat(cfg.Output.Format))
	if err != nil {
		return nil, err
	}
	return append(opts, app.WithRenderer(r)), nil
}

func newAnalyzeCommand(o *options) *cobra.Command {
	var (
		flags  analysisFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Evaluate influencer impact windows",
		Long: `Selects the most-followed actors, opens a 24h window after each of their
watches, fits a polynomial to the repository's earlier watcher growth and
flags windows whose observed growth departs from the prediction. Eligible
windows are rendered as HTML charts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := o.cfg
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			opts, err := serviceOptions(cfg)
			if err != nil {
				return err
			}
			svc, err := app.New(cfg, store, opts...)
			if err != nil {
				return err
			}
			rep, err := svc.Run(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printReport(out, rep)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

var outcomeColor = map[model.Outcome]*color.Color{
	model.OutcomeRendered:                   color.New(color.FgGreen),
	model.OutcomeEligible:                   color.New(color.FgGreen),
	model.OutcomeSkippedNotEligible:         color.New(color.FgYellow),
	model.OutcomeSkippedInsufficientHistory: color.New(color.FgHiBlack),
}

func printReport(w io.Writer, rep *app.Report) {
	rank := make(map[string]int, len(rep.Influencers))
	for _, r := range rep.Influencers {
		rank[r.Actor] = r.Rank
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", "Actor", "Repository", "Watched", "Baseline", "Growth", "Max dev", "Outcome"})
	for _, v := range rep.Verdicts {
		tbl.AppendRow(table.Row{
			rank[v.Actor],
			v.Actor,
			v.Repo,
			humanize.Time(v.Start),
			humanize.Comma(int64(v.Baseline)),
			fmt.Sprintf("+%.0f", v.Delta()),
			fmt.Sprintf("%.2f", v.MaxDeviation),
			outcomeColor[v.Outcome].Sprint(v.Outcome),
		})
	}
	tbl.AppendFooter(table.Row{"", "", fmt.Sprintf("Total: %d windows", len(rep.Verdicts))})
	tbl.Render()

	gt := table.NewWriter()
	gt.SetOutputMirror(w)
	gt.SetStyle(table.StyleLight)
	gt.AppendHeader(table.Row{"Actor", "Windows", "Std dev", "Genuine"})
	for _, g := range rep.Genuineness {
		verdict := color.New(color.FgHiBlack).Sprint("insufficient")
		switch {
		case g.Sufficient && g.Genuine:
			verdict = color.New(color.FgGreen).Sprint("yes")
		case g.Sufficient:
			verdict = color.New(color.FgRed).Sprint("no")
		}
		gt.AppendRow(table.Row{g.Actor, len(g.Deltas), fmt.Sprintf("%.2f", g.StdDev), verdict})
	}
	gt.Render()

	fmt.Fprintf(w, "run %s finished in %s\n", rep.RunID, rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
}
