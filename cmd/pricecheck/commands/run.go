package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tilbudsradar/backend/internal/app"
	"github.com/tilbudsradar/backend/internal/domain"
	"github.com/tilbudsradar/backend/internal/infrastructure/store"
	"github.com/tilbudsradar/backend/internal/usecase"
)

var runLimit int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Look up the market price of every offered product once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		services, err := app.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer services.Close()

		names := usecase.DedupeNames(services.Runs.CollectNames(ctx))
		if runLimit > 0 && len(names) > runLimit {
			names = names[:runLimit]
		}
		if len(names) == 0 {
			color.Yellow("No product names found in the configured offer sources")
			return nil
		}

		bar := newProgressBar(len(names))
		run, err := services.Lookup.Run(ctx, names, func(name string, result domain.LookupResult, outcome domain.Outcome) {
			_ = bar.Add(1)
		})
		_ = bar.Finish()

		if run != nil {
			printSummary(os.Stdout, run)
			if fileStore, ok := services.Store.(*store.FileStore); ok {
				fmt.Fprintf(os.Stdout, "Results written to %s\n", fileStore.Path())
			}
		}
		if err != nil {
			return fmt.Errorf("lookup run: %w", err)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "look up at most this many products (0 = all)")
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Looking up prices"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("products"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

// printSummary writes the outcome counts of a run
func printSummary(w io.Writer, run *domain.PriceRun) {
	s := run.Stats
	bold := color.New(color.Bold)
	bold.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  Products:         %d\n", s.Products)
	color.New(color.FgGreen).Fprintf(w, "  Matched:          %d\n", s.Matched)
	color.New(color.FgYellow).Fprintf(w, "  No match:         %d\n", s.NoMatch)
	color.New(color.FgRed).Fprintf(w, "  Backend failures: %d\n", s.BackendFailures)
	fmt.Fprintf(w, "  Cache hits:       %d\n", s.CacheHits)
	fmt.Fprintf(w, "  Session recycles: %d\n", s.Recycles)
	if !run.FinishedAt.IsZero() && !run.StartedAt.IsZero() {
		fmt.Fprintf(w, "  Duration:         %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Second))
	}
}
