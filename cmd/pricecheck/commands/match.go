package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tilbudsradar/backend/internal/app"
	"github.com/tilbudsradar/backend/internal/domain"
	"github.com/tilbudsradar/backend/internal/usecase"
)

var matchCmd = &cobra.Command{
	Use:   "match <product name> <title=price>...",
	Short: "Score candidate titles against a product name without searching",
	Example: `  pricecheck match "iPhone 16 Pro 256GB (sort)" \
    "Apple iPhone 16 Pro 256GB=8.999 kr." "Apple iPhone 16 Pro Max 256GB=10.499 kr."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		candidates, err := parseCandidates(args[1:])
		if err != nil {
			return err
		}

		matcher := app.NewMatcher(cfg.Matching, logger)
		query := usecase.CanonicalQuery(args[0])
		features := matcher.Analyze(query)
		scored := matcher.Evaluate(features, candidates)
		outcome := matcher.Select(features, scored)

		printMatch(os.Stdout, query, features, scored, outcome)
		return nil
	},
}

// parseCandidates reads "title=price text" arguments. The last '=' separates the price.
func parseCandidates(args []string) ([]domain.Candidate, error) {
	candidates := make([]domain.Candidate, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndex(arg, "=")
		if i <= 0 {
			return nil, fmt.Errorf("%w: candidate %q must look like title=price", domain.ErrInvalidRequest, arg)
		}
		candidates = append(candidates, domain.StaticCandidate{
			CardTitle: strings.TrimSpace(arg[:i]),
			CardPrice: strings.TrimSpace(arg[i+1:]),
		})
	}
	return candidates, nil
}

func printMatch(w io.Writer, query string, features usecase.Features, scored []domain.ScoredCandidate, outcome domain.Outcome) {
	fmt.Fprintf(w, "Query:    %s\n", query)
	fmt.Fprintf(w, "Storage:  %s\n", storageLabel(features.StorageGB))
	fmt.Fprintf(w, "Model:    %s\n\n", orDash(features.ModelToken))

	for _, s := range scored {
		line := fmt.Sprintf("  %.3f  %-50s %-14s %s", s.Score, s.Candidate.Title(), s.Candidate.PriceText(), storageLabel(s.StorageGB))
		if s.Disqualified() {
			color.New(color.FgHiBlack).Fprintf(w, "%s  [%s]\n", line, s.Reason)
			continue
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	switch outcome.Kind {
	case domain.OutcomeMatched:
		price := "no price"
		if outcome.Price != nil {
			price = fmt.Sprintf("%d kr.", *outcome.Price)
		}
		color.New(color.FgGreen).Fprintf(w, "Matched %q at %s\n", outcome.Winner.Candidate.Title(), price)
	default:
		color.New(color.FgYellow).Fprintln(w, "No match")
	}
}

func storageLabel(gb *int) string {
	if gb == nil {
		return "-"
	}
	return fmt.Sprintf("%dGB", *gb)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
