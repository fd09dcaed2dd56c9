package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tilbudsradar/backend/internal/app"
	"github.com/tilbudsradar/backend/internal/domain"
	"github.com/tilbudsradar/backend/internal/infrastructure/offers"
)

var listNames bool

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Show the product names read from each offer file",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var files []*offers.FileSource
		var sources []domain.OfferSource
		for _, s := range app.SourceSpecs(cfg.Sources) {
			src := offers.NewFileSource(s.Provider, s.Path, s.NameField, logger)
			files = append(files, src)
			sources = append(sources, src)
		}

		for _, src := range files {
			found, err := src.Offers(ctx)
			if err != nil {
				color.New(color.FgRed).Fprintf(os.Stdout, "%-12s %s: %v\n", src.Name(), src.Path, err)
				continue
			}
			printOffers(os.Stdout, src, found, listNames)
		}

		names, err := offers.NewCatalog(sources, logger).ProductNames(ctx)
		if err != nil {
			return err
		}
		color.New(color.Bold).Fprintf(os.Stdout, "%d distinct product names\n", len(names))
		return nil
	},
}

func init() {
	sourcesCmd.Flags().BoolVar(&listNames, "names", false, "print every product name")
}

func printOffers(w io.Writer, src *offers.FileSource, found []domain.Offer, withNames bool) {
	fmt.Fprintf(w, "%-12s %4d  %s\n", src.Name(), len(found), src.Path)
	if !withNames {
		return
	}
	for _, offer := range found {
		fmt.Fprintf(w, "    %s\n", offer.ProductName)
	}
}
