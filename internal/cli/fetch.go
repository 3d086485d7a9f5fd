package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelzeko/nsw-pipeline/internal/app"
	"github.com/abelzeko/nsw-pipeline/internal/entities"
	"github.com/abelzeko/nsw-pipeline/internal/usecases"
)

func newFetchCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "fetch [dataset]",
		Short:     "Acquires one dataset, or all of them in order.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: entities.DatasetNames,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build()
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 {
				datasets, err := a.Acquirer.FetchAll(cmd.Context(), opts.useCache)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), usecases.FormatRefreshSummary(datasets))
				return nil
			}

			rows, err := fetchOne(cmd.Context(), a, args[0], opts.useCache)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", args[0], rows)
			return nil
		},
	}
}

func fetchOne(ctx context.Context, a *app.App, dataset string, useCache bool) (int, error) {
	switch dataset {
	case entities.CasesDataset:
		records, err := a.Acquirer.FetchCaseCounts(ctx, useCache)
		return len(records), err
	case entities.AnnouncementsDataset:
		records, err := a.Acquirer.FetchAnnouncements(ctx, useCache)
		return len(records), err
	case entities.TrendIndexDataset:
		records, err := a.Acquirer.FetchTrendIndex(ctx, useCache, a.Config.Sources.TrendEndMonth)
		return len(records), err
	case entities.RestrictionsDataset:
		events, err := a.Acquirer.FetchRestrictionTimeline(ctx, useCache)
		return len(events), err
	case entities.OECDRestrictionsDataset:
		table, err := a.Acquirer.FetchOECDRestrictions(ctx, useCache)
		if err != nil {
			return 0, err
		}
		return len(table.Rows), nil
	default:
		return 0, fmt.Errorf("unknown dataset %q, expected one of %s", dataset, strings.Join(entities.DatasetNames, ", "))
	}
}
