package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abelzeko/nsw-pipeline/internal/usecases"
)

func newStatusCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Reports the cache and refresh state of every dataset.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build()
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := a.Datasets.GetAllStatuses()
			if err != nil {
				return err
			}
			for _, s := range statuses {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n\n", usecases.FormatDatasetStatus(s))
			}
			return nil
		},
	}
}
