package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abelzeko/nsw-pipeline/internal/entities"
)

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Runs acquisition, cleaning, preprocessing and training once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.build()
			if err != nil {
				return err
			}
			defer a.Close()

			model, err := a.Pipeline.Run(cmd.Context(), opts.useCache)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "model %s trained on %d rows\n", model.Name, model.Rows)
			if model.Rows > 0 {
				fmt.Fprintf(out, "range: %s to %s\n", entities.FormatDate(model.From), entities.FormatDate(model.To))
			}
			fmt.Fprintf(out, "features: %s\n", strings.Join(model.Features, ", "))
			return nil
		},
	}
}
