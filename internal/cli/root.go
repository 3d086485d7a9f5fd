// Package cli implements the nswpipe command line
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/abelzeko/nsw-pipeline/internal/app"
	"github.com/abelzeko/nsw-pipeline/internal/config"
)

type options struct {
	configPath string
	useCache   bool
	endMonth   int
}

// NewRootCommand creates the nswpipe command tree writing its reports to out
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "nswpipe",
		Short:         "nswpipe acquires, caches and prepares the NSW epidemic datasets.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config.json5", "Configuration file; <name>.local.<ext> overrides it.")
	root.PersistentFlags().BoolVar(&opts.useCache, "cache", false, "Read datasets from the cache only, never from the network.")
	root.PersistentFlags().IntVar(&opts.endMonth, "end-month", 0, "Last month of the trend index, overriding the configuration.")

	root.AddCommand(newFetchCommand(opts), newRunCommand(opts), newStatusCommand(opts))
	return root
}

// ExecuteContext runs the command line and returns the error to report
func ExecuteContext(ctx context.Context, out io.Writer, args []string) error {
	root := NewRootCommand(out)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (o *options) build() (*app.App, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if o.endMonth != 0 {
		cfg.Sources.TrendEndMonth = o.endMonth
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return app.New(cfg, nil, config.NewLogger(cfg.LogLevel))
}
