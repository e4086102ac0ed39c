// Package cli implements the flatten command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/flatten/config"
)

type rootOptions struct {
	configFile string
	envFiles   []string
}

// NewRootCommand returns the flatten command with all subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "flatten",
		Short: "Selective full-page cache for HTTP sites.",
		Long: `flatten caches rendered pages of an upstream site forever and serves
them without calling the upstream again, until they are flushed.

Pages are selected with only/ignore patterns, keyed by locale and path,
and flushed by pattern, by named route or by named action.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (YAML); FLATTEN_* environment variables override it")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "dotenv files loaded before the config; variables already set win")

	cmd.AddCommand(
		newServeCommand(opts),
		newFlushCommand(opts),
		newKeyCommand(opts),
		newTokenCommand(opts),
	)
	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) load() (*config.Config, error) {
	if len(o.envFiles) > 0 {
		if err := godotenv.Load(o.envFiles...); err != nil {
			return nil, fmt.Errorf("env file: %w", err)
		}
	}
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
