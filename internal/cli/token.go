package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/flatten/admin"
)

func newTokenCommand(root *rootOptions) *cobra.Command {
	var (
		principal string
		roles     []string
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API bearer token signed with admin.jwt_secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if cfg.Admin.JWTSecret == "" {
				return errors.New("token: admin.jwt_secret is not set")
			}
			j, err := newJWT(cfg.Admin)
			if err != nil {
				return err
			}
			tok, err := j.Sign(principal, roles, ttl)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s\n", tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&principal, "principal", "operator", "token subject")
	cmd.Flags().StringSliceVar(&roles, "role", []string{admin.FlushRole}, "granted roles")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
