package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/flatten/flatten"
)

func newKeyCommand(root *rootOptions) *cobra.Command {
	var showRule bool
	cmd := &cobra.Command{
		Use:   "key <path>",
		Short: "Print the cache key of a request path",
		Example: `  flatten key /fr/blog/hello
  flatten key --rules shop/cart`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			fc := cfg.Flatten()

			path := strings.Trim(args[0], "/")
			if path == "" {
				path = flatten.RootPath
			}
			locale := flatten.LocaleFromPath(path, fc.DefaultLocale)
			printf(cmd.OutOrStdout(), "%s\n", flatten.DeriveKey(path, locale, fc.Folder, fc.Localize))

			if showRule {
				rules, err := flatten.NewRules(fc.RuleMode, fc.Only, fc.Ignore)
				if err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "cached: %t\n", !fc.Disabled() && rules.ShouldCache(path))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showRule, "rules", false, "also report whether the path would be cached")
	return cmd
}
