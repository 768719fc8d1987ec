// Package cli wires the cobra command tree and global flags.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sellhub/shopctl/internal/appctx"
	"github.com/sellhub/shopctl/internal/commands"
	"github.com/sellhub/shopctl/internal/config"
	"github.com/sellhub/shopctl/internal/output"
	"github.com/sellhub/shopctl/internal/version"
)

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	var flags appctx.GlobalFlags

	cmd := &cobra.Command{
		Use:           "shopctl",
		Short:         "Command-line admin console for your store",
		Long:          "shopctl manages orders, products, branches, and access control against the commerce backend.",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip setup for help and version commands
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}

			format := ""
			if flags.JSON {
				format = "json"
			}
			overrides := config.FlagOverrides{
				Store:   flags.Store,
				Branch:  flags.Branch,
				Profile: flags.Profile,
				Format:  format,
			}
			cfg, err := config.Load(overrides)
			if err != nil {
				return err
			}

			// Profile overlay, then env and flags re-applied so they
			// keep final say over the profile's values.
			profile := flags.Profile
			if profile == "" {
				profile = cfg.DefaultProfile
			}
			if profile != "" {
				if err := cfg.ApplyProfile(profile); err != nil {
					if flags.Profile != "" {
						return output.ErrUsage(err.Error())
					}
				} else {
					config.LoadFromEnv(cfg)
					config.ApplyOverrides(cfg, overrides)
				}
			}

			app := appctx.NewApp(cfg)
			app.Flags = flags
			app.ApplyFlags()

			cmd.SetContext(appctx.WithApp(cmd.Context(), app))
			return nil
		},
	}

	// Allow flags anywhere in the command line
	cmd.SetVersionTemplate(version.Full() + "\n")

	cmd.Flags().SetInterspersed(true)
	cmd.PersistentFlags().SetInterspersed(true)

	// Accept the long-form aliases used in scripts and docs.
	cmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		switch name {
		case "store-id":
			name = "store"
		case "branch-id":
			name = "branch"
		}
		return pflag.NormalizedName(name)
	})

	// Output format flags
	cmd.PersistentFlags().BoolVarP(&flags.JSON, "json", "j", false, "Output as JSON")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Output data only, no envelope")
	cmd.PersistentFlags().BoolVar(&flags.Styled, "styled", false, "Force styled output (ANSI colors)")

	// Context flags
	cmd.PersistentFlags().StringVarP(&flags.Store, "store", "s", "", "Store ID to scope requests to")
	cmd.PersistentFlags().StringVarP(&flags.Branch, "branch", "b", "", "Branch ID to scope requests to")
	cmd.PersistentFlags().StringVar(&flags.Profile, "profile", "", "Named config profile (production, staging, ...)")

	// Behavior flags
	cmd.PersistentFlags().CountVarP(&flags.Verbose, "verbose", "v", "Verbose output (-v for requests, -vv for bodies)")
	cmd.PersistentFlags().BoolVar(&flags.Stats, "stats", false, "Attach session statistics to the output")

	return cmd
}

// Execute runs the root command and exits with the error's code.
func Execute() {
	cmd := NewRootCmd()

	cmd.AddCommand(
		commands.NewAuthCmd(),
		commands.NewAccessCmd(),
		commands.NewOrdersCmd(),
		commands.NewProductsCmd(),
		commands.NewBranchesCmd(),
		commands.NewAPICmd(),
		commands.NewConfigCmd(),
	)

	executedCmd, err := cmd.ExecuteC()
	if err == nil {
		return
	}

	apiErr := output.AsError(err)
	if app := appctx.FromContext(executedCmd.Context()); app != nil {
		_ = app.Err(err)
	} else {
		output.PrintStderr("Error: %s", apiErr.Message)
		if apiErr.Hint != "" {
			output.PrintStderr("%s", apiErr.Hint)
		}
	}
	os.Exit(apiErr.ExitCode())
}
