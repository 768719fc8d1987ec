package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/sellhub/shopctl/internal/output"
)

// NewAccessCmd creates the access command group.
func NewAccessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "access",
		Short: "Inspect permissions, features, and billing",
		Long:  "Inspect what the current identity may do: the permission catalog, granted permissions, feature flags, and billing state.",
	}

	cmd.AddCommand(
		newAccessPermissionsCmd(),
		newAccessCheckCmd(),
		newAccessFeaturesCmd(),
		newAccessBillingCmd(),
	)

	return cmd
}

func newAccessPermissionsCmd() *cobra.Command {
	var mine bool

	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "List permissions",
		Long:  "List the permission catalog, or with --mine only the codes granted to the signed-in admin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			storeID, err := requireStore(a)
			if err != nil {
				return err
			}
			branchID := effectiveBranch(a)

			if mine {
				codes := a.Access.LoadGrantedPermissions(cmd.Context(), storeID, branchID)
				sort.Strings(codes)
				rows := make([]map[string]any, 0, len(codes))
				for _, code := range codes {
					rows = append(rows, map[string]any{"code": code})
				}
				return a.OK(rows, output.WithSummary(fmt.Sprintf("%d permissions granted", len(codes))))
			}

			catalog := a.Access.LoadPermissionCatalog(cmd.Context(), storeID, branchID)
			rows := make([]map[string]any, 0, len(catalog.Entries))
			for _, group := range catalog.GroupedEntries() {
				for _, e := range group.Entries {
					rows = append(rows, map[string]any{
						"code":    e.Code,
						"name":    e.Name,
						"group":   group.Group.Label,
						"enabled": e.Enabled,
					})
				}
			}
			return a.OK(rows, output.WithSummary(fmt.Sprintf("%d permissions in catalog", len(rows))))
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "Show only permissions granted to the current identity")

	return cmd
}

func newAccessCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <permission-code>",
		Short: "Check whether the current identity holds a permission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			storeID, err := requireStore(a)
			if err != nil {
				return err
			}

			a.Access.LoadGrantedPermissions(cmd.Context(), storeID, effectiveBranch(a))
			granted := a.Access.HasPermission(args[0])

			summary := "Denied"
			if granted {
				summary = "Granted"
			}
			return a.OK(map[string]any{
				"code":    args[0],
				"granted": granted,
			}, output.WithSummary(summary))
		},
	}
}

func newAccessFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features",
		Short: "Show the store's feature flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			storeID, err := requireStore(a)
			if err != nil {
				return err
			}

			features := a.Access.LoadStoreFeatures(cmd.Context(), storeID, effectiveBranch(a))
			if features == nil {
				return output.ErrAPI(0, "Store features could not be loaded")
			}

			names := make([]string, 0, len(features.Flags))
			for name := range features.Flags {
				names = append(names, name)
			}
			sort.Strings(names)

			rows := make([]map[string]any, 0, len(names))
			for _, name := range names {
				rows = append(rows, map[string]any{
					"feature": name,
					"enabled": features.Flags[name],
				})
			}
			return a.OK(rows, output.WithSummary(fmt.Sprintf("billing status: %s", features.BillingStatus)))
		},
	}
}

func newAccessBillingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "billing",
		Short: "Check whether billing currently permits feature use",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}
			storeID, err := requireStore(a)
			if err != nil {
				return err
			}

			features := a.Access.LoadStoreFeatures(cmd.Context(), storeID, effectiveBranch(a))
			check := a.Access.CheckBillingAccess()

			data := map[string]any{
				"has_access": check.HasAccess,
			}
			if check.Reason != "" {
				data["reason"] = check.Reason
			}
			if features != nil {
				data["billing_status"] = features.BillingStatus
				if features.BillingPaidUntil != nil {
					data["paid_until"] = features.BillingPaidUntil.Format(time.DateOnly)
				}
			}

			if !check.HasAccess {
				return a.OK(data, output.WithSummary("Billing does not permit access: "+check.Reason))
			}
			return a.OK(data, output.WithSummary("Billing OK"))
		},
	}
}
