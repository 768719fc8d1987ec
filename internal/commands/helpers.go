// Package commands implements the CLI commands.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sellhub/shopctl/internal/appctx"
	"github.com/sellhub/shopctl/internal/output"
)

// app pulls the application context out of the cobra context.
func app(cmd *cobra.Command) (*appctx.App, error) {
	a := appctx.FromContext(cmd.Context())
	if a == nil {
		return nil, fmt.Errorf("app not initialized")
	}
	return a, nil
}

// requireStore returns the effective store id, preferring the --store
// flag, then config, then the stored identity.
func requireStore(a *appctx.App) (string, error) {
	if a.Config.StoreID != "" {
		return a.Config.StoreID, nil
	}
	identity, err := a.Auth.Identity()
	if err != nil {
		return "", err
	}
	if identity.StoreID == "" {
		return "", output.ErrUsageHint("No store selected", "Pass --store or set store_id in the config")
	}
	return identity.StoreID, nil
}

// effectiveBranch returns the branch scope, empty for store-wide.
func effectiveBranch(a *appctx.App) string {
	return a.Config.BranchID
}

// decodeAny unmarshals raw JSON into a generic value for output.
func decodeAny(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
