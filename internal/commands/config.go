package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sellhub/shopctl/internal/config"
	"github.com/sellhub/shopctl/internal/output"
)

var configKeys = []string{"base_url", "store_id", "branch_id", "format", "default_profile"}

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  "Read and write shopctl configuration. Values are layered: flags > environment > local > global > system.",
	}

	cmd.AddCommand(newConfigGetCmd(), newConfigSetCmd(), newConfigListCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			value, ok := configValue(a.Config, args[0])
			if !ok {
				return output.ErrUsage(fmt.Sprintf("Unknown config key %q", args[0]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a configuration value to the global config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if !isConfigKey(key) {
				return output.ErrUsage(fmt.Sprintf("Unknown config key %q", key))
			}

			a, err := app(cmd)
			if err != nil {
				return err
			}

			if err := writeGlobalConfig(key, value); err != nil {
				return err
			}
			return a.OK(map[string]any{key: value}, output.WithSummary(fmt.Sprintf("Set %s", key)))
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all configuration values and where they came from",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			keys := append([]string(nil), configKeys...)
			sort.Strings(keys)

			rows := make([]map[string]any, 0, len(keys))
			for _, key := range keys {
				value, _ := configValue(a.Config, key)
				source := a.Config.Sources[key]
				if source == "" {
					source = string(config.SourceDefault)
				}
				rows = append(rows, map[string]any{
					"key":    key,
					"value":  value,
					"source": source,
				})
			}
			return a.OK(rows)
		},
	}
}

func isConfigKey(key string) bool {
	for _, k := range configKeys {
		if k == key {
			return true
		}
	}
	return false
}

func configValue(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "base_url":
		return cfg.BaseURL, true
	case "store_id":
		return cfg.StoreID, true
	case "branch_id":
		return cfg.BranchID, true
	case "format":
		return cfg.Format, true
	case "default_profile":
		return cfg.DefaultProfile, true
	default:
		return "", false
	}
}

// writeGlobalConfig merges one key into the global config file,
// preserving unknown fields written by other versions.
func writeGlobalConfig(key, value string) error {
	dir := config.GlobalConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	path := filepath.Join(dir, "config.json")

	values := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(data, &values)
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
