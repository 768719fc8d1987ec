package commands

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/sellhub/shopctl/internal/appctx"
	"github.com/sellhub/shopctl/internal/dateparse"
	"github.com/sellhub/shopctl/internal/output"
)

// The backend is not consistent about list envelopes: some endpoints
// put the array straight in data, some nest it under data.data, some
// return a keyed object of records. Each resource command normalizes
// its own endpoint's shape; the client itself stays envelope-agnostic.

// NewOrdersCmd creates the orders command group.
func NewOrdersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Work with orders",
	}
	cmd.AddCommand(newOrdersListCmd(), newResourceGetCmd("order", "/orders"))
	return cmd
}

func newOrdersListCmd() *cobra.Command {
	var status, since, until string
	var page, limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders for the current store",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			if status != "" {
				query.Set("status", status)
			}
			if since != "" {
				date := dateparse.Parse(since)
				if date == "" {
					return output.ErrUsage(fmt.Sprintf("Cannot parse date %q", since))
				}
				query.Set("date_from", date)
			}
			if until != "" {
				date := dateparse.Parse(until)
				if date == "" {
					return output.ErrUsage(fmt.Sprintf("Cannot parse date %q", until))
				}
				query.Set("date_to", date)
			}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}

			return listResource(cmd, a, "/orders", query, "orders")
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by order status")
	cmd.Flags().StringVar(&since, "since", "", `Only orders on or after this date ("yesterday", "last week", 2026-01-15)`)
	cmd.Flags().StringVar(&until, "until", "", "Only orders on or before this date")
	cmd.Flags().IntVar(&page, "page", 0, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size")

	return cmd
}

// NewProductsCmd creates the products command group.
func NewProductsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Work with products",
	}
	cmd.AddCommand(newProductsListCmd(), newResourceGetCmd("product", "/products"))
	return cmd
}

func newProductsListCmd() *cobra.Command {
	var search string
	var page int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List products in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			query := url.Values{}
			if search != "" {
				query.Set("search", search)
			}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}

			return listResource(cmd, a, "/products", query, "products")
		},
	}

	cmd.Flags().StringVar(&search, "search", "", "Filter by name or SKU")
	cmd.Flags().IntVar(&page, "page", 0, "Page number")

	return cmd
}

// NewBranchesCmd creates the branches command group.
func NewBranchesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "Work with store branches",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List branches of the current store",
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := app(cmd)
				if err != nil {
					return err
				}
				return listResource(cmd, a, "/branches", nil, "branches")
			},
		},
		newResourceGetCmd("branch", "/branches"),
	)
	return cmd
}

func newResourceGetCmd(noun, endpoint string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: fmt.Sprintf("Show one %s", noun),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			resp, err := a.API.Get(cmd.Context(), endpoint+"/"+url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			env, err := resp.Envelope()
			if err != nil {
				return a.OK(decodeAny(resp.Data))
			}
			return a.OK(decodeAny(env.Data))
		},
	}
}

func listResource(cmd *cobra.Command, a *appctx.App, endpoint string, query url.Values, noun string) error {
	path := endpoint
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	resp, err := a.API.Get(cmd.Context(), path)
	if err != nil {
		return err
	}

	env, err := resp.Envelope()
	if err != nil {
		return a.OK(decodeAny(resp.Data))
	}

	rows := normalizeList(env.Data)
	opts := []output.ResponseOption{
		output.WithSummary(fmt.Sprintf("%d %s", len(rows), noun)),
	}
	if len(env.Pagination) > 0 {
		opts = append(opts, output.WithMeta("pagination", decodeAny(env.Pagination)))
	}
	return a.OK(rows, opts...)
}

// normalizeList flattens the endpoint-specific list shapes into a
// plain slice of records.
func normalizeList(data json.RawMessage) []map[string]any {
	if len(data) == 0 {
		return nil
	}

	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err == nil {
		return rows
	}

	var nested struct {
		Data  []map[string]any `json:"data"`
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(data, &nested); err == nil {
		if nested.Data != nil {
			return nested.Data
		}
		if nested.Items != nil {
			return nested.Items
		}
	}

	// Keyed object of records: {"15": {...}, "16": {...}}.
	var keyed map[string]map[string]any
	if err := json.Unmarshal(data, &keyed); err == nil && len(keyed) > 0 {
		rows = make([]map[string]any, 0, len(keyed))
		for id, record := range keyed {
			if record == nil {
				continue
			}
			if _, hasID := record["id"]; !hasID {
				record["id"] = id
			}
			rows = append(rows, record)
		}
		return rows
	}

	return nil
}
