package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"

	"github.com/sellhub/shopctl/internal/api"
	"github.com/sellhub/shopctl/internal/output"
	"github.com/sellhub/shopctl/internal/tui"
)

// NewAPICmd creates the raw API escape-hatch command.
func NewAPICmd() *cobra.Command {
	var (
		method   string
		body     string
		headers  []string
		jqFilter string
		noRetry  bool
		yes      bool
	)

	cmd := &cobra.Command{
		Use:   "api <endpoint>",
		Short: "Make a raw authenticated API request",
		Long: `Make a raw request against the backend with the session token and
tenant headers attached. The response envelope is printed untouched,
optionally filtered with a jq expression.`,
		Example: `  shopctl api /orders
  shopctl api /orders --jq '.data[].id'
  shopctl api /products -X POST -d '{"name":"Mug","price":900}'
  shopctl api /orders/15 -X DELETE --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app(cmd)
			if err != nil {
				return err
			}

			payload, err := readBody(body)
			if err != nil {
				return err
			}

			hdrs, err := parseHeaders(headers)
			if err != nil {
				return err
			}

			if strings.EqualFold(method, http.MethodDelete) && !yes {
				if !term.IsTerminal(os.Stdin.Fd()) {
					return output.ErrUsageHint("Refusing to send DELETE without confirmation",
						"Re-run with --yes to confirm.")
				}
				confirmed, err := tui.ConfirmDangerous(fmt.Sprintf("Send DELETE %s?", args[0]))
				if err != nil {
					return err
				}
				if !confirmed {
					return output.ErrUsage("Aborted")
				}
			}

			rc := api.RequestContext{
				Endpoint: args[0],
				Method:   strings.ToUpper(method),
				Body:     payload,
				StoreID:  a.Config.StoreID,
				BranchID: a.Config.BranchID,
				Headers:  hdrs,
			}

			var resp *api.Response
			if noRetry {
				resp, err = a.API.ExecuteNoRefresh(cmd.Context(), rc)
			} else {
				resp, err = a.API.Execute(cmd.Context(), rc)
			}
			if err != nil {
				return err
			}

			if jqFilter != "" {
				return runJQ(cmd.OutOrStdout(), jqFilter, resp.Data)
			}
			return a.OK(decodeAny(resp.Data))
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&body, "data", "d", "", "Request body (JSON string, @file, or - for stdin)")
	cmd.Flags().StringArrayVarP(&headers, "header", "H", nil, "Extra header in 'Key: Value' form (repeatable)")
	cmd.Flags().StringVar(&jqFilter, "jq", "", "Filter the response with a jq expression")
	cmd.Flags().BoolVar(&noRetry, "no-retry", false, "Fail on 401 instead of refreshing and retrying")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt for DELETE requests")

	return cmd
}

// readBody resolves the -d flag: a literal JSON string, @file, or -
// for stdin.
func readBody(flag string) (json.RawMessage, error) {
	switch {
	case flag == "":
		return nil, nil
	case flag == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	case strings.HasPrefix(flag, "@"):
		data, err := os.ReadFile(flag[1:])
		if err != nil {
			return nil, fmt.Errorf("reading body file: %w", err)
		}
		return data, nil
	default:
		return json.RawMessage(flag), nil
	}
}

func parseHeaders(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		key, value, found := strings.Cut(h, ":")
		if !found || strings.TrimSpace(key) == "" {
			return nil, output.ErrUsage(fmt.Sprintf("Invalid header %q, expected 'Key: Value'", h))
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers, nil
}

// runJQ applies a jq expression to the response and prints each
// result on its own line, strings unquoted like jq -r.
func runJQ(w io.Writer, filter string, data json.RawMessage) error {
	query, err := gojq.Parse(filter)
	if err != nil {
		return output.ErrUsage(fmt.Sprintf("Invalid jq expression: %v", err))
	}

	var input any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}

	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}
		if s, isString := v.(string); isString {
			fmt.Fprintln(w, s)
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(encoded))
	}
	return nil
}
