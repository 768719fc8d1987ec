package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/term"
	"github.com/muesli/termenv"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool // whether to emit ANSI styling

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style

	Header lipgloss.Style
	Cell   lipgloss.Style
}

// NewRenderer creates a renderer. Styling is enabled when writing to a TTY,
// or when forceStyled is true. NO_COLOR disables styling regardless.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, isTerminal := terminalInfo(w)
	styled := (isTerminal || forceStyled) && os.Getenv("NO_COLOR") == ""

	if styled {
		lipgloss.SetColorProfile(termenv.TrueColor)
	} else {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	r := &Renderer{width: width, styled: styled}

	r.Summary = lipgloss.NewStyle().Bold(true)
	r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Italic(true)
	r.Success = lipgloss.NewStyle().Foreground(lipgloss.Color("40"))
	r.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	r.Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("75"))
	r.Cell = lipgloss.NewStyle().PaddingRight(2)

	return r
}

func terminalInfo(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok {
		return 80, false
	}
	if !term.IsTerminal(f.Fd()) {
		return 80, false
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil || width <= 0 {
		return 80, true
	}
	return width, true
}

// RenderResponse writes a success response for human consumption.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	if resp.Summary != "" {
		fmt.Fprintln(w, r.Summary.Render(resp.Summary))
	}

	switch data := normalizeData(resp.Data).(type) {
	case []map[string]any:
		r.renderTable(w, data)
	case map[string]any:
		r.renderObject(w, data)
	case nil:
		// Summary-only responses are fine.
	default:
		fmt.Fprintln(w, fmt.Sprint(data))
	}

	return nil
}

// RenderError writes an error response for human consumption.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	fmt.Fprintln(w, r.Error.Render("Error: ")+resp.Error)
	if resp.Hint != "" {
		for _, line := range strings.Split(resp.Hint, "\n") {
			fmt.Fprintln(w, r.Hint.Render("  "+line))
		}
	}
	return nil
}

// StatusStyle returns the style to use for a billing status value.
func (r *Renderer) StatusStyle(status string) lipgloss.Style {
	switch status {
	case "active":
		return r.Success
	case "pending":
		return r.Warning
	default:
		return r.Error
	}
}

func (r *Renderer) renderTable(w io.Writer, rows []map[string]any) {
	if len(rows) == 0 {
		fmt.Fprintln(w, r.Muted.Render("(no results)"))
		return
	}

	cols := columnOrder(rows)

	t := table.New().
		Headers(cols...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			return r.Cell
		})

	for _, row := range rows {
		cells := make([]string, len(cols))
		for i, col := range cols {
			cells[i] = r.styledCell(col, row[col])
		}
		t.Row(cells...)
	}

	fmt.Fprintln(w, t.Render())
}

func (r *Renderer) renderObject(w io.Writer, obj map[string]any) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(w, "%s %s\n", r.Muted.Render(k+":"), r.styledCell(k, obj[k]))
	}
}

// styledCell renders a cell value, coloring billing status columns by
// their severity.
func (r *Renderer) styledCell(key string, v any) string {
	s := cellString(v)
	switch key {
	case "status", "billing_status":
		return r.StatusStyle(s).Render(s)
	}
	return s
}

// columnOrder returns the union of keys across rows, id and name first.
func columnOrder(rows []map[string]any) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		return colRank(cols[i]) < colRank(cols[j]) ||
			(colRank(cols[i]) == colRank(cols[j]) && cols[i] < cols[j])
	})
	return cols
}

func colRank(col string) int {
	switch col {
	case "id":
		return 0
	case "name", "title":
		return 1
	default:
		return 2
	}
}

func cellString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// normalizeData converts json.RawMessage and typed values to plain Go types.
func normalizeData(data any) any {
	if raw, ok := data.(json.RawMessage); ok {
		var unmarshaled any
		if err := json.Unmarshal(raw, &unmarshaled); err == nil {
			return normalizeUnmarshaled(unmarshaled)
		}
		return data
	}

	switch data.(type) {
	case []map[string]any, map[string]any, nil:
		return data
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return data
		}
		var unmarshaled any
		if err := json.Unmarshal(b, &unmarshaled); err != nil {
			return data
		}
		return normalizeUnmarshaled(unmarshaled)
	}
}

func normalizeUnmarshaled(v any) any {
	if items, ok := v.([]any); ok {
		rows := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if m, ok := item.(map[string]any); ok {
				rows = append(rows, m)
			} else {
				return v // Mixed content, leave as-is
			}
		}
		return rows
	}
	return v
}
