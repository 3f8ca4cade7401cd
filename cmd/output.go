package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/fatih/color"
	"github.com/spf13/cast"
	"github.com/tablecraft/tablecraft/internal/util"
)

const maxCellWidth = 40

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	green       = color.New(color.FgGreen).SprintFunc()
	yellow      = color.New(color.FgYellow, color.Bold).SprintFunc()
	faint       = color.New(color.Faint).SprintFunc()
)

// cell formats a value for a table cell on a single line.
func cell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		s = val
	case time.Time:
		if val.IsZero() {
			return ""
		}
		s = val.Format(time.RFC3339)
	case *time.Time:
		if val == nil {
			return ""
		}
		s = val.Format(time.RFC3339)
	case map[string]any, []any:
		s = util.JSONStringify(val)
	default:
		s = cast.ToString(val)
		if s == "" {
			s = fmt.Sprint(val)
		}
	}
	s = strings.ReplaceAll(ansi.Strip(s), "\n", " ")
	return ansi.Truncate(s, maxCellWidth, "…")
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func printTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, faint("no results"))
		return
	}
	fmt.Fprintln(w, renderTable(headers, rows))
}

func printJSON(w io.Writer, v any) {
	fmt.Fprintln(w, util.JSONIndent(v))
}

// rowColumns returns id first, then the table's fields in order, then any other keys sorted.
func rowColumns(fields []string, rows []map[string]any) []string {
	cols := []string{"id"}
	seen := map[string]bool{"id": true}
	for _, f := range fields {
		if !seen[f] {
			cols = append(cols, f)
			seen[f] = true
		}
	}
	var extra []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				extra = append(extra, k)
				seen[k] = true
			}
		}
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

func rowsTable(cols []string, rows []map[string]any) [][]string {
	res := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, 0, len(cols))
		for _, c := range cols {
			line = append(line, cell(row[c]))
		}
		res = append(res, line)
	}
	return res
}
