package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/idilsaglam/tada/internal/model"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Success.Render(current.SymOK+" "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	fmt.Fprintln(w, current.Error.Render(current.SymFail+" "+msg))
}

// PanelString frames inner with the theme's border.
func PanelString(inner string) string {
	border := lipgloss.NewStyle().
		Border(current.Border).
		BorderForeground(current.BorderColor).
		Padding(0, 1)
	return border.Render(inner)
}

// Panel draws a framed box.
func Panel(w io.Writer, lines []string) {
	fmt.Fprintln(w, PanelString(strings.Join(lines, "\n")))
}

// Header is the list title with the item count.
func Header(count int) string {
	return fmt.Sprintf("%s  %s %d",
		current.Title.Render("Todos"),
		current.Accent.Render("Total"), count,
	)
}

// maxItemWidth is the widest item text ItemLines prints, in terminal cells.
const maxItemWidth = 80

// ItemLines renders one row per item plus the trailing "new item" row.
func ItemLines(list model.List) []string {
	out := make([]string, 0, len(list)+1)
	for _, it := range list {
		text := ansi.Truncate(it.Text, maxItemWidth, "...")
		if text == "" {
			text = current.Muted.Render("(empty)")
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			current.Muted.Render(fmt.Sprintf("%3d", it.ID)), current.Pending.Render(current.SymItem), text))
	}
	out = append(out, current.Muted.Render(fmt.Sprintf("    %s new item", current.SymNew)))
	return out
}
