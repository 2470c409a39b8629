package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/OrionReed/ggraph/internal/ir"
)

// table is a markdown table. On a terminal it is rendered with glamour;
// anywhere else the markdown itself is printed.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func newTable(title string, headers ...string) *table {
	return &table{title: title, headers: headers}
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) markdown() string {
	var b strings.Builder
	if t.title != "" {
		fmt.Fprintf(&b, "### %s\n\n", t.title)
	}
	writeRow(&b, t.headers)
	b.WriteString("|")
	for range t.headers {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t.rows {
		writeRow(&b, row)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		c = strings.ReplaceAll(c, "\n", " ")
		b.WriteString(" " + c + " |")
	}
	b.WriteString("\n")
}

func (t *table) render(w io.Writer) error {
	return render(w, t.markdown())
}

func render(w io.Writer, md string) error {
	width, ok := terminalWidth(w)
	if !ok {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := renderMarkdown(md, width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func terminalWidth(w io.Writer) (int, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0, false
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	return width, true
}

func renderMarkdown(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("create renderer: %w", err)
	}
	return r.Render(md)
}

// boardTable lists every node with the value it supplies.
func boardTable(title string, b ir.Board) *table {
	t := newTable(title, "id", "kind", "type", "text", "value")
	for _, n := range b.Nodes {
		t.add(n.ID, string(n.Kind), string(n.ValueType), n.Text, nodeStatus(n))
	}
	return t
}

// nodeStatus is the value column of a board table.
func nodeStatus(n ir.Node) string {
	switch {
	case n.Kind == ir.KindVoting && n.SyntaxError:
		return "syntax error"
	case n.Kind == ir.KindGenerator && n.Pending != "":
		return fmt.Sprintf("generating (%s)", n.Pending)
	}
	v, ok := n.Value()
	if !ok {
		return ""
	}
	return ir.Display(v)
}

// jsonValue converts a node value for JSON output.
func jsonValue(n ir.Node) any {
	v, ok := n.Value()
	if !ok {
		return nil
	}
	return ir.ToAny(v)
}
