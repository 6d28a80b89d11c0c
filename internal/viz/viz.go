// Package viz draws an activity network with its critical path highlighted.
package viz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/joshharrison/crashpath/internal/cpm"
	"github.com/joshharrison/crashpath/internal/graph"
	"github.com/joshharrison/crashpath/internal/reporter"
	"github.com/joshharrison/crashpath/internal/ui"
)

// Format names an output produced by the viz command.
type Format string

const (
	FormatASCII Format = "ascii"
	FormatDOT   Format = "dot"
	FormatSVG   Format = "svg"
	FormatPNG   Format = "png"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatASCII, FormatDOT, FormatSVG, FormatPNG:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (use ascii, dot, svg or png)", s)
}

// ToDOT returns a Graphviz description of g. Nodes and edges are written in
// topological order so the output is stable.
func ToDOT(g *graph.ActivityGraph, res *cpm.Result) string {
	var b strings.Builder
	b.WriteString("digraph crashpath {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=rounded];\n\n")

	for _, id := range res.TopoOrder {
		s := res.Activities[id]
		label := fmt.Sprintf("%s\\nd=%s  tf=%s", escapeLabel(string(id)), reporter.Num(s.Duration), reporter.Num(s.TotalFloat))
		attrs := fmt.Sprintf(`label="%s"`, label)
		if s.IsCritical {
			attrs += `, style="rounded,bold", color=red`
		}
		fmt.Fprintf(&b, "  %q [%s];\n", string(id), attrs)
	}

	b.WriteString("\n")

	for _, from := range res.TopoOrder {
		for _, to := range g.Successors(from) {
			style := ""
			if res.CriticalEdge(from, to) {
				style = " [color=red, penwidth=2]"
			}
			fmt.Fprintf(&b, "  %q -> %q%s;\n", string(from), string(to), style)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func escapeLabel(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// PrintASCII lists the network wave by wave with each activity's successors.
func PrintASCII(w io.Writer, g *graph.ActivityGraph, res *cpm.Result) {
	fmt.Fprintf(w, "🔗 %s\n", ui.BoldCyan("Activity Network"))
	fmt.Fprintln(w, ui.Cyan("════════════════"))
	fmt.Fprintln(w)

	for _, wave := range res.Waves {
		fmt.Fprintf(w, "%s 🌊 Wave %d at t=%s %s\n",
			ui.Cyan("──"), wave.Index+1, reporter.Num(wave.Start), ui.Cyan("──────────────────────────"))
		for _, id := range wave.ActivityIDs {
			s := res.Activities[id]
			fmt.Fprintf(w, "  %s %s %s\n", ui.CriticalMark(s.IsCritical), ui.ActivityLabel(string(id)),
				ui.Dim(fmt.Sprintf("d=%s tf=%s", reporter.Num(s.Duration), reporter.Num(s.TotalFloat))))

			for _, next := range g.Successors(id) {
				arrow := ui.Dim("└──→")
				if res.CriticalEdge(id, next) {
					arrow = ui.BoldRed("└══→")
				}
				fmt.Fprintf(w, "      %s %s\n", arrow, ui.Magenta(string(next)))
			}
		}
		fmt.Fprintln(w)
	}
}

// RenderSVG renders DOT source to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.SVG)
}

// RenderPNG renders DOT source to PNG using the embedded Graphviz.
func RenderPNG(ctx context.Context, dot string) ([]byte, error) {
	return render(ctx, dot, graphviz.PNG)
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Write produces the requested format for g into w.
func Write(ctx context.Context, w io.Writer, f Format, g *graph.ActivityGraph, res *cpm.Result) error {
	switch f {
	case FormatASCII:
		PrintASCII(w, g, res)
		return nil
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(g, res))
		return err
	case FormatSVG, FormatPNG:
		dot := ToDOT(g, res)
		var (
			data []byte
			err  error
		)
		if f == FormatSVG {
			data, err = RenderSVG(ctx, dot)
		} else {
			data, err = RenderPNG(ctx, dot)
		}
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	return fmt.Errorf("unknown format %q", f)
}
