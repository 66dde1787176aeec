package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/matzehuels/fpgapack/pkg/arch"
	"github.com/matzehuels/fpgapack/pkg/netlistio"
)

// vizCommand renders an architecture's expanded pb-graph as a DOT/SVG
// diagram for debugging (spec §6 ADDED "fpgapack viz"). It is read-only:
// it never touches packer state, only arch.View's static tree.
func (c *CLI) vizCommand() *cobra.Command {
	var archPath, output string

	cmd := &cobra.Command{
		Use:   "viz",
		Short: "Render an architecture's expanded pb-graph",
		Long: `Viz loads an architecture file, expands its pb-graph the same way
pack does, and renders the block-type hierarchy as a Graphviz diagram.
This never touches packer state; it is purely an architecture-debugging
aid.`,
		Example: `  fpgapack viz --arch fpga.json -o fpga.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if archPath == "" {
				return fmt.Errorf("--arch is required")
			}
			logger := loggerFromContext(cmd.Context())

			view, fp, err := netlistio.ReadArchitecture(archPath)
			if err != nil {
				return fmt.Errorf("read architecture: %w", err)
			}
			logger.Debug("loaded architecture", "fingerprint", fp)

			dot := archToDOT(view)
			svg, err := renderDOT(cmd.Context(), dot)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}

			if output == "" {
				_, err = os.Stdout.Write(svg)
				return err
			}
			if err := os.WriteFile(output, svg, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Rendered pb-graph")
			printFile(output)
			return nil
		},
	}

	cmd.Flags().StringVar(&archPath, "arch", "", "architecture file (required)")
	cmd.Flags().StringVarP(&output, "out", "o", "", "output SVG file (stdout if empty)")
	return cmd
}

// archToDOT walks every root's expanded pb-graph into a Graphviz DOT
// source: one cluster per top-level block type, one node per pb-graph
// node, and a dashed edge from each node to each of its children. The
// pin-level wiring a Mode's Wire function added is not drawn.
// Grounded on the teacher's pkg/render/nodelink ToDOT (same
// digraph/rankdir/box-node preamble, adapted from DAG nodes/edges to
// pb-graph nodes/parent-child edges).
func archToDOT(view *arch.View) string {
	var buf bytes.Buffer
	buf.WriteString("digraph pbgraph {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.15,0.08\"];\n\n")

	for i, root := range view.Roots() {
		fmt.Fprintf(&buf, "  subgraph cluster_%d {\n", i)
		fmt.Fprintf(&buf, "    label=%q;\n", root.PbType.Name)
		writeNode(&buf, root)
		buf.WriteString("  }\n")
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeNode(buf *bytes.Buffer, n *arch.PbGraphNode) {
	label := fmt.Sprintf("%s[%d]", n.PbType.Name, n.PlacementIndex)
	if n.PbType.IsPrimitive() {
		label = fmt.Sprintf("%s\\n(%s)", label, n.PbType.Model)
	}
	fmt.Fprintf(buf, "    %q [label=%q];\n", nodeID(n), label)

	if n.Parent != nil {
		fmt.Fprintf(buf, "    %q -> %q [style=dashed, color=gray, dir=none];\n", nodeID(n.Parent), nodeID(n))
	}

	for _, insts := range n.Children {
		for _, children := range insts {
			for _, child := range children {
				writeNode(buf, child)
			}
		}
	}
}

func nodeID(n *arch.PbGraphNode) string {
	return strings.ReplaceAll(fmt.Sprintf("n%d", n.ID), " ", "_")
}

// renderDOT renders a DOT source to SVG bytes via goccy/go-graphviz,
// grounded on the teacher's pkg/render/nodelink.RenderSVG.
func renderDOT(ctx context.Context, dot string) ([]byte, error) {
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
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
