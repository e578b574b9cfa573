package waynet

import (
	"context"
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
)

// Format names accepted by Render.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// RenderOptions controls Render.
type RenderOptions struct {
	Format string
	// Highlight marks waypoints, e.g. a computed route.
	Highlight []string
	// Scale converts world meters into layout inches.
	Scale float64
}

// Render draws the waynet with waypoints pinned at their ground-plane
// positions.
func (w *Waynet) Render(ctx context.Context, out io.Writer, opts RenderOptions) error {
	if opts.Format == "" {
		opts.Format = FormatSVG
	}
	if opts.Scale == 0 {
		opts.Scale = 0.1
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to create graphviz instance: %w", err)
	}
	defer gv.Close()

	g, err := gv.Graph()
	if err != nil {
		return fmt.Errorf("failed to create graphviz graph: %w", err)
	}
	defer g.Close()

	g.SetLayout("neato")
	g.SetOverlap(false)

	highlight := make(map[string]bool, len(opts.Highlight))
	for _, name := range opts.Highlight {
		highlight[key(name)] = true
	}

	nodes := make(map[string]*graphviz.Node)
	for _, wp := range w.Waypoints() {
		node, err := g.CreateNodeByName(wp.Name)
		if err != nil {
			return fmt.Errorf("create node %s: %w", wp.Name, err)
		}
		node.SetLabel(wp.Name)
		node.SetShape("box")
		node.SetFontSize(10)
		node.SetPos(wp.Position.X*opts.Scale, wp.Position.Z*opts.Scale)
		node.SetPin(true)
		if highlight[wp.Name] {
			node.SetStyle("filled")
			node.SetFillColor("yellow")
		}
		nodes[wp.Name] = node
	}

	connections, err := w.Connections()
	if err != nil {
		return err
	}
	for _, c := range connections {
		edge, err := g.CreateEdgeByName("", nodes[c[0]], nodes[c[1]])
		if err != nil {
			return fmt.Errorf("create edge %s-%s: %w", c[0], c[1], err)
		}
		edge.SetDir("none")
		if highlight[c[0]] && highlight[c[1]] {
			edge.SetPenWidth(3)
		}
	}

	for _, fp := range w.Freepoints() {
		node, err := g.CreateNodeByName(fp.Name)
		if err != nil {
			return fmt.Errorf("create node %s: %w", fp.Name, err)
		}
		node.SetLabel(fp.Name)
		node.SetShape("ellipse")
		node.SetStyle("dashed")
		node.SetFontSize(8)
		node.SetPos(fp.Position.X*opts.Scale, fp.Position.Z*opts.Scale)
		node.SetPin(true)
	}

	if err := gv.Render(ctx, g, graphviz.Format(opts.Format), out); err != nil {
		return fmt.Errorf("render %s: %w", opts.Format, err)
	}
	return nil
}
