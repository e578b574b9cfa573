package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"regoth/internal/waynet"
)

func newWaynetCommand(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "waynet",
		Short: "Inspect the waynet of a scene",
	}

	var output, format, route string
	render := &cobra.Command{
		Use:   "render [scene.yaml]",
		Short: "Draw the waynet as dot, svg or png",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			wn, err := sceneWaynet(path)
			if err != nil {
				return err
			}

			opts := waynet.RenderOptions{Format: renderFormat(format, output)}
			if route != "" {
				from, to, ok := strings.Cut(route, ",")
				if !ok {
					return fmt.Errorf("route must be FROM,TO, got %q", route)
				}
				way := wn.FindWay(from, to)
				if len(way) == 0 {
					return fmt.Errorf("no way from %s to %s", from, to)
				}
				for _, wp := range way {
					opts.Highlight = append(opts.Highlight, wp.Name)
				}
			}

			var out io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return wn.Render(cmd.Context(), out, opts)
		},
	}
	render.Flags().StringVarP(&output, "output", "o", "", "output file, stdout when empty")
	render.Flags().StringVar(&format, "format", "", "dot, svg or png (defaults to the output extension)")
	render.Flags().StringVar(&route, "route", "", "highlight the way between two waypoints, FROM,TO")

	cmd.AddCommand(render)
	return cmd
}

func sceneWaynet(path string) (*waynet.Waynet, error) {
	scene, err := loadScene(path)
	if err != nil {
		return nil, err
	}
	return waynet.FromDefinition(scene.Waynet)
}

// renderFormat picks the explicit format, else the output file extension,
// else svg.
func renderFormat(format, output string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(output), ".")); ext {
	case waynet.FormatDOT, waynet.FormatPNG, waynet.FormatSVG:
		return ext
	case "gv":
		return waynet.FormatDOT
	}
	return waynet.FormatSVG
}
