package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"regoth/internal/demo"
	"regoth/internal/savegame"
	"regoth/internal/world"
)

type simulateOptions struct {
	scene string
	ticks int
	save  string
	load  string
}

func newSimulateCommand(a *app) *cobra.Command {
	var opts simulateOptions
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the village scripts for a number of ticks and print what was said",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.simulate(cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.scene, "scene", "", "scene YAML file (defaults to the built-in village)")
	cmd.Flags().IntVar(&opts.ticks, "ticks", 0, "ticks to run (defaults to simulation.ticks)")
	cmd.Flags().StringVar(&opts.save, "save", "", "store the final state under this name")
	cmd.Flags().StringVar(&opts.load, "load", "", "continue from a save id")
	return cmd
}

func loadScene(path string) (*world.Scene, error) {
	if path == "" {
		return world.ParseScene(demo.Scene)
	}
	return world.LoadScene(path)
}

func (a *app) simulate(out io.Writer, opts simulateOptions) error {
	scene, err := loadScene(opts.scene)
	if err != nil {
		return err
	}
	machine, err := demo.NewMachine()
	if err != nil {
		return err
	}
	w, err := world.New(a.cfg, machine, scene)
	if err != nil {
		return err
	}

	var store *savegame.Store
	if opts.load != "" || opts.save != "" {
		store, err = savegame.Open(a.cfg.Savegame.Database)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	if opts.load != "" {
		id, err := savegame.ParseSaveID(opts.load)
		if err != nil {
			return err
		}
		snap, err := store.Load(id)
		if err != nil {
			return err
		}
		if snap.Scene != w.SceneName() {
			return fmt.Errorf("save %s is for scene %q, not %q", id, snap.Scene, w.SceneName())
		}
		if err := w.Restore(snap); err != nil {
			return fmt.Errorf("failed to restore save %s: %w", id, err)
		}
		fmt.Fprintf(out, "continuing %s from %s\n", id, w.Clock())
	}

	ticks := opts.ticks
	if ticks <= 0 {
		ticks = a.cfg.Simulation.Ticks
	}
	dt := a.cfg.Simulation.TickSeconds
	for i := 0; i < ticks; i++ {
		w.Tick(dt)
	}

	for _, line := range w.Transcript() {
		fmt.Fprintf(out, "[day %d %02d:%02d] %s -> %s: %s\n", line.Day, line.Hour, line.Minute, line.Speaker, line.Listener, line.Text)
	}

	gameTime := time.Duration(float64(ticks) * dt * a.cfg.Clock.MinutesPerSecond * float64(time.Minute))
	fmt.Fprintf(out, "\n%s ticks, %s of game time, now %s\n", humanize.Comma(int64(ticks)), gameTime.Round(time.Second), w.Clock())
	printCharacters(out, w.Characters())

	if opts.save != "" {
		snap, err := w.Snapshot()
		if err != nil {
			return err
		}
		id, err := store.Save(opts.save, snap)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "saved %q as %s\n", opts.save, id)
	}
	return nil
}

func printCharacters(out io.Writer, chars []*world.Character) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARACTER\tSTATE\tROUTINE\tPOSITION")
	for _, c := range chars {
		state := c.State().CurrentStateName()
		if state == "" {
			state = "-"
		}
		pos := c.Position()
		fmt.Fprintf(tw, "%s\t%s\t%t\t(%.1f, %.1f, %.1f)\n", c.Symbol(), state, c.State().IsInRoutine(), pos.X, pos.Y, pos.Z)
	}
	tw.Flush()
}
