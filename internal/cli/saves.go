package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"regoth/internal/savegame"
)

func newSavesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saves",
		Short: "Manage stored simulation saves",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saves, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *savegame.Store) error {
				return listSaves(cmd.OutOrStdout(), s)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := savegame.ParseSaveID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s *savegame.Store) error {
				return showSave(cmd.OutOrStdout(), s, id)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := savegame.ParseSaveID(args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(s *savegame.Store) error {
				if err := s.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
				return nil
			})
		},
	}

	cmd.AddCommand(list, show, remove)
	return cmd
}

func (a *app) withStore(fn func(*savegame.Store) error) error {
	s, err := savegame.Open(a.cfg.Savegame.Database)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func listSaves(out io.Writer, s *savegame.Store) error {
	saves, err := s.List()
	if err != nil {
		return err
	}
	if len(saves) == 0 {
		fmt.Fprintln(out, "no saves")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSCENE\tGAME TIME\tCHARACTERS\tCREATED")
	for _, sum := range saves {
		hour, minute := sum.Time()
		fmt.Fprintf(tw, "%s\t%s\t%s\tday %d %02d:%02d\t%d\t%s\n", sum.ID, sum.Name, sum.Scene, sum.Day, hour, minute, sum.Characters, humanize.Time(sum.CreatedAt))
	}
	return tw.Flush()
}

func showSave(out io.Writer, s *savegame.Store, id savegame.SaveID) error {
	sum, err := s.Get(id)
	if err != nil {
		return err
	}
	snap, err := s.Load(id)
	if err != nil {
		return err
	}

	hour, minute := sum.Time()
	fmt.Fprintf(out, "%s %q\n", sum.ID, sum.Name)
	fmt.Fprintf(out, "scene %s, day %d %02d:%02d after %s ticks, saved %s\n", sum.Scene, sum.Day, hour, minute,
		humanize.Comma(int64(sum.Ticks)), humanize.Time(sum.CreatedAt))
	fmt.Fprintf(out, "%d script objects, %d items\n\n", sum.Objects, len(snap.Items))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CHARACTER\tSTATE\tROUTINE\tPOSITION")
	for _, c := range snap.Characters {
		state := c.State
		if state == "" {
			state = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t(%.1f, %.1f, %.1f)\n", c.Symbol, state, c.InRoutine, c.Position.X, c.Position.Y, c.Position.Z)
	}
	return tw.Flush()
}
