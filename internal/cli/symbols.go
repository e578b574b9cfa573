package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"regoth/internal/daedalus/dat"
	"regoth/internal/daedalus/symbols"
)

func newSymbolsCommand(_ *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "symbols <file.dat>",
		Short: "List the symbols of a compiled script file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listSymbols(cmd.OutOrStdout(), args[0], kind)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list symbols of this kind, e.g. Instance or ScriptFunction")
	return cmd
}

func listSymbols(out io.Writer, path, kind string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	table := symbols.NewStorage()
	prog, err := dat.LoadFile(path, table)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: version %d, %s symbols, %s bytecode, %s on disk\n", path, prog.Version,
		humanize.Comma(int64(table.Len())), humanize.Bytes(uint64(len(prog.Bytecode))), humanize.Bytes(uint64(info.Size())))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tKIND\tNAME\tCOUNT\tFLAGS")
	table.Each(func(sym symbols.Symbol) {
		if kind != "" && !strings.EqualFold(sym.Kind().String(), kind) {
			return
		}
		h := sym.Header()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", h.Index, sym.Kind(), h.Name, h.Count, symbolFlags(h))
	})
	return tw.Flush()
}

func symbolFlags(h *symbols.Base) string {
	var flags []string
	if h.IsConst {
		flags = append(flags, "const")
	}
	if h.IsClassVar {
		flags = append(flags, "classvar")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, ",")
}
