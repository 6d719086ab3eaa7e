package library

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

type ListParams struct {
	Long bool `short:"l" help:"Show per-side runtimes"`
	JSON bool `long:"json" help:"Output as JSON"`
}

func ListCmd() *cobra.Command {
	return boa.CmdT[ListParams]{
		Use:         "list",
		Aliases:     []string{"ls"},
		Short:       "List mixtapes in the library",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ListParams, cmd *cobra.Command, args []string) {
			exitCode := RunList(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunList(params *ListParams, s *store.Store, stdout, stderr *os.File) int {
	mixtapes, err := s.List()
	if err != nil {
		fmt.Fprintf(stderr, "Error reading library: %v\n", err)
		return 1
	}

	if params.JSON {
		data, err := json.MarshalIndent(mixtapes, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error marshaling JSON: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	if len(mixtapes) == 0 {
		fmt.Fprintln(stdout, "No mixtapes yet. Record one with: ferrite library new <title>")
		return 0
	}

	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleLight)
	t.SetAllowedRowLength(getTerminalWidth())

	header := table.Row{"ID", "Title", "Tracks"}
	if params.Long {
		header = append(header, "Side A", "Side B")
	}
	header = append(header, "Runtime")
	t.AppendHeader(header)

	for _, m := range mixtapes {
		row := table.Row{shortID(m.ID), truncate(m.Title, 40), m.TrackCount()}
		if params.Long {
			row = append(row,
				fmt.Sprintf("%d · %s", len(m.SideA), common.FormatCounter(m.SideRuntime(tape.SideA))),
				fmt.Sprintf("%d · %s", len(m.SideB), common.FormatCounter(m.SideRuntime(tape.SideB))),
			)
		}
		row = append(row, common.FormatCounter(m.Runtime()))
		t.AppendRow(row)
	}

	t.Render()
	return 0
}

// getTerminalWidth returns the terminal width, or a default if unavailable
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 120 // default
	}
	return width
}
