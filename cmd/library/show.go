package library

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

type ShowParams struct {
	Ref  string `pos:"true" help:"Mixtape ID, ID prefix, or title"`
	JSON bool   `long:"json" help:"Output as JSON"`
}

func ShowCmd() *cobra.Command {
	return boa.CmdT[ShowParams]{
		Use:         "show",
		Aliases:     []string{"info"},
		Short:       "Show the track listing of a mixtape",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ShowParams, cmd *cobra.Command, args []string) {
			exitCode := RunShow(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunShow(params *ShowParams, s *store.Store, stdout, stderr *os.File) int {
	m, err := s.Resolve(params.Ref)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if params.JSON {
		data, err := json.MarshalIndent(m, "", "  ")
		if err != nil {
			fmt.Fprintf(stderr, "Error marshaling JSON: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, string(data))
		return 0
	}

	fmt.Fprintf(stdout, "%s  [%s]\n", m.Title, shortID(m.ID))
	fmt.Fprintf(stdout, "%d tracks, %s total\n", m.TrackCount(), common.FormatCounter(m.Runtime()))

	for _, side := range []tape.Side{tape.SideA, tape.SideB} {
		tracks := m.Tracks(side)
		fmt.Fprintf(stdout, "\nSide %s  (%d tracks, %s)\n", side, len(tracks), common.FormatCounter(m.SideRuntime(side)))
		if len(tracks) == 0 {
			fmt.Fprintln(stdout, "  (blank)")
			continue
		}

		t := table.NewWriter()
		t.SetOutputMirror(stdout)
		t.SetStyle(table.StyleLight)
		t.SetAllowedRowLength(getTerminalWidth())
		t.AppendHeader(table.Row{"#", "Title", "Length", "Source"})
		for i, tr := range tracks {
			t.AppendRow(table.Row{i + 1, truncate(tr.Title, 40), common.FormatCounter(tr.Duration), sourceDisplay(tr.Source)})
		}
		t.Render()
	}
	return 0
}

func sourceDisplay(src tape.Source) string {
	switch src.Kind {
	case tape.SourceURL:
		if src.Provider != "" {
			return fmt.Sprintf("%s (%s)", src.URL, src.Provider)
		}
		return src.URL
	default:
		return src.Path
	}
}
