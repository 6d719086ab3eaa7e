// Package library manages the on-disk mixtape collection.
package library

import (
	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
)

func Cmd() *cobra.Command {
	cmd := boa.CmdT[boa.NoParams]{
		Use:   "library",
		Short: "Manage the mixtape library",
		SubCmds: []*cobra.Command{
			ListCmd(),
			ShowCmd(),
			NewCmd(),
			AddCmd(),
			RmCmd(),
			WatchCmd(),
		},
	}.ToCobra()
	cmd.Aliases = []string{"lib", "tapes"}
	return cmd
}

// shortID returns a shortened mixtape ID for display.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// truncate cuts s to maxLen runes, marking the cut with an ellipsis.
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-1]) + "…"
}
