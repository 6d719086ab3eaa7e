package library

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/library/store"
)

type RmParams struct {
	Ref string `pos:"true" help:"Mixtape ID, ID prefix, or title"`
	Yes bool   `short:"y" help:"Skip confirmation prompt"`
}

func RmCmd() *cobra.Command {
	return boa.CmdT[RmParams]{
		Use:         "rm",
		Aliases:     []string{"delete"},
		Short:       "Delete a mixtape from the library",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *RmParams, cmd *cobra.Command, args []string) {
			exitCode := RunRm(params, store.Default(), os.Stdout, os.Stderr, os.Stdin)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunRm(params *RmParams, s *store.Store, stdout, stderr, stdin *os.File) int {
	m, err := s.Resolve(params.Ref)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Mixtape: %s [%s]\n", m.Title, shortID(m.ID))
	fmt.Fprintf(stdout, "Tracks: %d\n", m.TrackCount())

	if !params.Yes {
		fmt.Fprintf(stdout, "\nDelete this mixtape? [y/N]: ")
		reader := bufio.NewReader(stdin)
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Fprintln(stdout, "Aborted.")
			return 0
		}
	}

	if err := s.Delete(m.ID); err != nil {
		fmt.Fprintf(stderr, "Error deleting mixtape: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Deleted mixtape %s\n", shortID(m.ID))
	return 0
}
