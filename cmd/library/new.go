package library

import (
	"fmt"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

type NewParams struct {
	Title string `pos:"true" help:"Title of the new mixtape"`
}

func NewCmd() *cobra.Command {
	return boa.CmdT[NewParams]{
		Use:         "new",
		Aliases:     []string{"create"},
		Short:       "Create a new blank mixtape",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *NewParams, cmd *cobra.Command, args []string) {
			exitCode := RunNew(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunNew(params *NewParams, s *store.Store, stdout, stderr *os.File) int {
	if params.Title == "" {
		fmt.Fprintln(stderr, "Error: a mixtape needs a title")
		return 1
	}

	m := &tape.Mixtape{Title: params.Title}
	if err := s.Save(m); err != nil {
		fmt.Fprintf(stderr, "Error saving mixtape: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Created mixtape %s: %s\n", shortID(m.ID), m.Title)
	fmt.Fprintf(stdout, "Add tracks with: ferrite library add %s <files...>\n", shortID(m.ID))
	return 0
}
