package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/archive"
	"github.com/gigurra/ferrite/cmd/deck"
	"github.com/gigurra/ferrite/cmd/library"
	"github.com/gigurra/ferrite/cmd/play"
	"github.com/gigurra/ferrite/cmd/share"
)

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "ferrite",
		Short:   "Cassette deck mixtape player for the terminal",
		Version: appVersion(),
		SubCmds: []*cobra.Command{
			deck.Cmd(),
			play.Cmd(),
			library.Cmd(),
			archive.Cmd(),
			share.Cmd(),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
