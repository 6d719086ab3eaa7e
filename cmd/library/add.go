package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

type AddParams struct {
	Ref      string   `pos:"true" help:"Mixtape ID, ID prefix, or title"`
	Files    []string `pos:"true" required:"true" help:"Audio files to add (mp3, wav, flac, ogg)"`
	Side     string   `short:"s" help:"Side to record onto (A or B)" default:"A"`
	Title    string   `short:"t" help:"Track title (single file only, defaults to the file name)"`
	Duration string   `short:"d" help:"Track length override (e.g. 3m45s), used when the file cannot be probed"`
}

func AddCmd() *cobra.Command {
	return boa.CmdT[AddParams]{
		Use:         "add",
		Short:       "Record tracks onto a mixtape side",
		Long:        "Add audio files as tracks on a mixtape side.\nTrack lengths are probed from the files; use --duration when that fails\n(e.g. on builds without audio support).",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *AddParams, cmd *cobra.Command, args []string) {
			exitCode := RunAdd(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunAdd(params *AddParams, s *store.Store, stdout, stderr *os.File) int {
	side, err := tape.ParseSide(params.Side)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if params.Title != "" && len(params.Files) > 1 {
		fmt.Fprintln(stderr, "Error: --title only works with a single file")
		return 1
	}

	var override time.Duration
	if params.Duration != "" {
		override, err = time.ParseDuration(params.Duration)
		if err != nil || override <= 0 {
			fmt.Fprintf(stderr, "Error: invalid --duration %q\n", params.Duration)
			return 1
		}
	}

	m, err := s.Resolve(params.Ref)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var added []tape.Track
	for _, file := range params.Files {
		abs, err := filepath.Abs(file)
		if err != nil {
			abs = file
		}

		dur, err := tape.ProbeDuration(abs)
		if err != nil {
			if override <= 0 {
				fmt.Fprintf(stderr, "Error probing %s: %v\n", file, err)
				fmt.Fprintln(stderr, "Pass --duration to set the track length manually.")
				return 1
			}
			dur = override
		}

		title := params.Title
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
		}

		added = append(added, tape.Track{
			ID:       uuid.New().String(),
			Title:    title,
			Duration: dur,
			Source:   tape.LocalSource(abs),
		})
	}

	if side == tape.SideB {
		m.SideB = append(m.SideB, added...)
	} else {
		m.SideA = append(m.SideA, added...)
	}

	if err := s.Save(m); err != nil {
		fmt.Fprintf(stderr, "Error saving mixtape: %v\n", err)
		return 1
	}

	for _, tr := range added {
		fmt.Fprintf(stdout, "  + %s (%s)\n", tr.Title, common.FormatCounter(tr.Duration))
	}
	fmt.Fprintf(stdout, "Recorded %d track(s) onto side %s of %s (side now %s)\n",
		len(added), side, m.Title, common.FormatCounter(m.SideRuntime(side)))
	return 0
}
