package share

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/samber/lo"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

var clipboardWriteAll = clipboard.WriteAll

type Params struct {
	Ref    string `pos:"true" help:"Mixtape id, id prefix, or title"`
	Copy   bool   `short:"c" optional:"true" help:"Copy the manifest to the clipboard instead of rendering a QR"`
	JSON   bool   `long:"json" optional:"true" help:"Print the manifest instead of rendering a QR"`
	Invert bool   `short:"i" optional:"true" help:"Invert QR colors (white on black)"`
}

// shareManifest is the compact wire form of a mixtape used for QR codes and
// clipboard sharing. Short keys keep the payload inside QR capacity.
type shareManifest struct {
	V     int          `json:"v"`
	Title string       `json:"title"`
	SideA []shareTrack `json:"a,omitempty"`
	SideB []shareTrack `json:"b,omitempty"`
}

type shareTrack struct {
	Title    string `json:"t"`
	Seconds  int    `json:"s,omitempty"`
	URL      string `json:"u,omitempty"`
	Provider string `json:"p,omitempty"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "share",
		Short: "Share a mixtape as a QR code or clipboard manifest",
		Long: `Render a compact mixtape manifest as a terminal QR code, so another
ferrite user can scan it and rebuild the tracklist.

Tracks with URL sources share their address. Local audio cannot travel
in a QR code; share those tapes with 'ferrite archive export' instead.

Examples:
  ferrite share "road trip 94"
  ferrite share aabb --json
  ferrite share aabb -c`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			exitCode := RunShare(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunShare(params *Params, s *store.Store, stdout, stderr *os.File) int {
	m, err := s.Resolve(params.Ref)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	payload, err := json.Marshal(manifestFor(m))
	if err != nil {
		fmt.Fprintf(stderr, "Error encoding manifest: %v\n", err)
		return 1
	}

	all := append(append([]tape.Track{}, m.SideA...), m.SideB...)
	locals := len(lo.Filter(all, func(t tape.Track, _ int) bool {
		return t.Source.Kind == tape.SourceLocal
	}))
	if locals > 0 {
		fmt.Fprintf(stderr, "Warning: %d track(s) have local-only audio; the manifest carries their titles but not the files. Use 'ferrite archive export' to share the audio.\n", locals)
	}

	switch {
	case params.Copy:
		if err := clipboardWriteAll(string(payload)); err != nil {
			fmt.Fprintf(stderr, "Error copying to clipboard: %v\n", err)
			return 1
		}
		title := m.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(stdout, "Copied share manifest for %s to the clipboard (%d bytes)\n", title, len(payload))
	case params.JSON:
		fmt.Fprintln(stdout, string(payload))
	default:
		if err := renderQR(stdout, string(payload), params.Invert); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	return 0
}

func manifestFor(m *tape.Mixtape) shareManifest {
	toShare := func(t tape.Track, _ int) shareTrack {
		st := shareTrack{
			Title:   t.Title,
			Seconds: int(t.Duration / time.Second),
		}
		if t.Source.Kind == tape.SourceURL {
			st.URL = t.Source.URL
			st.Provider = t.Source.Provider
		}
		return st
	}
	return shareManifest{
		V:     1,
		Title: m.Title,
		SideA: lo.Map(m.SideA, toShare),
		SideB: lo.Map(m.SideB, toShare),
	}
}

// renderQR draws the payload as ANSI background-colored blocks, two columns
// per module so the code comes out roughly square in a terminal.
func renderQR(stdout *os.File, payload string, invert bool) error {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("mixtape too large for a QR code (try --copy or --json): %w", err)
	}

	dark := "\033[40m  \033[0m"
	light := "\033[47m  \033[0m"
	if invert {
		dark, light = light, dark
	}

	for _, row := range qr.Bitmap() {
		for _, on := range row {
			if on {
				fmt.Fprint(stdout, dark)
			} else {
				fmt.Fprint(stdout, light)
			}
		}
		fmt.Fprintln(stdout, "\033[0m")
	}
	return nil
}
