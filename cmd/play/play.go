package play

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/common/config"
	"github.com/gigurra/ferrite/cmd/common/table"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

// newProvider is swapped out by tests to play without an audio device.
var newProvider = func() tape.Provider { return tape.NewBeepProvider() }

type Params struct {
	Ref  string `pos:"true" help:"Mixtape id, id prefix, or title"`
	Side string `short:"s" optional:"true" default:"A" help:"Side to play (A or B)"`
	Both bool   `short:"b" optional:"true" help:"Play side A, then flip and play side B"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:   "play",
		Short: "Play a mixtape side without the deck screen",
		Long: `Play a mixtape side start to finish with a single progress line.

This is the scripting-friendly player: no keys, no screen, just the
tape rolling until the side runs out.

Examples:
  ferrite play "road trip 94"
  ferrite play aabb -s B
  ferrite play aabb -b`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			exitCode := RunPlay(params, store.Default(), os.Stdout, os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

func RunPlay(params *Params, s *store.Store, stdout, stderr *os.File) int {
	if err := runPlay(params, s, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runPlay(params *Params, s *store.Store, stdout *os.File) error {
	m, err := s.Resolve(params.Ref)
	if err != nil {
		return err
	}

	side, err := tape.ParseSide(params.Side)
	if err != nil {
		return err
	}
	if params.Both {
		side = tape.SideA
	}

	title := m.Title
	if title == "" {
		title = "(untitled)"
	}
	if len(m.Tracks(side)) == 0 {
		return fmt.Errorf("side %s of %s has no tracks", side, title)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("config load failed, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	deck := tape.NewDeck(newProvider(), cfg.Deck.Options())
	defer deck.Cleanup()

	if err := deck.Load(m); err != nil {
		return err
	}
	if deck.State().Side != side {
		if err := deck.FlipSide(); err != nil {
			return err
		}
	}
	slog.Debug("deck loaded", "mixtape", m.ID, "side", string(side))

	width := getTerminalWidth()
	fmt.Fprintf(stdout, "Playing %s  side %s  (%d tracks, %s)\n",
		title, side, len(m.Tracks(side)), common.FormatCounter(m.SideRuntime(side)))
	if err := playSide(deck, m, stdout, width); err != nil {
		return err
	}

	if params.Both {
		other := side.Other()
		if len(m.Tracks(other)) == 0 {
			return nil
		}
		if err := deck.FlipSide(); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Flipping to side %s  (%d tracks, %s)\n",
			other, len(m.Tracks(other)), common.FormatCounter(m.SideRuntime(other)))
		return playSide(deck, m, stdout, width)
	}
	return nil
}

// playSide runs the loaded side to its end, rendering a progress line on
// every published snapshot. A poll ticker backs up the subscription so a
// dropped snapshot cannot stall completion detection.
func playSide(d *tape.Deck, m *tape.Mixtape, stdout *os.File, width int) error {
	tracks := m.Tracks(d.State().Side)

	states := make(chan tape.State, 64)
	unsub := d.OnStateChange(func(s tape.State) {
		select {
		case states <- s:
		default:
		}
	})
	defer unsub()

	if err := d.Play(); err != nil {
		return err
	}

	poll := time.NewTicker(500 * time.Millisecond)
	defer poll.Stop()

	started := false
	for {
		var st tape.State
		select {
		case st = <-states:
		case <-poll.C:
			st = d.State()
		}
		if st.Playing {
			started = true
		}
		fmt.Fprintf(stdout, "\r\033[K%s", progressLine(width, tracks, st))
		if started && !st.Moving() {
			fmt.Fprintln(stdout)
			last := len(tracks) - 1
			if st.TrackIndex == last && st.Duration > 0 && st.Position >= st.Duration {
				return nil
			}
			return fmt.Errorf("playback stopped before the end of side %s", st.Side)
		}
	}
}

func progressLine(width int, tracks []tape.Track, st tape.State) string {
	title := ""
	if st.TrackIndex < len(tracks) {
		title = table.TruncateWithEllipsis(tracks[st.TrackIndex].Title, 32)
	}
	status := "stopped"
	if st.Playing {
		status = "playing"
	}

	prefix := fmt.Sprintf("side %s %d/%d %s ", st.Side, st.TrackIndex+1, len(tracks), title)
	suffix := fmt.Sprintf(" %s / %s  %s", common.FormatCounter(st.Position), common.FormatCounter(st.Duration), status)

	barWidth := width - table.StringWidth(prefix) - table.StringWidth(suffix) - 2
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(st.Progress()*float64(barWidth) + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	return prefix + "[" + strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled) + "]" + suffix
}

func getTerminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 120
}
