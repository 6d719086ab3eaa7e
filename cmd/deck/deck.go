// Package deck implements the interactive cassette deck screen.
package deck

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/common/config"
	"github.com/gigurra/ferrite/cmd/common/notify"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

// newProvider is swapped out by tests to run the deck without an audio
// device.
var newProvider = func() tape.Provider { return tape.NewBeepProvider() }

type Params struct {
	Ref string `pos:"true" descr:"Mixtape id, id prefix, or title"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "deck <mixtape>",
		Short:       "Slot a mixtape into the cassette deck",
		Long: `Opens the interactive deck screen: transport controls, tape counter,
heat gauge, and the occasional glitch. Scrubbing heats the motor, an
overheated motor refuses to wind until it cools down.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			exitCode := RunDeck(params, store.Default(), os.Stderr)
			if exitCode != 0 {
				os.Exit(exitCode)
			}
		},
	}.ToCobra()
}

// RunDeck resolves the mixtape reference and runs the deck screen on it.
func RunDeck(params *Params, s *store.Store, stderr *os.File) int {
	m, err := s.Resolve(params.Ref)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := RunScreen(m); err != nil {
		fmt.Fprintf(stderr, "Error running deck: %v\n", err)
		return 1
	}
	return 0
}

// RunScreen slots the mixtape into a fresh deck and runs the screen
// until the user ejects.
func RunScreen(m *tape.Mixtape) error {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("config load failed, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	d := tape.NewDeck(newProvider(), cfg.Deck.Options())
	defer d.Cleanup()
	if err := d.Load(m); err != nil {
		return err
	}

	// Engine snapshots flow through a buffered channel into the tea
	// loop. Dropping under backpressure is fine, the next snapshot
	// supersedes anything missed.
	states := make(chan tape.State, 64)
	unsub := d.OnStateChange(func(st tape.State) {
		select {
		case states <- st:
		default:
		}
	})
	defer unsub()

	model := newDeckModel(d, m, states, notify.FromConfig(cfg.Notifications))
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
