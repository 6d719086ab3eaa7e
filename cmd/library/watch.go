package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GiGurra/boa/pkg/boa"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/common/table"
	"github.com/gigurra/ferrite/cmd/deck"
	"github.com/gigurra/ferrite/cmd/deck/tape"
	"github.com/gigurra/ferrite/cmd/library/store"
)

var (
	wSelectedStyle = lipgloss.NewStyle().Bold(true).Background(lipgloss.Color("238"))
	wHeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	wHelpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	wSearchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	wConfirmStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// libraryChangedMsg is sent when a mixtape file in the library changes
type libraryChangedMsg struct{}

type watchModel struct {
	store *store.Store

	// Data
	mixtapes []tape.Mixtape
	filtered []tape.Mixtape

	// Navigation
	cursor         int
	viewportOffset int
	viewportHeight int

	// Search
	searchInput   string
	searchFocused bool

	// UI state
	width         int
	height        int
	confirmDelete bool
	helpView      bool
	statusMsg     string

	// Result: the mixtape to slot into the deck, nil when just quitting
	selected *tape.Mixtape
}

func initialWatchModel(s *store.Store) watchModel {
	return watchModel{
		store:          s,
		viewportHeight: 20,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(watchLibraryCmd(m.store.Dir()), tea.EnterAltScreen)
}

// watchLibraryCmd blocks on a file watcher over the library directory and
// reports the next relevant change. The watcher is re-armed per event.
func watchLibraryCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			watcher.Close()
			return nil
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil
		}

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Ext(event.Name) != ".json" {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					watcher.Close()
					return libraryChangedMsg{}
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				watcher.Close()
				return nil
			}
		}
	}
}

func (m watchModel) loadMixtapes() watchModel {
	mixtapes, err := m.store.List()
	if err != nil {
		m.statusMsg = "Error: " + err.Error()
		return m
	}
	m.mixtapes = mixtapes
	return m.applySearchFilter()
}

func (m watchModel) applySearchFilter() watchModel {
	if m.searchInput == "" {
		m.filtered = m.mixtapes
	} else {
		query := strings.ToLower(m.searchInput)
		m.filtered = lo.Filter(m.mixtapes, func(mt tape.Mixtape, _ int) bool {
			return strings.Contains(strings.ToLower(mt.Title), query) ||
				strings.Contains(strings.ToLower(mt.ID), query)
		})
	}

	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	if m.viewportOffset > m.cursor {
		m.viewportOffset = m.cursor
	}
	return m
}

func (m watchModel) ensureCursorVisible() watchModel {
	if m.cursor < m.viewportOffset {
		m.viewportOffset = m.cursor
	}
	if m.cursor >= m.viewportOffset+m.viewportHeight {
		m.viewportOffset = m.cursor - m.viewportHeight + 1
	}
	return m
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Confirmation dialog first
		if m.confirmDelete {
			switch msg.String() {
			case "y", "Y":
				if m.cursor < len(m.filtered) {
					mt := m.filtered[m.cursor]
					if err := m.store.Delete(mt.ID); err != nil {
						m.statusMsg = "Error: " + err.Error()
					} else {
						m.statusMsg = "Deleted " + mt.Title
					}
					m = m.loadMixtapes()
				}
				m.confirmDelete = false
			case "n", "N", "esc", " ":
				m.confirmDelete = false
			}
			return m, nil
		}

		if m.helpView {
			m.helpView = false
			return m, nil
		}

		if m.searchFocused {
			switch msg.String() {
			case "esc":
				if m.searchInput != "" {
					m.searchInput = ""
					m = m.applySearchFilter()
				} else {
					m.searchFocused = false
				}
			case "enter":
				m.searchFocused = false
			case "backspace":
				if len(m.searchInput) > 0 {
					m.searchInput = m.searchInput[:len(m.searchInput)-1]
					m = m.applySearchFilter()
				}
			case "ctrl+u":
				m.searchInput = ""
				m = m.applySearchFilter()
			case "up":
				m.searchFocused = false
				if m.cursor > 0 {
					m.cursor--
					m = m.ensureCursorVisible()
				}
			case "down":
				m.searchFocused = false
				if m.cursor < len(m.filtered)-1 {
					m.cursor++
					m = m.ensureCursorVisible()
				}
			default:
				if len(msg.String()) == 1 && msg.String()[0] >= 32 && msg.String()[0] < 127 {
					m.searchInput += msg.String()
					m = m.applySearchFilter()
				}
			}
			return m, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.searchInput != "" {
				m.searchInput = ""
				m = m.applySearchFilter()
			}
		case "/":
			m.searchFocused = true
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m = m.ensureCursorVisible()
			}
		case "down", "j":
			if m.cursor < len(m.filtered)-1 {
				m.cursor++
				m = m.ensureCursorVisible()
			}
		case "home", "g":
			m.cursor = 0
			m = m.ensureCursorVisible()
		case "end", "G":
			if len(m.filtered) > 0 {
				m.cursor = len(m.filtered) - 1
			}
			m = m.ensureCursorVisible()
		case "enter":
			if len(m.filtered) > 0 && m.cursor < len(m.filtered) {
				mt := m.filtered[m.cursor]
				m.selected = &mt
				return m, tea.Quit
			}
		case "r":
			m = m.loadMixtapes()
			m.statusMsg = ""
		case "h", "?":
			m.helpView = true
		case "delete", "x":
			if len(m.filtered) > 0 && m.cursor < len(m.filtered) {
				m.confirmDelete = true
				m.statusMsg = ""
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewportHeight = max(msg.Height-9, 5)
		m = m.ensureCursorVisible()

	case libraryChangedMsg:
		m = m.loadMixtapes()
		return m, watchLibraryCmd(m.store.Dir())
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.helpView {
		return m.renderHelpView()
	}

	var b strings.Builder

	b.WriteString("\n  ")
	if m.searchFocused {
		b.WriteString(wSearchStyle.Render("Search: [" + m.searchInput + "_]"))
	} else if m.searchInput != "" {
		b.WriteString(wSearchStyle.Render("Search: [" + m.searchInput + "]"))
	} else {
		b.WriteString(wHelpStyle.Render("/ to search"))
	}

	if len(m.filtered) != len(m.mixtapes) {
		b.WriteString(wHelpStyle.Render(fmt.Sprintf("  [showing %d of %d]", len(m.filtered), len(m.mixtapes))))
	} else if len(m.mixtapes) > 0 {
		b.WriteString(wHelpStyle.Render(fmt.Sprintf("  [%d mixtapes]", len(m.mixtapes))))
	}
	b.WriteString("\n\n")

	if len(m.filtered) == 0 {
		if len(m.mixtapes) == 0 {
			b.WriteString("  The library is empty. Record a tape with: ferrite library new <title>\n")
		} else {
			b.WriteString("  No matches for \"" + m.searchInput + "\"\n")
		}
		b.WriteString("\n")
		b.WriteString(wHelpStyle.Render("  r refresh • / search • q quit"))
		b.WriteString("\n")
		return b.String()
	}

	tbl := table.New(
		table.Column{Header: "ID", Width: 10},
		table.Column{Header: "TITLE", MinWidth: 20, Weight: 0.7, Truncate: true},
		table.Column{Header: "TRACKS", Width: 6},
		table.Column{Header: "A/B", Width: 11},
		table.Column{Header: "RUNTIME", Width: 8},
	)
	tbl.TerminalWidth = max(m.width-5, 60)
	tbl.HeaderStyle = wHeaderStyle
	tbl.SelectedStyle = wSelectedStyle
	tbl.SelectedIndex = m.cursor
	tbl.ViewportOffset = m.viewportOffset
	tbl.ViewportHeight = m.viewportHeight
	tbl.Padding = 1

	for _, mt := range m.filtered {
		tbl.AddRow(
			shortID(mt.ID),
			mt.Title,
			fmt.Sprintf("%d", mt.TrackCount()),
			fmt.Sprintf("%d/%d", len(mt.SideA), len(mt.SideB)),
			common.FormatCounter(mt.Runtime()),
		)
	}

	b.WriteString(tbl.Render())
	b.WriteString("\n\n")
	if m.confirmDelete {
		b.WriteString(wConfirmStyle.Render("  Delete this mixtape? [y/n]"))
	} else if m.statusMsg != "" {
		b.WriteString(wSearchStyle.Render("  " + m.statusMsg))
	} else {
		b.WriteString(wHelpStyle.Render("  h help • ↑/↓ navigate • enter play • x delete • q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m watchModel) renderHelpView() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(wSearchStyle.Render("  Library Watch - Keyboard Shortcuts"))
	b.WriteString("\n\n")

	b.WriteString(wHeaderStyle.Render("  Navigation"))
	b.WriteString("\n")
	b.WriteString("    ↑/k       Move cursor up\n")
	b.WriteString("    ↓/j       Move cursor down\n")
	b.WriteString("    g/Home    Go to first\n")
	b.WriteString("    G/End     Go to last\n")
	b.WriteString("    enter     Slot the mixtape into the deck\n")
	b.WriteString("    q/esc     Quit watch mode\n")
	b.WriteString("\n")

	b.WriteString(wHeaderStyle.Render("  Search"))
	b.WriteString("\n")
	b.WriteString("    /         Start search\n")
	b.WriteString("    esc       Clear search / exit search mode\n")
	b.WriteString("    ^U        Clear search input\n")
	b.WriteString("\n")

	b.WriteString(wHeaderStyle.Render("  Actions"))
	b.WriteString("\n")
	b.WriteString("    x/del     Delete mixtape (with confirmation)\n")
	b.WriteString("    r         Refresh the list\n")
	b.WriteString("\n")

	b.WriteString(wHelpStyle.Render("  Press any key to close"))
	b.WriteString("\n")
	return b.String()
}

// WatchState holds state that persists between deck sessions
type WatchState struct {
	SearchInput    string
	Cursor         int
	ViewportOffset int
}

// runWatch runs one round of the interactive library browser.
// Returns the selected mixtape, or nil if the user quit.
func runWatch(s *store.Store, state WatchState) (*tape.Mixtape, WatchState, error) {
	m := initialWatchModel(s)
	m.searchInput = state.SearchInput
	m.cursor = state.Cursor
	m.viewportOffset = state.ViewportOffset

	m = m.loadMixtapes()
	if m.cursor >= len(m.filtered) {
		m.cursor = max(0, len(m.filtered)-1)
	}
	m = m.ensureCursorVisible()

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return nil, state, err
	}

	fm := finalModel.(watchModel)
	newState := WatchState{
		SearchInput:    fm.searchInput,
		Cursor:         fm.cursor,
		ViewportOffset: fm.viewportOffset,
	}
	return fm.selected, newState, nil
}

// RunWatchMode runs the browse/play loop: pick a tape, run the deck,
// return to the browser when the deck screen exits.
func RunWatchMode(s *store.Store) error {
	var state WatchState
	for {
		selected, newState, err := runWatch(s, state)
		state = newState
		if err != nil {
			return err
		}
		if selected == nil {
			return nil
		}
		if err := deck.RunScreen(selected); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
}

func WatchCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:         "watch",
		Short:       "Browse the library and play mixtapes interactively",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *boa.NoParams, cmd *cobra.Command, args []string) {
			if err := RunWatchMode(store.Default()); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}
