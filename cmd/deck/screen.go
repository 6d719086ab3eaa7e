package deck

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gigurra/ferrite/cmd/common"
	"github.com/gigurra/ferrite/cmd/common/notify"
	"github.com/gigurra/ferrite/cmd/common/table"
	"github.com/gigurra/ferrite/cmd/deck/tape"
)

const (
	contentWidth = 44
	windowWidth  = 34
	gaugeWidth   = 10

	// frameEvery drives reel spin and glitch animation between engine
	// ticks.
	frameEvery = 120 * time.Millisecond

	helpLine = "space play/pause • f/g wind • r/t rewind • tab flip • n up next • q eject"
)

var (
	dShellStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	dArtStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dTitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	dSideStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	dTrackStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dDimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	dStatusStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	dHeatWarmStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dOverheatStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	dPhosphorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	dScanlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dJumpscareStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// stateMsg carries an engine snapshot into the tea loop.
type stateMsg tape.State

type frameMsg struct{}

type deckModel struct {
	deck     *tape.Deck
	mixtape  *tape.Mixtape
	states   <-chan tape.State
	notifier *notify.Notifier

	st       tape.State
	frame    int
	width    int
	showNext bool

	// Edge detection for one-shot notifications
	overheatSent bool
	sideEndSent  bool
}

func newDeckModel(d *tape.Deck, m *tape.Mixtape, states <-chan tape.State, n *notify.Notifier) deckModel {
	return deckModel{
		deck:     d,
		mixtape:  m,
		states:   states,
		notifier: n,
		st:       d.State(),
		width:    80,
	}
}

func (m deckModel) Init() tea.Cmd {
	return tea.Batch(waitForState(m.states), frameTick(), tea.EnterAltScreen)
}

// waitForState blocks on the next engine snapshot. Re-armed per message.
func waitForState(ch <-chan tape.State) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(frameEvery, func(time.Time) tea.Msg { return frameMsg{} })
}

func (m deckModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			if m.deck.State().Playing {
				m.deck.Pause()
			} else {
				_ = m.deck.Play()
			}
		case "f":
			m.deck.StartFastForward()
		case "g":
			m.deck.StopFastForward()
		case "r":
			m.deck.StartRewind()
		case "t":
			m.deck.StopRewind()
		case "tab":
			_ = m.deck.FlipSide()
		case "n":
			m.showNext = !m.showNext
		}
		// Commands mutate synchronously, re-read for an instant redraw
		// instead of waiting on the subscription.
		return m.observe(m.deck.State()), nil

	case stateMsg:
		return m.observe(tape.State(msg)), waitForState(m.states)

	case frameMsg:
		if m.st.Moving() || m.st.Glitch != nil {
			m.frame++
		}
		return m, frameTick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
	}
	return m, nil
}

// observe folds a fresh snapshot into the model and fires one-shot
// notifications on the overheat and end-of-side edges.
func (m deckModel) observe(st tape.State) deckModel {
	if st.Overheated {
		if !m.overheatSent {
			m.notifier.Overheated(m.mixtape.Title)
			m.overheatSent = true
		}
	} else {
		m.overheatSent = false
	}

	if atSideEnd(m.mixtape, st) {
		if !m.sideEndSent {
			m.notifier.SideEnded(m.mixtape.Title, string(st.Side))
			m.sideEndSent = true
		}
	} else {
		m.sideEndSent = false
	}

	m.st = st
	return m
}

// atSideEnd reports whether the transport ran off the end of the last
// track and is waiting for a flip.
func atSideEnd(m *tape.Mixtape, st tape.State) bool {
	tracks := m.Tracks(st.Side)
	if len(tracks) == 0 || st.Moving() {
		return false
	}
	return st.TrackIndex == len(tracks)-1 && st.Duration > 0 && st.Position >= st.Duration
}

func (m deckModel) View() string {
	st := m.st
	g := st.Glitch
	if g != nil && g.Expired(time.Now()) {
		g = nil
	}
	phosphor := g != nil && g.Kind == tape.GlitchPhosphorGreen
	jitter := g != nil && g.Kind == tape.GlitchTapeJitter

	tracks := m.mixtape.Tracks(st.Side)

	rows := []string{
		m.titleRow(st, phosphor),
		"",
		m.windowRow("┌"+strings.Repeat("─", windowWidth)+"┐", phosphor),
		m.reelRow(st, tracks, phosphor),
		m.windowRow("└"+strings.Repeat("─", windowWidth)+"┘", phosphor),
		"",
	}
	rows = append(rows, m.trackRows(st, tracks, phosphor, jitter)...)
	rows = append(rows, "", m.statusRow(st, tracks, phosphor))

	shell := pick(dShellStyle, phosphor)
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString("  " + shell.Render("╭"+strings.Repeat("─", contentWidth+2)+"╮") + "\n")
	for _, r := range rows {
		b.WriteString("  " + shell.Render("│ ") + table.PadRight(r, contentWidth) + shell.Render(" │") + "\n")
	}
	b.WriteString("  " + shell.Render("╰"+strings.Repeat("─", contentWidth+2)+"╯") + "\n")
	b.WriteString("\n  " + dDimStyle.Render(helpLine) + "\n")

	return applyGlitchOverlay(b.String(), g, m.frame)
}

// pick substitutes the phosphor palette while that glitch is active.
func pick(s lipgloss.Style, phosphor bool) lipgloss.Style {
	if phosphor {
		return dPhosphorStyle
	}
	return s
}

func (m deckModel) titleRow(st tape.State, phosphor bool) string {
	side := "SIDE " + string(st.Side)
	title := m.mixtape.Title
	if title == "" {
		title = "(untitled)"
	}
	title = table.TruncateWithEllipsis(strings.ToUpper(title), contentWidth-len(side)-2)
	gap := contentWidth - table.StringWidth(title) - len(side)
	return pick(dTitleStyle, phosphor).Render(title) +
		strings.Repeat(" ", gap) +
		pick(dSideStyle, phosphor).Render(side)
}

func (m deckModel) windowRow(art string, phosphor bool) string {
	return "    " + pick(dArtStyle, phosphor).Render(art)
}

// reelRow draws the tape window: two reels and the spooled tape between
// them, drifting from the supply reel to the takeup reel as the side
// plays down.
func (m deckModel) reelRow(st tape.State, tracks []tape.Track, phosphor bool) string {
	const spoolW = windowWidth - 10
	p := sideProgress(tracks, st)
	left := spoolW - int(p*float64(spoolW)+0.5)
	spool := strings.Repeat("▓", left) + strings.Repeat("░", spoolW-left)
	reel := reelGlyph(m.frame, st)
	art := "│ " + reel + " " + spool + " " + reel + " │"
	return "    " + pick(dArtStyle, phosphor).Render(art)
}

func (m deckModel) trackRows(st tape.State, tracks []tape.Track, phosphor, jitter bool) []string {
	if len(tracks) == 0 {
		return []string{
			pick(dDimStyle, phosphor).Render("no tracks on this side, tab flips the tape"),
			"",
			"",
		}
	}

	idx := st.TrackIndex
	if idx >= len(tracks) {
		idx = len(tracks) - 1
	}

	name := fmt.Sprintf("%02d  %s", idx+1, tracks[idx].Title)
	rows := []string{
		pick(dTrackStyle, phosphor).Render(table.TruncateWithEllipsis(name, contentWidth)),
	}

	counter := common.FormatCounter(st.Position) + " / " + common.FormatCounter(st.Duration)
	barW := contentWidth - table.StringWidth(counter) - 3
	bar := deckBar(st.Progress(), barW, jitter, m.frame)
	rows = append(rows,
		pick(dArtStyle, phosphor).Render("["+bar+"]")+" "+pick(dDimStyle, phosphor).Render(counter))

	switch {
	case atSideEnd(m.mixtape, st):
		rows = append(rows,
			pick(dHeatWarmStyle, phosphor).Render("end of side "+string(st.Side)+", tab flips the tape"))
	case m.showNext && idx+1 < len(tracks):
		next := "next: " + tracks[idx+1].Title
		rows = append(rows,
			pick(dDimStyle, phosphor).Render(table.TruncateWithEllipsis(next, contentWidth)))
	default:
		rows = append(rows, "")
	}
	return rows
}

func (m deckModel) statusRow(st tape.State, tracks []tape.Track, phosphor bool) string {
	word := table.PadRight(statusWord(st), 9)
	ws := pick(dStatusStyle, phosphor)
	if st.Overheated {
		ws = pick(dOverheatStyle, phosphor)
	} else if !st.Moving() {
		ws = pick(dDimStyle, phosphor)
	}

	gauge := "heat [" + heatGauge(st.OverheatLevel, gaugeWidth) + "]"
	gs := pick(dDimStyle, phosphor)
	switch {
	case st.Overheated:
		gs = pick(dOverheatStyle, phosphor)
	case st.OverheatLevel >= 50:
		gs = pick(dHeatWarmStyle, phosphor)
	}

	reading := fmt.Sprintf("counter %04d", counterReading(tracks, st)%10000)

	gap := contentWidth - 9 - table.StringWidth(gauge) - table.StringWidth(reading)
	g1 := max(gap/2, 1)
	g2 := max(gap-g1, 1)
	return ws.Render(word) +
		strings.Repeat(" ", g1) + gs.Render(gauge) +
		strings.Repeat(" ", g2) + pick(dDimStyle, phosphor).Render(reading)
}

func statusWord(st tape.State) string {
	switch {
	case !st.Loaded():
		return "EJECT"
	case st.Overheated:
		return "OVERHEAT"
	case st.FastForwarding:
		return "FF ▸▸"
	case st.Rewinding:
		return "REW ◂◂"
	case st.Playing:
		return "PLAY ▸"
	default:
		return "STOP ■"
	}
}

var reelSpin = []string{"(|)", "(/)", "(-)", "(\\)"}

func reelGlyph(frame int, st tape.State) string {
	if !st.Moving() {
		return "(●)"
	}
	step := frame
	if st.Scrubbing() {
		step *= 2
	}
	if st.Rewinding {
		step = -step
	}
	return reelSpin[((step%4)+4)%4]
}

// sideProgress is how far through the whole side the head sits, 0..1.
func sideProgress(tracks []tape.Track, st tape.State) float64 {
	var total, elapsed time.Duration
	for i, tr := range tracks {
		total += tr.Duration
		if i < st.TrackIndex {
			elapsed += tr.Duration
		}
	}
	elapsed += st.Position
	if total <= 0 {
		return 0
	}
	return min(max(float64(elapsed)/float64(total), 0), 1)
}

// counterReading mimics a mechanical tape counter: seconds of tape
// wound past the head on the current side.
func counterReading(tracks []tape.Track, st tape.State) int {
	elapsed := st.Position
	for i := 0; i < st.TrackIndex && i < len(tracks); i++ {
		elapsed += tracks[i].Duration
	}
	return int(elapsed / time.Second)
}

func deckBar(progress float64, width int, jitter bool, frame int) string {
	if width < 1 {
		width = 1
	}
	filled := int(progress*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	cells := []rune(strings.Repeat("█", filled) + strings.Repeat("░", width-filled))
	if jitter {
		for i := range cells {
			if (i*31+frame*17)%7 == 0 {
				cells[i] = '▒'
			}
		}
	}
	return string(cells)
}

func heatGauge(level float64, width int) string {
	filled := int(level/100*float64(width) + 0.5)
	filled = min(max(filled, 0), width)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}

// applyGlitchOverlay distorts the rendered frame. Only whole-line
// substitutions and indents are used so embedded color codes survive.
func applyGlitchOverlay(frame string, g *tape.Glitch, tick int) string {
	if g == nil {
		return frame
	}
	lines := strings.Split(frame, "\n")
	switch g.Kind {
	case tape.GlitchUIShake:
		pad := strings.Repeat(" ", tick%3)
		for i, l := range lines {
			if l != "" {
				lines[i] = pad + l
			}
		}
	case tape.GlitchCRTScanline:
		if len(lines) > 0 {
			row := tick % len(lines)
			lines[row] = "  " + dScanlineStyle.Render(strings.Repeat("▔", contentWidth+4))
		}
	}
	if g.Jumpscare != "" && len(lines) > 2 {
		mid := len(lines) / 2
		lines[mid] = "  " + dJumpscareStyle.Render("▶ "+g.Jumpscare+" ◀")
	}
	return strings.Join(lines, "\n")
}
