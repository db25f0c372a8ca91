package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/scene-engine/pkg/ftm"
	"github.com/jwebster45206/scene-engine/pkg/state"
)

// ConsoleUI is the BubbleTea model that runs the player.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	game          *state.Game
	view          state.View
	selected      int // position in view.Options
	sceneViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	status        string

	showQuitModal bool

	// Progress bar state
	progressTick int
}

type sceneLoadedMsg struct {
	id string
}

type externalLinkMsg struct {
	url string
}

type progressTickMsg struct{}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	disabledOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Strikethrough(true)

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")). // green
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, game *state.Game) ConsoleUI {
	sceneVp := viewport.New(50, 20)
	sceneVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	m := ConsoleUI{
		config:        cfg,
		game:          game,
		sceneViewport: sceneVp,
		metaViewport:  metaVp,
	}
	m.refreshView()
	return m
}

func (m ConsoleUI) Init() tea.Cmd {
	if m.view.Loading {
		return progressTick()
	}
	return nil
}

// refreshView re-renders the current scene and keeps the selection on a
// choosable option.
func (m *ConsoleUI) refreshView() {
	m.view = m.game.View()
	if rerr := m.game.TakeError(); rerr != nil {
		m.status = errorStyle.Render(rerr.Error())
	}
	if m.selected >= len(m.view.Options) || !choosable(m.view.Options, m.selected) {
		m.selected = nextChoosable(m.view.Options, -1, 1)
	}
	m.layout()
}

func (m *ConsoleUI) layout() {
	if m.width == 0 {
		return
	}
	sceneWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - sceneWidth - 6

	m.sceneViewport.Width = sceneWidth - 2
	m.sceneViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4

	m.sceneViewport.SetContent(m.writeSceneContent(m.sceneViewport.Width - 6))
	m.metaViewport.SetContent(writeMetadata(m.config, m.game.State(), m.view))
}

func (m ConsoleUI) writeSceneContent(width int) string {
	if width < 10 {
		width = 10
	}
	term := ftm.Terminal{Width: width}

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(m.view.Title)) + "\n\n")

	if m.view.Loading {
		b.WriteString(loadingStyle.Render("Loading "+m.view.SceneID+"...") + "\n\n")
		b.WriteString(m.renderProgressBar())
		return b.String()
	}

	if m.view.Ending != nil {
		b.WriteString(titleStyle.Render(term.Runs(m.view.Ending.Title)) + "\n\n")
		b.WriteString(term.Paragraphs(m.view.Ending.Description) + "\n\n")
	}
	if len(m.view.Passage) > 0 {
		b.WriteString(term.Paragraphs(m.view.Passage) + "\n\n")
	}
	if len(m.view.AchievedEndings) > 0 {
		for _, id := range m.view.AchievedEndings {
			b.WriteString("• " + id + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	n := 0
	for i, o := range m.view.Options {
		if o.Separator {
			b.WriteString(separatorStyle.Render("  ⋯") + "\n")
			continue
		}
		n++
		label := fmt.Sprintf("%d. %s", n, ftm.PlainRuns(o.Label))
		switch {
		case o.Disabled:
			b.WriteString("  " + disabledOptionStyle.Render(label))
		case i == m.selected:
			b.WriteString(selectedOptionStyle.Render("▶ " + label))
		default:
			b.WriteString("  " + optionStyle.Render(label))
		}
		b.WriteString("\n")
	}

	if m.view.Source != "" {
		b.WriteString("\n" + sourceStyle.Render("Scene by "+m.view.Source) + "\n")
	}
	return b.String()
}

func writeMetadata(cfg *ConsoleConfig, gs *state.GameState, v state.View) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("GAME STATE") + "\n\n")

	content.WriteString("Content:\n")
	if cfg.APIBaseURL != "" {
		content.WriteString(cfg.APIBaseURL + "\n\n")
	} else {
		content.WriteString(cfg.ContentDir + "\n\n")
	}

	content.WriteString("Scene:\n")
	content.WriteString(v.SceneID + "\n\n")

	content.WriteString("Previous:\n")
	content.WriteString(v.PrevScene + "\n\n")

	content.WriteString("Visited:\n")
	content.WriteString(fmt.Sprintf("%d scenes\n\n", gs.Visited.Len()))

	if len(gs.Vars) > 0 {
		content.WriteString("Variables:\n")
		names := make([]string, 0, len(gs.Vars))
		for k := range gs.Vars {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			content.WriteString(fmt.Sprintf("• %s: %s\n", k, gs.Vars[k].GoString()))
		}
	} else {
		content.WriteString("Variables:\nNone set\n")
	}

	content.WriteString("\n")
	content.WriteString("Keys:\n")
	content.WriteString("• ↑/↓ Enter: Choose\n")
	content.WriteString("• 1-9: Choose option\n")
	content.WriteString("• u: Undo\n")
	content.WriteString("• r: Reload scene\n")
	content.WriteString("• ctrl+r: Restart\n")
	content.WriteString("• y: Copy scene ID\n")
	content.WriteString("• Ctrl+C: Quit\n")

	return content.String()
}

func choosable(options []state.OptionView, i int) bool {
	return i >= 0 && i < len(options) && !options[i].Separator && !options[i].Disabled
}

// nextChoosable returns the first choosable option after from in direction
// dir, or from when there is none.
func nextChoosable(options []state.OptionView, from, dir int) int {
	for i := from + dir; i >= 0 && i < len(options); i += dir {
		if choosable(options, i) {
			return i
		}
	}
	if from < 0 {
		return 0
	}
	return from
}

// nthOption maps a 1-based number shown next to an option to its position
// in the option list.
func nthOption(options []state.OptionView, n int) (int, bool) {
	for i, o := range options {
		if o.Separator {
			continue
		}
		n--
		if n == 0 {
			return i, true
		}
	}
	return 0, false
}

func (m ConsoleUI) choose(pos int) ConsoleUI {
	if !choosable(m.view.Options, pos) {
		return m
	}
	m.status = ""
	if err := m.game.Choose(m.view.Options[pos].Index); err != nil {
		m.status = errorStyle.Render(err.Error())
	}
	m.selected = -1
	m.refreshView()
	return m
}

func (m ConsoleUI) navigate(lnk string) ConsoleUI {
	m.status = ""
	m.game.GoToScene(lnk)
	m.selected = -1
	m.refreshView()
	return m
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()

	case sceneLoadedMsg:
		m.game.Refresh()
		m.refreshView()
		return m, nil

	case externalLinkMsg:
		if err := clipboard.WriteAll(msg.url); err != nil {
			m.status = "External link: " + msg.url
		} else {
			m.status = "External link copied to clipboard: " + msg.url
		}
		return m, nil

	case progressTickMsg:
		if m.view.Loading {
			// Covers a load that finished before the program could be told.
			if m.game.Refresh() || m.game.Scene() != nil {
				m.refreshView()
				return m, nil
			}
			m.progressTick++
			m.layout()
			return m, progressTick()
		}
		return m, nil

	case tea.KeyMsg:
		wasLoading := m.view.Loading
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlR:
			m.status = ""
			m.game.Reset("")
			m.selected = -1
			m.refreshView()
		case tea.KeyUp:
			m.selected = nextChoosable(m.view.Options, m.selected, -1)
			m.layout()
		case tea.KeyDown:
			m.selected = nextChoosable(m.view.Options, m.selected, 1)
			m.layout()
		case tea.KeyEnter:
			m = m.choose(m.selected)
		case tea.KeyRunes:
			switch key := msg.String(); key {
			case "u":
				m = m.navigate(state.LinkUndo)
			case "r":
				m = m.navigate(state.LinkReload)
			case "y":
				if err := clipboard.WriteAll(m.view.SceneID); err != nil {
					m.status = errorStyle.Render("Clipboard unavailable: " + err.Error())
				} else {
					m.status = "Copied " + m.view.SceneID
				}
			default:
				if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
					if pos, ok := nthOption(m.view.Options, int(key[0]-'0')); ok {
						m = m.choose(pos)
					}
				}
			}
		}
		if m.view.Loading && !wasLoading {
			m.progressTick = 0
			return m, progressTick()
		}
		return m, nil
	}

	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()

	case sceneLoadedMsg:
		m.game.Refresh()
		m.refreshView()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to quit your adventure?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	sceneWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - sceneWidth - 6

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.sceneViewport.View(),
			separatorStyle.Render(strings.Repeat("─", sceneWidth-4)),
			m.status,
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}

// renderProgressBar creates an animated progress bar for loading states
func (m ConsoleUI) renderProgressBar() string {
	usable := m.sceneViewport.Width - 6
	if usable <= 0 {
		usable = 30 // fallback before sizing
	}

	if usable > 80 {
		usable = 80
	} else if usable < 10 {
		usable = 10
	}

	const totalFrames = 40
	frame := m.progressTick % totalFrames
	filled := (frame * usable) / totalFrames

	var bar strings.Builder
	for i := 0; i < usable; i++ {
		if i < filled {
			bar.WriteString("█")
		} else if i == filled && frame%4 < 2 {
			bar.WriteString("▓") // Blinking effect at the progress point
		} else {
			bar.WriteString("░")
		}
	}
	return separatorStyle.Render(bar.String())
}

// progressTick creates a command that sends a progress tick message
func progressTick() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}
