package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	barprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/threadview/pkg/conversation"
	"github.com/go-go-golems/threadview/pkg/events"
	"github.com/go-go-golems/threadview/pkg/progress"
)

// Controller is the part of a chat session the model issues commands to. Results come back as
// events through ForwardFunc.
type Controller interface {
	RequestSwitchSibling(id conversation.NodeID) error
	RequestStop(id conversation.NodeID) error
}

// Model renders the visible path of a conversation and the retrieval progress of the answer being
// streamed.
type Model struct {
	controller Controller
	title      string

	viewport viewport.Model
	bar      barprogress.Model
	help     help.Model
	keyMap   KeyMap
	style    *Style

	path         []events.PathEntry
	activeLeafID conversation.NodeID
	progress     map[conversation.NodeID]progress.State
	// NullNode when nothing is streaming
	streamingID conversation.NodeID

	// index into path, follows the end of the path unless the user moved up
	selectedIdx int
	following   bool

	err    error
	done   bool
	width  int
	height int
}

type ModelOption func(*Model)

func WithTitle(title string) ModelOption {
	return func(m *Model) {
		m.title = title
	}
}

func WithKeyMap(k KeyMap) ModelOption {
	return func(m *Model) {
		m.keyMap = k
	}
}

func WithStyle(s *Style) ModelOption {
	return func(m *Model) {
		m.style = s
	}
}

func NewModel(controller Controller, options ...ModelOption) Model {
	ret := Model{
		controller: controller,
		title:      "THREADVIEW",
		viewport:   viewport.New(0, 0),
		bar:        barprogress.New(barprogress.WithDefaultGradient(), barprogress.WithoutPercentage()),
		help:       help.New(),
		keyMap:     DefaultKeyMap,
		style:      DefaultStyles(),
		progress:   map[conversation.NodeID]progress.State{},
		following:  true,
	}
	for _, o := range options {
		o(&ret)
	}
	ret.updateKeyBindings()
	return ret
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) selected() (events.PathEntry, bool) {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.path) {
		return events.PathEntry{}, false
	}
	return m.path[m.selectedIdx], true
}

func (m Model) command(f func() error) tea.Cmd {
	return func() tea.Msg {
		if err := f(); err != nil {
			return ErrorMsg{Err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Quit):
			return m, tea.Quit

		case key.Matches(msg, m.keyMap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.recomputeSize()

		case key.Matches(msg, m.keyMap.SelectPrevMessage):
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.following = false
			}
			m.refresh()

		case key.Matches(msg, m.keyMap.SelectNextMessage):
			if m.selectedIdx < len(m.path)-1 {
				m.selectedIdx++
			}
			m.following = m.selectedIdx == len(m.path)-1
			m.refresh()

		case key.Matches(msg, m.keyMap.PrevSibling):
			if entry, ok := m.selected(); ok && entry.PrevSiblingID != conversation.NullNode {
				cmds = append(cmds, m.command(func() error {
					return m.controller.RequestSwitchSibling(entry.PrevSiblingID)
				}))
			}

		case key.Matches(msg, m.keyMap.NextSibling):
			if entry, ok := m.selected(); ok && entry.NextSiblingID != conversation.NullNode {
				cmds = append(cmds, m.command(func() error {
					return m.controller.RequestSwitchSibling(entry.NextSiblingID)
				}))
			}

		case key.Matches(msg, m.keyMap.StopResponse):
			if id := m.streamingID; id != conversation.NullNode {
				cmds = append(cmds, m.command(func() error {
					return m.controller.RequestStop(id)
				}))
			}

		default:
			m.viewport, cmd = m.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recomputeSize()

	case PathMsg:
		m.path = msg.Path
		m.activeLeafID = msg.ActiveLeafID
		if m.following || m.selectedIdx >= len(m.path) {
			m.selectedIdx = len(m.path) - 1
			m.following = true
		}
		m.refresh()

	case StreamStartMsg:
		m.streamingID = msg.NodeID

	case PartialMsg:
		m.setEntry(msg.NodeID, func(e *events.PathEntry) {
			e.Content = msg.Content
		})
		m.refresh()

	case StreamEndMsg:
		m.setEntry(msg.NodeID, func(e *events.PathEntry) {
			e.Content = msg.Content
			e.Status = msg.Status
		})
		if m.streamingID == msg.NodeID {
			m.streamingID = conversation.NullNode
		}
		m.refresh()

	case ProgressMsg:
		m.progress[msg.NodeID] = msg.State
		if msg.State.Active {
			m.streamingID = msg.NodeID
		}
		m.recomputeSize()

	case ErrorMsg:
		m.err = msg.Err
		m.recomputeSize()

	case ReplayDoneMsg:
		m.done = true
		if msg.Err != nil {
			m.err = msg.Err
		}
		m.updateKeyBindings()
		m.recomputeSize()
		return m, tea.Batch(cmds...)
	}

	m.updateKeyBindings()
	return m, tea.Batch(cmds...)
}

func (m *Model) setEntry(id conversation.NodeID, f func(e *events.PathEntry)) {
	for i := range m.path {
		if m.path[i].ID == id {
			f(&m.path[i])
			return
		}
	}
}

func (m *Model) updateKeyBindings() {
	entry, ok := m.selected()
	m.keyMap.PrevSibling.SetEnabled(ok && entry.PrevSiblingID != conversation.NullNode)
	m.keyMap.NextSibling.SetEnabled(ok && entry.NextSiblingID != conversation.NullNode)
	m.keyMap.StopResponse.SetEnabled(m.streamingID != conversation.NullNode)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.messageView())
	if m.following {
		m.viewport.GotoBottom()
	}
}

func (m *Model) recomputeSize() {
	headerHeight := lipgloss.Height(m.headerView())
	statusHeight := lipgloss.Height(m.statusView())
	helpHeight := lipgloss.Height(m.help.View(m.keyMap))

	newHeight := m.height - headerHeight - statusHeight - helpHeight
	if newHeight < 0 {
		newHeight = 0
	}
	m.viewport.Width = m.width
	m.viewport.Height = newHeight
	m.viewport.YPosition = headerHeight

	m.bar.Width = m.width - 40
	if m.bar.Width < 10 {
		m.bar.Width = 10
	}
	m.help.Width = m.width

	m.refresh()
}

func (m Model) headerView() string {
	return m.style.Header.Render(m.title)
}

func roleLabel(r conversation.Role) string {
	switch r {
	case conversation.RoleQuestion:
		return "you"
	case conversation.RoleAnswer:
		return "assistant"
	case conversation.RoleOpeningStatement:
		return "welcome"
	}
	return string(r)
}

func (m Model) entryView(entry events.PathEntry, selected bool) string {
	style := m.style.UnselectedMessage
	if selected {
		style = m.style.SelectedMessage
	}
	w, _ := style.GetFrameSize()
	width := m.width - w

	header := m.style.Role.Render(roleLabel(entry.Role))
	if entry.SiblingCount > 1 {
		header += " " + m.style.Pager.Render(fmt.Sprintf("< %d/%d >", entry.SiblingIndex+1, entry.SiblingCount))
	}
	switch entry.Status {
	case conversation.StatusStreaming, conversation.StatusStopped, conversation.StatusErrored:
		header += " " + m.style.Status.Render(string(entry.Status))
	case conversation.StatusCreated, conversation.StatusCompleted:
	}
	if entry.Feedback.IsSet() {
		header += " " + m.style.Pager.Render("["+string(entry.Feedback.Rating)+"]")
	}

	content := wrapWords(entry.Content, width-style.GetHorizontalPadding())
	v := header + "\n" + content
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(v)
}

func (m Model) messageView() string {
	var sb strings.Builder
	for idx, entry := range m.path {
		sb.WriteString(m.entryView(entry, idx == m.selectedIdx))
		sb.WriteString("\n")
	}
	return sb.String()
}

// progressView renders the retrieval progress of the streaming answer, or the final progress of
// the last answer on the path.
func (m Model) progressView() string {
	id := m.streamingID
	if id == conversation.NullNode {
		for i := len(m.path) - 1; i >= 0; i-- {
			if m.path[i].Role == conversation.RoleAnswer {
				id = m.path[i].ID
				break
			}
		}
	}
	state, ok := m.progress[id]
	if !ok {
		return ""
	}
	label := "done"
	if state.Active {
		label = "retrieving, please wait"
	}
	return m.style.Progress.Render(
		fmt.Sprintf("%s %s %3d%%", label, m.bar.ViewAs(float64(state.Progress)/100), state.Progress),
	)
}

func (m Model) statusView() string {
	var lines []string
	if v := m.progressView(); v != "" {
		lines = append(lines, v)
	}
	if m.err != nil {
		lines = append(lines, m.style.Error.Render(wrapWords(m.err.Error(), m.width-2)))
	}
	if m.done {
		lines = append(lines, m.style.Pager.Render("replay finished"))
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	return m.headerView() + "\n" +
		m.viewport.View() + "\n" +
		m.statusView() + "\n" +
		m.help.View(m.keyMap)
}

var _ tea.Model = Model{}
