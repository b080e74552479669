package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qabot/internal/domain"
)

type turn struct {
	question string
	answer   string
	pending  bool
}

// answerMsg carries a bot reply back into the update loop.
type answerMsg struct {
	answer  string
	elapsed time.Duration
}

// Model is the Bubble Tea model for the chat window.
type Model struct {
	ctx        context.Context
	bot        domain.Bot
	title      string
	summary    string
	input      textinput.Model
	viewport   viewport.Model
	transcript []turn
	status     string
	waiting    bool
	ready      bool
	width      int
}

// New creates a chat model backed by bot. summary is shown under the title.
func New(ctx context.Context, bot domain.Bot, title, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (quit to exit)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		bot:      bot,
		title:    title,
		summary:  summary,
		input:    ti,
		viewport: vp,
		status:   "Ready.",
	}
}

// Run starts the program in the alternate screen and blocks until it exits.
func Run(ctx context.Context, bot domain.Bot, title, summary string) error {
	p := tea.NewProgram(New(ctx, bot, title, summary), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+summary, status, input line
		vh := msg.Height - reserved - th
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, vh)
		m.refresh()
		return m, nil
	case answerMsg:
		if n := len(m.transcript); n > 0 {
			m.transcript[n-1].answer = msg.answer
			m.transcript[n-1].pending = false
		}
		m.waiting = false
		m.status = fmt.Sprintf("Answered in %s.", msg.elapsed.Round(time.Millisecond))
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if strings.EqualFold(q, "quit") {
				return m, tea.Quit
			}
			if q == "" || m.waiting {
				return m, nil
			}
			m.input.Reset()
			m.transcript = append(m.transcript, turn{question: q, pending: true})
			m.waiting = true
			m.status = "Thinking..."
			m.refresh()
			return m, m.ask(q)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, bot := m.ctx, m.bot
	return func() tea.Msg {
		start := time.Now()
		answer := bot.GetResponse(ctx, q)
		return answerMsg{answer: answer, elapsed: time.Since(start)}
	}
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(oneLine(m.title, m.width))
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(oneLine(m.summary, m.width))
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + summary + "\n" + transcript + "\n" + input + "\n" + status
}

// oneLine collapses whitespace in s and cuts it to width cells.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return lipgloss.NewStyle().MaxWidth(width-1).Render(s) + "…"
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "No questions yet."
	}
	wrap := lipgloss.NewStyle().Width(max(10, m.viewport.Width))
	var b strings.Builder
	for i, t := range m.transcript {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(wrap.Render(userStyle.Render("You: ") + t.question))
		b.WriteString("\n")
		answer := t.answer
		if t.pending {
			answer = pendingStyle.Render("...")
		}
		b.WriteString(wrap.Render(botStyle.Render("Chatbot: ") + answer))
	}
	return b.String()
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	pendingStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)
