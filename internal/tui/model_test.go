package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cannedBot struct{ asked []string }

func (b *cannedBot) GetResponse(_ context.Context, q string) string {
	b.asked = append(b.asked, q)
	return "Paris"
}

func sized(t *testing.T, m Model) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func TestModel_AskAndAnswer(t *testing.T) {
	bot := &cannedBot{}
	m := sized(t, New(context.Background(), bot, "qabot", "A corpus about France."))
	assert.Contains(t, m.View(), "A corpus about France.")

	m.input.SetValue("  capital of France?  ")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Empty(t, m.input.Value())

	// a second Enter while waiting is ignored
	m.input.SetValue("again")
	_, cmd2 := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd2)

	msg := cmd()
	require.IsType(t, answerMsg{}, msg)
	next, _ = m.Update(msg)
	m = next.(Model)

	assert.Equal(t, []string{"capital of France?"}, bot.asked)
	assert.False(t, m.waiting)
	require.Len(t, m.transcript, 1)
	assert.Equal(t, "Paris", m.transcript[0].answer)
	assert.Contains(t, m.renderTranscript(), "Paris")
}

func TestModel_Quit(t *testing.T) {
	m := sized(t, New(context.Background(), &cannedBot{}, "qabot", ""))
	m.input.SetValue("QUIT")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_LoadingBeforeSize(t *testing.T) {
	m := New(context.Background(), &cannedBot{}, "qabot", "")
	assert.Equal(t, "Loading...", m.View())
}

func TestModel_LongSummaryFitsWindow(t *testing.T) {
	summary := strings.Repeat("a line of corpus text without any full stop\n", 200)
	m := sized(t, New(context.Background(), &cannedBot{}, strings.Repeat("title ", 40), summary))

	lines := strings.Split(m.View(), "\n")
	assert.LessOrEqual(t, len(lines), 24)
	for _, line := range lines {
		assert.LessOrEqual(t, lipgloss.Width(line), 80)
	}
	assert.Contains(t, lines[1], "…")
}

func TestOneLine(t *testing.T) {
	assert.Equal(t, "a b c", oneLine(" a\n b\t c ", 80))
	assert.Equal(t, "abc…", oneLine("abcdefgh", 4))
	assert.Equal(t, "abcdefgh", oneLine("abcdefgh", 0))
}
