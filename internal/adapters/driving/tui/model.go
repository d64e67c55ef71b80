// Package tui implements the interactive chat interface over the
// ingested corpus using Bubble Tea.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/docuchat/docuchat-cli/internal/core/domain"
	"github.com/docuchat/docuchat-cli/internal/core/ports/driving"
)

// exchange is one question/answer pair in the transcript.
type exchange struct {
	question string
	answer   *domain.Answer
	err      error
}

// answerMsg delivers an asynchronous Ask result.
type answerMsg struct {
	question string
	answer   *domain.Answer
	err      error
}

// Model is the Bubble Tea model for the chat session.
type Model struct {
	chat driving.ChatService

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	transcript []exchange
	waiting    bool
	ready      bool
	width      int
}

// New creates a new chat model.
func New(chat driving.ChatService) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question about your documents"
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		chat:     chat,
		input:    ti,
		viewport: viewport.New(0, 0),
		spin:     sp,
	}
}

// Init starts the text input cursor blink.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and answer events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, qh := inputBoxStyle.GetFrameSize()
		_, th := transcriptStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input frame, spacer
		vh := msg.Height - reserved - th
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = maxInt(20, msg.Width)
		m.viewport.Height = vh
		m.viewport.SetContent(m.renderTranscript())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.waiting {
				return m, nil
			}
			m.waiting = true
			m.input.Reset()
			m.transcript = append(m.transcript, exchange{question: q})
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, tea.Batch(m.spin.Tick, m.ask(q))
		case "up":
			m.viewport.ScrollUp(1)
			return m, nil
		case "down":
			m.viewport.ScrollDown(1)
			return m, nil
		}

	case answerMsg:
		m.waiting = false
		// Fill in the pending exchange.
		for i := len(m.transcript) - 1; i >= 0; i-- {
			if m.transcript[i].question == msg.question && m.transcript[i].answer == nil && m.transcript[i].err == nil {
				m.transcript[i].answer = msg.answer
				m.transcript[i].err = msg.err
				break
			}
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the question against the chat service off the UI loop.
func (m Model) ask(question string) tea.Cmd {
	chat := m.chat
	return func() tea.Msg {
		answer, err := chat.Ask(context.Background(), question, domain.RetrievalOptions{})
		return answerMsg{question: question, answer: answer, err: err}
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := headerStyle.Render("docuchat")
	transcript := transcriptStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())

	status := statusStyle.Render("Enter to ask, Ctrl-C to quit")
	if m.waiting {
		status = statusStyle.Render(m.spin.View() + " thinking...")
	}

	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.transcript) == 0 {
		return "Ask away. Answers cite their source passages."
	}

	var sb strings.Builder
	for i, ex := range m.transcript {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(questionStyle.Render("You: " + ex.question))
		sb.WriteString("\n")

		switch {
		case ex.err != nil:
			sb.WriteString(errorStyle.Render("Error: " + ex.err.Error()))
		case ex.answer == nil:
			sb.WriteString(statusStyle.Render("..."))
		default:
			sb.WriteString(ex.answer.Text)
			if len(ex.answer.Citations) > 0 {
				sb.WriteString("\n")
				for _, c := range ex.answer.Citations {
					sb.WriteString(citationStyle.Render(fmt.Sprintf("  [%s] %s", c.Marker, c.Filename)))
					sb.WriteString("\n")
				}
			}
		}
	}
	return sb.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
