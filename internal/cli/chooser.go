package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mstream-dl/internal/hls"
)

var (
	chooserTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	chooserMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	chooserErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	chooserSelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
)

var errChooserCanceled = errors.New("resolution choice canceled")

const noChoice = -1

// teaChooser asks for a rendition in the terminal. Arrow keys move the cursor;
// typing an index and pressing enter picks it directly.
type teaChooser struct {
	out io.Writer
}

func (c teaChooser) Choose(ctx context.Context, labels []string) (int, error) {
	if len(labels) == 0 {
		return 0, hls.ErrNoChoice
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.out != nil {
		opts = append(opts, tea.WithOutput(c.out))
	}
	final, err := tea.NewProgram(newChooserModel(labels), opts...).Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, err
	}
	m, ok := final.(chooserModel)
	if !ok {
		return 0, fmt.Errorf("unexpected chooser model %T", final)
	}
	if m.canceled || !m.done || m.cursor < 0 {
		return 0, errChooserCanceled
	}
	return m.cursor, nil
}

// chooserModel starts with no rendition highlighted; a choice is made only by
// typing an index or moving the cursor.
type chooserModel struct {
	labels   []string
	cursor   int
	input    textinput.Model
	errMsg   string
	done     bool
	canceled bool
}

func newChooserModel(labels []string) chooserModel {
	input := textinput.New()
	input.Placeholder = fmt.Sprintf("0-%d", len(labels)-1)
	input.CharLimit = 4
	input.Prompt = "Choose the desired resolution: "
	input.Focus()
	return chooserModel{
		labels: labels,
		cursor: noChoice,
		input:  input,
	}
}

func (m chooserModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chooserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch keyMsg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.canceled = true
		return m, tea.Quit
	case tea.KeyUp:
		switch {
		case m.cursor == noChoice:
			m.cursor = len(m.labels) - 1
		case m.cursor > 0:
			m.cursor--
		}
		m.errMsg = ""
		return m, nil
	case tea.KeyDown:
		if m.cursor < len(m.labels)-1 {
			m.cursor++
		}
		m.errMsg = ""
		return m, nil
	case tea.KeyEnter:
		raw := strings.TrimSpace(m.input.Value())
		if raw == "" {
			if m.cursor == noChoice {
				m.errMsg = fmt.Sprintf("Wrong choice, enter a number between 0 and %d.", len(m.labels)-1)
				return m, nil
			}
			m.done = true
			return m, tea.Quit
		}
		i, ok := hls.ParseChoice(raw, len(m.labels))
		if !ok {
			m.errMsg = fmt.Sprintf("Wrong choice, enter a number between 0 and %d.", len(m.labels)-1)
			m.input.SetValue("")
			return m, nil
		}
		m.cursor = i
		m.done = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(keyMsg)
	return m, cmd
}

func (m chooserModel) View() string {
	if m.done || m.canceled {
		return ""
	}
	var b strings.Builder
	b.WriteString(chooserTitleStyle.Render("Available resolutions"))
	b.WriteString("\n")
	for i, label := range m.labels {
		row := fmt.Sprintf("[%d] %s", i, label)
		if i == m.cursor {
			row = chooserSelStyle.Render(row)
		}
		b.WriteString("  " + row + "\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.errMsg != "" {
		b.WriteString(chooserErrorStyle.Render(m.errMsg))
		b.WriteString("\n")
	}
	b.WriteString(chooserMutedStyle.Render("up/down to move, enter to confirm, esc to cancel"))
	b.WriteString("\n")
	return b.String()
}
