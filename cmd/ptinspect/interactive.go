package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/passthrough/manifest"
)

type modelState int

const (
	stateSelect modelState = iota
	stateInput
	stateDone
)

type interactiveModel struct {
	err       error
	session   *session
	manifest  *manifest.Manifest
	st        styles
	caps      []string
	results   []queryResult
	trace     []string
	input     textinput.Model
	selected  int
	state     modelState
	aggregate bool
}

type openedMsg struct {
	err     error
	session *session
}

type queriedMsg struct {
	result queryResult
}

func newInteractiveModel(m *manifest.Manifest, aggregate bool, st styles) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "name or {id}"
	ti.Prompt = "capability: "
	ti.Width = 48
	return &interactiveModel{
		manifest:  m,
		aggregate: aggregate,
		st:        st,
		input:     ti,
		state:     stateSelect,
	}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.open
}

func (m *interactiveModel) open() tea.Msg {
	s, err := openSession(m.manifest, m.aggregate)
	return openedMsg{session: s, err: err}
}

func (m *interactiveModel) query(ref string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		return queriedMsg{result: s.query(ref)}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.finish()
			return m, tea.Quit

		case "q":
			if m.state != stateInput {
				m.finish()
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelect && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelect && m.selected < len(m.caps)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateSelect {
				m.state = stateInput
				m.input.SetValue("")
				m.input.Focus()
				return m, textinput.Blink
			}

		case "enter":
			switch m.state {
			case stateSelect:
				if m.session != nil && len(m.caps) > 0 {
					return m, m.query(m.caps[m.selected])
				}
			case stateInput:
				ref := strings.TrimSpace(m.input.Value())
				m.input.Blur()
				m.state = stateSelect
				if ref != "" && m.session != nil {
					return m, m.query(ref)
				}
			}

		case "esc":
			if m.state == stateInput {
				m.input.Blur()
				m.state = stateSelect
			}
		}

	case openedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session = msg.session
		m.caps = msg.session.candidates()

	case queriedMsg:
		m.results = append(m.results, msg.result)
		if len(m.results) > 8 {
			m.results = m.results[len(m.results)-8:]
		}
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// finish releases the instance so the teardown trace can be shown on exit.
func (m *interactiveModel) finish() {
	if m.session != nil && m.state != stateDone {
		m.trace = m.session.close()
	}
	m.state = stateDone
}

func (m *interactiveModel) View() string {
	st := m.st
	if m.err != nil {
		return st.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if m.session == nil {
		return "Creating instance..."
	}

	var b strings.Builder
	b.WriteString(st.title.Render("Passthrough Inspector"))
	b.WriteString(" ")
	b.WriteString(st.name.Render(m.manifest.Name))
	if m.aggregate {
		b.WriteString(st.dim.Render(" (aggregated)"))
	}
	b.WriteString("\n\n")

	if m.state == stateDone {
		b.WriteString("Teardown:\n")
		for _, line := range m.trace {
			b.WriteString("  " + st.dim.Render(line) + "\n")
		}
		return b.String()
	}

	if p := m.session.pair; p != nil {
		b.WriteString(st.dim.Render(fmt.Sprintf("state %s  refs %d  mode %s", p.State(), p.RefCount(), p.Mode())))
		b.WriteString("\n\n")
	}

	for i, c := range m.caps {
		if i == m.selected && m.state == stateSelect {
			b.WriteString(st.sel.Render("> " + c))
		} else {
			b.WriteString("  " + st.name.Render(c))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.state == stateInput {
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
	}

	for _, r := range m.results {
		b.WriteString(formatResult(r, st))
		b.WriteString("\n")
	}
	if len(m.results) > 0 {
		b.WriteString("\n")
	}

	if m.state == stateInput {
		b.WriteString(st.help.Render("enter query • esc back"))
	} else {
		b.WriteString(st.help.Render("↑/↓ select • enter query • / type a capability • q quit"))
	}
	return b.String()
}

func runInteractive(m *manifest.Manifest, aggregate bool, st styles) error {
	model := newInteractiveModel(m, aggregate, st)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	for _, line := range model.trace {
		fmt.Println(line)
	}
	return nil
}
