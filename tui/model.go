// Package tui is the terminal front end: a component picker and the
// editable failure-mode grid.
package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"fmeca-service/grid"
	"fmeca-service/logger"
	"fmeca-service/models"
	"fmeca-service/session"
)

type mode int

const (
	modeComponents mode = iota
	modeGrid
	modeEditCell
	modeThreshold
	modeSearch
	modeDetectability
	modeConfirmExit
)

// Model is the Bubbletea model for the terminal grid.
type Model struct {
	ctx  context.Context
	sess *session.Session
	log  *logger.Logger

	main  *grid.Grid
	stats *grid.Grid
	// showStats swaps the editable grid for the read-only statistics view
	showStats bool

	components []*models.Component
	compIndex  int
	filter     string

	row, col int
	mode     mode
	prev     mode
	input    textinput.Model
	answers  []bool

	status  string
	warning string

	width, height int
	quitting      bool
}

// New creates the model over a loaded session.
func New(ctx context.Context, sess *session.Session, log *logger.Logger) Model {
	if log == nil {
		log = logger.Nop()
	}
	ti := textinput.New()
	ti.CharLimit = 64
	ti.Width = 30

	main := grid.New(sess)
	stats := grid.NewReadOnly(sess)
	main.Link(stats)

	return Model{
		ctx:        ctx,
		sess:       sess,
		log:        log.With("ui", "tui", "session_id", sess.ID()),
		main:       main,
		stats:      stats,
		components: sess.Components(),
		col:        int(models.ColFrequency),
		input:      ti,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Quitting reports whether the user has confirmed exit.
func (m Model) Quitting() bool { return m.quitting }

func (m Model) active() *grid.Grid {
	if m.showStats {
		return m.stats
	}
	return m.main
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && m.mode != modeConfirmExit {
			m.enter(modeConfirmExit)
			return m, nil
		}
		switch m.mode {
		case modeEditCell, modeThreshold:
			return m.handleInputKeypress(msg)
		case modeSearch:
			return m.handleSearchKeypress(msg)
		case modeDetectability:
			return m.handleDetectabilityKeypress(msg)
		case modeConfirmExit:
			return m.handleExitKeypress(msg)
		case modeGrid:
			return m.handleGridKeypress(msg)
		default:
			return m.handleComponentKeypress(msg)
		}
	}
	return m, nil
}

func (m *Model) enter(next mode) {
	m.prev = m.mode
	m.mode = next
}

func (m *Model) back() {
	m.mode = m.prev
	m.prev = modeComponents
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) clearMessages() {
	m.status = ""
	m.warning = ""
}

func (m Model) handleComponentKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.clearMessages()
	switch msg.String() {
	case "q":
		m.enter(modeConfirmExit)
	case "up", "k":
		if m.compIndex > 0 {
			m.compIndex--
		}
	case "down", "j":
		if m.compIndex < len(m.components)-1 {
			m.compIndex++
		}
	case "/":
		m.enter(modeSearch)
		m.input.Placeholder = "component name"
		m.input.SetValue(m.filter)
		return m, m.input.Focus()
	case "t":
		return m.startThreshold()
	case "d":
		m.startDetectability()
	case "enter":
		if len(m.components) == 0 {
			m.warning = "No component matches the search."
			return m, nil
		}
		comp := m.components[m.compIndex]
		if err := m.main.Select(comp.ID); err != nil {
			m.warning = err.Error()
			return m, nil
		}
		if err := m.stats.Select(comp.ID); err != nil {
			m.warning = err.Error()
			return m, nil
		}
		m.row = 0
		m.mode = modeGrid
		m.log.Debug("component selected", "component", comp.Name)
	}
	return m, nil
}

func (m Model) handleGridKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.clearMessages()
	g := m.active()
	switch msg.String() {
	case "q":
		m.enter(modeConfirmExit)
	case "esc":
		m.mode = modeComponents
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(g.Rows())-1 {
			m.row++
		}
	case "left", "h":
		if m.col > 0 {
			m.col--
		}
	case "right", "l":
		if m.col < len(models.Columns)-1 {
			m.col++
		}
	case "n", "pgdown":
		m.page(g.Next)
	case "p", "pgup":
		m.page(g.Prev)
	case "s":
		m.showStats = !m.showStats
		m.row = 0
	case "t":
		return m.startThreshold()
	case "d":
		m.startDetectability()
	case "r":
		if err := m.sess.Reset(); err != nil {
			m.warning = err.Error()
			return m, nil
		}
		m.refresh()
		m.status = "Working set reset to defaults. Save to keep it."
	case "w":
		if err := m.sess.Persist(m.ctx); err != nil {
			m.warning = err.Error()
			return m, nil
		}
		m.status = "Saved."
	case "enter", "e":
		spec := models.Column(m.col).Spec()
		if m.showStats || !spec.Editable {
			m.warning = session.ReasonReadOnly
			return m, nil
		}
		rows := g.Rows()
		if m.row >= len(rows) {
			m.warning = session.ReasonNoRow
			return m, nil
		}
		m.enter(modeEditCell)
		m.input.Placeholder = rows[m.row].Cells[m.col]
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) page(move func() error) {
	if err := move(); err != nil {
		m.warning = err.Error()
		return
	}
	// keep the linked view on the same page
	other := m.stats
	if m.showStats {
		other = m.main
	}
	if err := other.Seek(m.active().Page().Offset); err != nil {
		m.warning = err.Error()
	}
	m.row = 0
}

func (m *Model) refresh() {
	for _, g := range []*grid.Grid{m.main, m.stats} {
		if g.ComponentID() == 0 {
			continue
		}
		if err := g.Refresh(); err != nil {
			m.warning = err.Error()
		}
	}
	if n := len(m.active().Rows()); m.row >= n && n > 0 {
		m.row = n - 1
	}
}

func (m Model) startThreshold() (tea.Model, tea.Cmd) {
	m.enter(modeThreshold)
	m.input.Placeholder = fmt.Sprintf("%g", m.sess.Threshold())
	m.input.SetValue("")
	return m, m.input.Focus()
}

func (m *Model) startDetectability() {
	m.enter(modeDetectability)
	m.answers = m.answers[:0]
}

func (m Model) handleInputKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.back()
		return m, nil
	case "enter":
		value := m.input.Value()
		current := m.mode
		m.back()
		m.clearMessages()
		if current == modeThreshold {
			m.applyThreshold(value)
		} else {
			m.applyEdit(value)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) applyEdit(value string) {
	res, err := m.main.Edit(m.row, models.Column(m.col), value)
	if err != nil {
		m.warning = err.Error()
		return
	}
	if !res.Applied {
		m.warning = res.Warning
		return
	}
	m.status = fmt.Sprintf("%s set to %s; RPN %d.", models.Column(m.col).Spec().Label, value, res.Row.Row.RPN)
}

func (m *Model) applyThreshold(value string) {
	var err error
	if m.main.ComponentID() != 0 {
		err = m.main.SetThreshold(value)
	} else {
		_, err = m.sess.SetThreshold(value)
	}
	switch {
	case errors.Is(err, session.ErrThresholdRequired):
		m.warning = "Enter a risk threshold before the grid can be colored."
	case err != nil:
		m.warning = fmt.Sprintf("Risk threshold must be a number from %d to %d.", session.MinRiskThreshold, session.MaxRiskThreshold)
	default:
		m.refresh()
		m.status = fmt.Sprintf("Risk threshold set to %g.", m.sess.Threshold())
	}
}

func (m Model) handleSearchKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filter = ""
		m.components = m.sess.Components()
		m.compIndex = 0
		m.back()
		return m, nil
	case "enter":
		m.back()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.filter = m.input.Value()
	m.components = m.sess.SearchComponents(m.filter)
	m.compIndex = 0
	return m, cmd
}

func (m Model) handleDetectabilityKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = m.prev
		return m, nil
	case "y":
		m.answers = append(m.answers, true)
	case "n":
		m.answers = append(m.answers, false)
	default:
		return m, nil
	}
	if len(m.answers) < len(session.DetectabilityQuestions) {
		return m, nil
	}
	rec, err := session.RecommendDetectability(m.answers)
	m.mode = m.prev
	if err != nil {
		m.warning = err.Error()
		return m, nil
	}
	m.status = rec
	return m, nil
}

func (m Model) handleExitKeypress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var decision session.ExitDecision
	switch msg.String() {
	case "y", "s":
		decision = session.ExitSave
	case "n", "d":
		decision = session.ExitDiscard
	case "c", "esc":
		decision = session.ExitCancel
	default:
		return m, nil
	}
	closing, err := m.sess.Exit(m.ctx, decision)
	m.mode = m.prev
	if err != nil {
		m.warning = err.Error()
		return m, nil
	}
	if !closing {
		return m, nil
	}
	m.quitting = true
	return m, tea.Quit
}
