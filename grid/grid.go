// Package grid implements the editable table contract shared by every
// front end: nine columns, per-column edit rules, revert on rejection, and
// row recoloring against the session's risk threshold.
package grid

import (
	"errors"
	"fmt"

	"fmeca-service/models"
	"fmeca-service/session"
)

// ErrRowNotFound is returned by Find when the selected component has no
// row with the requested cf_id.
var ErrRowNotFound = errors.New("failure mode not found for component")

// DisplayRow is one rendered table row.
type DisplayRow struct {
	Key   int64             `json:"cf_id"`
	Cells []string          `json:"cells"`
	Level session.RiskLevel `json:"risk"`
	Row   models.Row        `json:"row"`
}

// Change is sent to subscribers after a user edit lands.
type Change struct {
	ComponentID int64
	Key         int64
	Column      models.Column
	Row         models.Row
}

// EditResult tells the caller what to show after an edit attempt.
type EditResult struct {
	Applied bool
	// Warning is set when the edit was rejected; the cell already shows
	// the reverted value.
	Warning string
	Row     DisplayRow
}

// Grid is one table view over a session.
type Grid struct {
	sess     *session.Session
	readOnly bool

	componentID int64
	component   string
	offset      int
	page        session.Page
	rows        []DisplayRow

	suspended   int
	subscribers []func(Change)
	linked      []*Grid
}

// New returns an editable grid.
func New(sess *session.Session) *Grid {
	return &Grid{sess: sess}
}

// NewReadOnly returns a grid that refuses every edit, used for the
// statistics view.
func NewReadOnly(sess *session.Session) *Grid {
	return &Grid{sess: sess, readOnly: true}
}

// Headers returns the column labels; the first carries the component name.
func (g *Grid) Headers() []string {
	out := make([]string, len(models.Columns))
	for i, spec := range models.Columns {
		out[i] = spec.Label
	}
	if g.component != "" {
		out[0] = fmt.Sprintf("%s Failure Modes", g.component)
	}
	return out
}

// Suspend stops change notifications until the returned func is called.
// Use as `defer g.Suspend()()` around programmatic repopulation.
func (g *Grid) Suspend() func() {
	g.suspended++
	done := false
	return func() {
		if done {
			return
		}
		done = true
		g.suspended--
	}
}

// Suspended reports whether the grid is inside a bulk update.
func (g *Grid) Suspended() bool { return g.suspended > 0 }

// Subscribe registers a callback for user edits.
func (g *Grid) Subscribe(fn func(Change)) {
	g.subscribers = append(g.subscribers, fn)
}

// Link makes other refresh whenever an edit lands here, keeping views in sync.
func (g *Grid) Link(other *Grid) {
	g.linked = append(g.linked, other)
}

// Select chooses the component to display and resets paging.
func (g *Grid) Select(componentID int64) error {
	comp, err := g.sess.Component(componentID)
	if err != nil {
		return err
	}
	g.componentID = comp.ID
	g.component = comp.Name
	g.offset = 0
	return g.Refresh()
}

// SelectByName chooses the component by its selector label.
func (g *Grid) SelectByName(name string) error {
	comp, err := g.sess.ComponentByName(name)
	if err != nil {
		return err
	}
	return g.Select(comp.ID)
}

// ComponentID returns the selected component, or 0.
func (g *Grid) ComponentID() int64 { return g.componentID }

// Rows returns the rendered rows of the current page.
func (g *Grid) Rows() []DisplayRow {
	out := make([]DisplayRow, len(g.rows))
	copy(out, g.rows)
	return out
}

// Page returns the paging state of the current page.
func (g *Grid) Page() session.Page { return g.page }

// Refresh repopulates the grid from the session and recolors every row.
func (g *Grid) Refresh() error {
	if g.componentID == 0 {
		return session.ErrSelectionMissing
	}
	defer g.Suspend()()

	page, err := g.sess.Page(g.componentID, g.offset)
	if err != nil {
		g.rows = nil
		return err
	}
	g.page = page
	g.offset = page.Offset
	g.rows = make([]DisplayRow, len(page.Rows))
	for i, r := range page.Rows {
		g.rows[i] = g.render(r)
	}
	return nil
}

// Next moves to the following page, staying on the last one.
func (g *Grid) Next() error {
	if g.componentID == 0 {
		return session.ErrSelectionMissing
	}
	g.offset += g.sess.PageSize()
	return g.Refresh()
}

// Prev moves to the previous page, stopping at the first.
func (g *Grid) Prev() error {
	if g.componentID == 0 {
		return session.ErrSelectionMissing
	}
	g.offset -= g.sess.PageSize()
	if g.offset < 0 {
		g.offset = 0
	}
	return g.Refresh()
}

// Seek jumps to the page starting at offset. The session clamps offsets
// past the end to the last page.
func (g *Grid) Seek(offset int) error {
	if g.componentID == 0 {
		return session.ErrSelectionMissing
	}
	if offset < 0 {
		offset = 0
	}
	g.offset = offset
	return g.Refresh()
}

// Find pages forward from the first page until the row keyed by cf_id is
// shown and returns its index on that page.
func (g *Grid) Find(key int64) (int, error) {
	if g.componentID == 0 {
		return -1, session.ErrSelectionMissing
	}
	g.offset = 0
	for {
		if err := g.Refresh(); err != nil {
			return -1, err
		}
		for i, r := range g.rows {
			if r.Key == key {
				return i, nil
			}
		}
		if !g.page.HasNext() {
			return -1, ErrRowNotFound
		}
		g.offset += g.sess.PageSize()
	}
}

// SetThreshold updates the session threshold and recolors. Invalid input
// keeps the previous threshold and colors.
func (g *Grid) SetThreshold(raw string) error {
	if _, err := g.sess.SetThreshold(raw); err != nil {
		return err
	}
	if g.componentID == 0 {
		return nil
	}
	return g.Refresh()
}

// Edit applies raw to the cell at (row, column) of the current page.
// Edits arriving while the grid is suspended are programmatic and ignored.
// A rejected edit reverts the cell and returns a warning instead of an error;
// errors are reserved for selection problems.
func (g *Grid) Edit(row int, column models.Column, raw string) (EditResult, error) {
	if g.Suspended() {
		return EditResult{}, nil
	}
	if g.componentID == 0 {
		return EditResult{}, session.ErrSelectionMissing
	}
	if row < 0 || row >= len(g.rows) {
		return EditResult{Warning: session.ReasonNoRow}, nil
	}
	current := g.rows[row]
	if g.readOnly {
		return EditResult{Warning: session.ReasonReadOnly, Row: current}, nil
	}

	updated, err := g.sess.ApplyEdit(current.Key, column, raw)
	if err != nil {
		var editErr *session.EditError
		if errors.As(err, &editErr) {
			func() {
				defer g.Suspend()()
				if editErr.Prior != "" && int(column) < len(current.Cells) {
					current.Cells[column] = editErr.Prior
				}
			}()
			return EditResult{Warning: warningFor(editErr), Row: current}, nil
		}
		return EditResult{}, err
	}

	rendered := g.render(updated)
	g.rows[row] = rendered
	g.notify(Change{ComponentID: g.componentID, Key: updated.CFID, Column: column, Row: updated})
	return EditResult{Applied: true, Row: rendered}, nil
}

func (g *Grid) notify(c Change) {
	if g.Suspended() {
		return
	}
	for _, fn := range g.subscribers {
		fn(c)
	}
	for _, other := range g.linked {
		if other.componentID == 0 {
			continue
		}
		_ = other.Refresh()
	}
}

func (g *Grid) render(r models.Row) DisplayRow {
	cells := make([]string, len(models.Columns))
	for i, spec := range models.Columns {
		cells[i] = r.Cell(spec.Column)
	}
	return DisplayRow{Key: r.CFID, Cells: cells, Level: g.sess.Classify(r.RPN), Row: r}
}

func warningFor(e *session.EditError) string {
	if e.Reason == "" {
		return e.Error()
	}
	return e.Reason
}
