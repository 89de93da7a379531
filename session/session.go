// Package session is the data reconciliation layer. A Session loads the
// default and working link sets from the store, serves joined rows to every
// view, applies validated edits to the working set, and flushes it back.
//
// All operations are serialized: each one runs to completion before the
// next starts, whichever front end (terminal grid or HTTP) issued it.
package session

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"fmeca-service/cache"
	"fmeca-service/logger"
	"fmeca-service/metrics"
	"fmeca-service/models"
	"fmeca-service/store"
)

const (
	DefaultPageSize      = 10
	DefaultRiskThreshold = 1
)

// Options tune a session.
type Options struct {
	PageSize      int
	RiskThreshold float64
}

// Session owns the in-memory working set and everything derived from it.
type Session struct {
	mu sync.Mutex

	id       string
	store    store.FMEAStoreInterface
	log      *logger.Logger
	pageSize int

	components   *cache.ComponentCache
	failureModes map[int64]string

	defaults   []models.ComponentFailure
	working    []models.ComponentFailure
	workingIdx map[int64]int

	threshold float64
	loaded    bool
	dirty     bool
}

// New creates an unloaded session.
func New(s store.FMEAStoreInterface, log *logger.Logger, opts Options) *Session {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	threshold := opts.RiskThreshold
	if _, err := checkThreshold(threshold); err != nil {
		threshold = DefaultRiskThreshold
	}
	id := uuid.NewString()
	if log == nil {
		log = logger.Nop()
	}
	return &Session{
		id:           id,
		store:        s,
		log:          log.With("session", id),
		pageSize:     opts.PageSize,
		components:   cache.NewComponentCache(),
		failureModes: map[int64]string{},
		workingIdx:   map[int64]int{},
		threshold:    threshold,
	}
}

// ID identifies the session in logs.
func (s *Session) ID() string { return s.id }

// PageSize is the fixed number of rows RowsFor returns at most.
func (s *Session) PageSize() int { return s.pageSize }

// Load reads components, failure modes and both link sets. When the working
// table is empty it is first cloned from the default set. Any store error
// wraps ErrStoreUnavailable.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	components, err := cache.Load(ctx, s.store)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	modes, err := s.store.ListFailureModes(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defaults, err := s.store.ListDefaultFailures(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	cloned, err := s.store.CloneDefaultsToWorking(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	working, err := s.store.ListWorkingFailures(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	descriptions := make(map[int64]string, len(modes))
	for _, fm := range modes {
		descriptions[fm.ID] = fm.Description
	}
	for i := range defaults {
		defaults[i].Recompute()
	}
	for i := range working {
		working[i].Recompute()
		if rpn := working[i].RPN; rpn < 1 || rpn > 1000 {
			s.log.Warn("working row has RPN outside [1,1000]", "cf_id", working[i].CFID, "rpn", rpn)
		}
	}

	s.components = components
	s.failureModes = descriptions
	s.defaults = defaults
	s.setWorking(working)
	s.loaded = true
	s.dirty = false
	s.updateGauge()

	s.log.Info("session loaded",
		"components", components.Len(),
		"failure_modes", len(modes),
		"default_rows", len(defaults),
		"working_rows", len(working),
		"cloned_rows", cloned,
	)
	return nil
}

// Reset replaces the whole working set with a copy of the default set.
// Nothing is written until Persist.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return ErrNotLoaded
	}
	s.setWorking(s.defaults)
	s.dirty = true
	s.updateGauge()
	metrics.ResetsTotal.Inc()
	s.log.Info("working set reset to defaults", "rows", len(s.working))
	return nil
}

// Persist writes every working row back to the store. On failure the error
// wraps ErrPersistence and the in-memory working set is untouched.
func (s *Session) Persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx)
}

func (s *Session) persistLocked(ctx context.Context) error {
	if !s.loaded {
		return ErrNotLoaded
	}
	snapshot := make([]models.ComponentFailure, len(s.working))
	copy(snapshot, s.working)

	start := time.Now()
	err := s.store.SaveWorkingFailures(ctx, snapshot)
	metrics.PersistDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistTotal.WithLabelValues("error").Inc()
		s.log.Error("saving working set failed", "rows", len(snapshot), "error", err)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	metrics.PersistTotal.WithLabelValues("ok").Inc()
	s.dirty = false
	s.log.Info("working set saved", "rows", len(snapshot))
	return nil
}

// Dirty reports whether the working set has changes not yet persisted.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Components lists all components in load order.
func (s *Session) Components() []*models.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.components.GetAll()
}

// SearchComponents filters components by a case-insensitive name substring.
func (s *Session) SearchComponents(query string) []*models.Component {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.components.Search(query)
}

// ComponentByName resolves the name shown in a component selector.
func (s *Session) ComponentByName(name string) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components.GetByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSelectionMissing, name)
	}
	return c, nil
}

// Component resolves a component by id.
func (s *Session) Component(id int64) (*models.Component, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.components.GetByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: component %d", ErrSelectionMissing, id)
	}
	return c, nil
}

// Page is one page of a component's joined rows.
type Page struct {
	Component *models.Component `json:"component"`
	Rows      []models.Row      `json:"rows"`
	Offset    int               `json:"offset"`
	Total     int               `json:"total"`
	PageSize  int               `json:"page_size"`
}

// HasPrev reports whether an earlier page exists.
func (p Page) HasPrev() bool { return p.Offset > 0 }

// HasNext reports whether a later page exists.
func (p Page) HasNext() bool { return p.Offset+p.PageSize < p.Total }

// RowsFor returns the first page of working rows for a component, joined
// with failure-mode descriptions and ordered by cf_id. The editable grid and
// the statistics view both read through here so they always agree.
func (s *Session) RowsFor(componentID int64) ([]models.Row, error) {
	p, err := s.Page(componentID, 0)
	if err != nil {
		return nil, err
	}
	return p.Rows, nil
}

// Page returns the working rows starting at offset. The offset is clamped
// to the start of the last page.
func (s *Session) Page(componentID int64, offset int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(componentID, offset, s.working)
}

// DefaultRowsFor returns the first page of the default set for a component,
// ordered by cf_id.
func (s *Session) DefaultRowsFor(componentID int64) ([]models.Row, error) {
	p, err := s.DefaultPage(componentID, 0)
	if err != nil {
		return nil, err
	}
	return p.Rows, nil
}

// DefaultPage pages through the default set the same way Page does for the
// working set.
func (s *Session) DefaultPage(componentID int64, offset int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(componentID, offset, s.defaults)
}

func (s *Session) pageLocked(componentID int64, offset int, set []models.ComponentFailure) (Page, error) {
	if !s.loaded {
		return Page{}, ErrNotLoaded
	}
	comp, ok := s.components.GetByID(componentID)
	if !ok {
		return Page{}, fmt.Errorf("%w: component %d", ErrSelectionMissing, componentID)
	}

	all := s.joinedLocked(componentID, set)
	total := len(all)
	offset = clampOffset(offset, total, s.pageSize)
	end := offset + s.pageSize
	if end > total {
		end = total
	}
	rows := make([]models.Row, end-offset)
	copy(rows, all[offset:end])

	return Page{Component: comp, Rows: rows, Offset: offset, Total: total, PageSize: s.pageSize}, nil
}

// joinedLocked inner-joins the links of one component with failure-mode
// descriptions, ordered by cf_id.
func (s *Session) joinedLocked(componentID int64, set []models.ComponentFailure) []models.Row {
	var rows []models.Row
	for _, cf := range set {
		if cf.CompID != componentID {
			continue
		}
		desc, ok := s.failureModes[cf.FailID]
		if !ok {
			continue
		}
		rows = append(rows, models.Row{ComponentFailure: cf, Description: desc})
	}
	slices.SortFunc(rows, func(a, b models.Row) int { return cmp.Compare(a.CFID, b.CFID) })
	return rows
}

func clampOffset(offset, total, pageSize int) int {
	if offset < 0 || total == 0 {
		return 0
	}
	if offset >= total {
		lastPage := (total - 1) / pageSize
		return lastPage * pageSize
	}
	return offset
}

func (s *Session) setWorking(rows []models.ComponentFailure) {
	s.working = make([]models.ComponentFailure, len(rows))
	copy(s.working, rows)
	s.workingIdx = make(map[int64]int, len(rows))
	for i := range s.working {
		s.working[i].Recompute()
		s.workingIdx[s.working[i].CFID] = i
	}
}

func (s *Session) updateGauge() {
	above := 0
	for _, cf := range s.working {
		if classify(cf.RPN, s.threshold) == AboveThreshold {
			above++
		}
	}
	metrics.AboveThresholdRows.Set(float64(above))
}
