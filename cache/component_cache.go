package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"fmeca-service/models"
)

// ComponentLister is the slice of the store the cache is built from.
type ComponentLister interface {
	ListComponents(ctx context.Context) ([]*models.Component, error)
}

// ComponentCache indexes components by id and by name. One cache belongs to
// one session; there is no process-wide instance.
type ComponentCache struct {
	mu               sync.RWMutex
	componentsByID   map[int64]*models.Component
	componentsByName map[string]*models.Component
	allComponents    []*models.Component
}

func NewComponentCache() *ComponentCache {
	return &ComponentCache{
		componentsByID:   make(map[int64]*models.Component),
		componentsByName: make(map[string]*models.Component),
		allComponents:    make([]*models.Component, 0),
	}
}

// Load builds a cache from the store.
func Load(ctx context.Context, s ComponentLister) (*ComponentCache, error) {
	components, err := s.ListComponents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list components for cache initialization: %w", err)
	}
	c := NewComponentCache()
	c.Replace(components)
	return c, nil
}

// Replace swaps the whole index for the given components, keeping their order.
func (c *ComponentCache) Replace(components []*models.Component) {
	byID := make(map[int64]*models.Component, len(components))
	byName := make(map[string]*models.Component, len(components))
	all := make([]*models.Component, 0, len(components))

	for _, component := range components {
		if component == nil {
			continue
		}
		compCopy := *component
		byID[compCopy.ID] = &compCopy
		byName[compCopy.Name] = &compCopy
		all = append(all, &compCopy)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.componentsByID = byID
	c.componentsByName = byName
	c.allComponents = all
}

// GetByID retrieves a copy of a component by its ID.
func (c *ComponentCache) GetByID(id int64) (*models.Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	component, found := c.componentsByID[id]
	if !found {
		return nil, false
	}
	compCopy := *component
	return &compCopy, true
}

// GetByName retrieves a copy of a component by its exact name.
func (c *ComponentCache) GetByName(name string) (*models.Component, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	component, found := c.componentsByName[name]
	if !found {
		return nil, false
	}
	compCopy := *component
	return &compCopy, true
}

// GetAll retrieves copies of all components in load order.
func (c *ComponentCache) GetAll() []*models.Component {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyAll(c.allComponents, func(*models.Component) bool { return true })
}

// Search returns components whose name contains query, ignoring case.
// An empty query matches everything.
func (c *ComponentCache) Search(query string) []*models.Component {
	q := strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	return copyAll(c.allComponents, func(comp *models.Component) bool {
		return strings.Contains(strings.ToLower(comp.Name), q)
	})
}

// Len returns the number of cached components.
func (c *ComponentCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.allComponents)
}

func copyAll(in []*models.Component, keep func(*models.Component) bool) []*models.Component {
	out := make([]*models.Component, 0, len(in))
	for _, comp := range in {
		if !keep(comp) {
			continue
		}
		compCopy := *comp
		out = append(out, &compCopy)
	}
	return out
}
