package projects

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/services"
)

// Catalog is the read-through cache of the project list. Every refresh is a
// full reload; completions older than the last applied one are dropped.
type Catalog struct {
	svc    services.ProjectService
	logger *slog.Logger

	mu       sync.Mutex
	projects []models.Project
	issued   uint64
	applied  uint64
}

// NewCatalog creates an empty catalog over svc.
func NewCatalog(svc services.ProjectService, logger *slog.Logger) *Catalog {
	return &Catalog{svc: svc, logger: logger}
}

// Service returns the underlying project service.
func (c *Catalog) Service() services.ProjectService { return c.svc }

// Refresh reloads the list. On failure the cached list is left untouched.
// A completion overtaken by a newer one returns the newer list.
func (c *Catalog) Refresh(ctx context.Context) ([]models.Project, error) {
	c.mu.Lock()
	c.issued++
	seq := c.issued
	c.mu.Unlock()

	list, err := c.svc.List(ctx)
	if err != nil {
		c.logger.Warn("project list failed", "seq", seq, "error", err)
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.applied {
		c.logger.Debug("discarding stale project list", "seq", seq, "applied", c.applied)
		return clone(c.projects), nil
	}
	c.applied = seq
	c.projects = list
	return clone(list), nil
}

// Projects returns a copy of the cached list.
func (c *Catalog) Projects() []models.Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	return clone(c.projects)
}

// Lookup finds a cached project by id.
func (c *Catalog) Lookup(id int64) (models.Project, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.projects {
		if p.ID == id {
			return p, true
		}
	}
	return models.Project{}, false
}

// Create creates a project and reloads the list. A reload failure is
// returned alongside the created project.
func (c *Catalog) Create(ctx context.Context, fields models.ProjectFields) (*models.Project, error) {
	project, err := c.svc.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	return project, c.refreshAfter(ctx, "create")
}

// Update replaces a project's fields and reloads the list.
func (c *Catalog) Update(ctx context.Context, id int64, fields models.ProjectFields) (*models.Project, error) {
	project, err := c.svc.Update(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	return project, c.refreshAfter(ctx, "update")
}

// Delete removes a project and reloads the list.
func (c *Catalog) Delete(ctx context.Context, id int64) error {
	if err := c.svc.Delete(ctx, id); err != nil {
		return err
	}
	return c.refreshAfter(ctx, "delete")
}

// Reset empties the cache and invalidates every refresh still in flight.
func (c *Catalog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	c.applied = c.issued
	c.projects = nil
}

func (c *Catalog) refreshAfter(ctx context.Context, op string) error {
	if _, err := c.Refresh(ctx); err != nil {
		return fmt.Errorf("reload projects after %s: %w", op, err)
	}
	return nil
}

func clone(in []models.Project) []models.Project {
	out := make([]models.Project, len(in))
	copy(out, in)
	return out
}
