package services

import (
	"context"

	"projectdesk/internal/domain/models"
)

// ProjectService defines the CRUD operations over the project collection
type ProjectService interface {
	// List retrieves every project visible to the caller
	List(ctx context.Context) ([]models.Project, error)

	// Get retrieves a project by ID
	Get(ctx context.Context, id int64) (*models.Project, error)

	// Create creates a new project
	Create(ctx context.Context, fields models.ProjectFields) (*models.Project, error)

	// Update replaces a project's fields
	Update(ctx context.Context, id int64, fields models.ProjectFields) (*models.Project, error)

	// Delete removes a project
	Delete(ctx context.Context, id int64) error
}
