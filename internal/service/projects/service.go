// Package projects is the client for the backend's project collection and
// the in-memory catalog built on top of it.
package projects

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"projectdesk/internal/apiclient"
	"projectdesk/internal/config"
	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const projectsPath = "/api/projects"

// projectService implements the ProjectService interface
type projectService struct {
	api    *apiclient.Client
	logger *slog.Logger
}

// NewService creates a new project service
func NewService(api *apiclient.Client, logger *slog.Logger) services.ProjectService {
	return &projectService{
		api:    api,
		logger: logger,
	}
}

// List retrieves every project visible to the caller, in server order
func (s *projectService) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := s.api.Do(ctx, apiclient.Get(projectsPath), &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []models.Project{}
	}
	return projects, nil
}

// Get retrieves a project by ID
func (s *projectService) Get(ctx context.Context, id int64) (*models.Project, error) {
	var project models.Project
	if err := s.api.Do(ctx, apiclient.Get(projectPath(id)), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// Create creates a new project
func (s *projectService) Create(ctx context.Context, fields models.ProjectFields) (*models.Project, error) {
	fields = normalize(fields)
	if err := validateFields(&fields); err != nil {
		return nil, err
	}

	var project models.Project
	if err := s.api.Do(ctx, apiclient.Post(projectsPath).JSON(fields), &project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
	)

	return &project, nil
}

// Update replaces every field of the project; the backend applies last write wins
func (s *projectService) Update(ctx context.Context, id int64, fields models.ProjectFields) (*models.Project, error) {
	fields = normalize(fields)
	if err := validateFields(&fields); err != nil {
		return nil, err
	}

	var project models.Project
	if err := s.api.Do(ctx, apiclient.Put(projectPath(id)).JSON(fields), &project); err != nil {
		return nil, err
	}

	s.logger.Info("project updated",
		"id", id,
		"name", project.Name,
	)

	return &project, nil
}

// Delete removes a project
func (s *projectService) Delete(ctx context.Context, id int64) error {
	if err := s.api.Do(ctx, apiclient.Delete(projectPath(id)), nil); err != nil {
		return err
	}

	s.logger.Info("project deleted", "id", id)
	return nil
}

func projectPath(id int64) string {
	return projectsPath + "/" + strconv.FormatInt(id, 10)
}

func normalize(f models.ProjectFields) models.ProjectFields {
	f.Name = strings.TrimSpace(f.Name)
	f.Department = strings.TrimSpace(f.Department)
	f.Client = strings.TrimSpace(f.Client)
	return f
}

// validateFields checks the required fields before any request is issued
func validateFields(f *models.ProjectFields) error {
	err := validation.ValidateStruct(f,
		validation.Field(&f.Name,
			validation.Required.Error("Project name is required"),
			validation.RuneLength(1, config.MaxProjectNameLength).
				Error(fmt.Sprintf("Project name must be at most %d characters", config.MaxProjectNameLength)),
		),
		validation.Field(&f.Department, validation.Required.Error("Department is required")),
		validation.Field(&f.Deadline, validation.By(requiredDate)),
	)
	if err != nil {
		return domain.NewValidationError(err.Error())
	}
	return nil
}

func requiredDate(value interface{}) error {
	d, _ := value.(models.Date)
	if !d.Set() {
		return validation.NewError("validation_deadline_required", "Deadline is required")
	}
	return nil
}
