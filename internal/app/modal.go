package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"
	"projectdesk/internal/domain/services"
	"projectdesk/internal/service/projects"
)

// Form identifies the active create/update/connect form.
type Form int

const (
	FormNone Form = iota
	FormProject
	FormClickUp
	FormSlack
)

func (f Form) String() string {
	switch f {
	case FormProject:
		return "project"
	case FormClickUp:
		return "clickup"
	case FormSlack:
		return "slack"
	default:
		return "none"
	}
}

// Modal coordinates which form is open. At most one form is active; closing
// it, by cancel or successful submit, always reloads the project list.
type Modal struct {
	catalog      *projects.Catalog
	integrations services.IntegrationService
	notice       *Notice
	logger       *slog.Logger

	mu      sync.Mutex
	active  Form
	target  int64
	prefill *models.ProjectFields
}

// NewModal creates a closed modal.
func NewModal(catalog *projects.Catalog, integrations services.IntegrationService, notice *Notice, logger *slog.Logger) *Modal {
	return &Modal{
		catalog:      catalog,
		integrations: integrations,
		notice:       notice,
		logger:       logger,
	}
}

// Active returns the open form and its target project (0 in create mode).
func (m *Modal) Active() (Form, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active, m.target
}

// Prefill returns the loaded fields of the project being edited.
func (m *Modal) Prefill() (models.ProjectFields, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.prefill == nil {
		return models.ProjectFields{}, false
	}
	return *m.prefill, true
}

func (m *Modal) open(form Form, target int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != FormNone {
		return domain.NewValidationError(fmt.Sprintf("The %s form is already open", m.active))
	}
	m.active = form
	m.target = target
	m.prefill = nil

	m.logger.Debug("form opened", "form", form, "target", target)
	return nil
}

func requireTarget(id int64) error {
	if id <= 0 {
		return domain.NewValidationError("A project must be selected")
	}
	return nil
}

// OpenCreateProject opens the project form in create mode.
func (m *Modal) OpenCreateProject() error {
	return m.open(FormProject, 0)
}

// OpenEditProject opens the project form for id and loads the project to
// prefill it. A failed load is shown on the notice; the form stays open.
func (m *Modal) OpenEditProject(ctx context.Context, id int64) error {
	if err := requireTarget(id); err != nil {
		return err
	}
	if err := m.open(FormProject, id); err != nil {
		return err
	}

	project, err := m.catalog.Service().Get(ctx, id)
	if err != nil {
		m.notice.Set(err, "load project")
		return err
	}

	fields := project.Fields()
	m.mu.Lock()
	if m.active == FormProject && m.target == id {
		m.prefill = &fields
	}
	m.mu.Unlock()
	return nil
}

// OpenClickUp opens the ClickUp form for a project.
func (m *Modal) OpenClickUp(id int64) error {
	if err := requireTarget(id); err != nil {
		return err
	}
	return m.open(FormClickUp, id)
}

// OpenSlack opens the Slack form for a project.
func (m *Modal) OpenSlack(id int64) error {
	if err := requireTarget(id); err != nil {
		return err
	}
	return m.open(FormSlack, id)
}

// Cancel closes the form and reloads the list, so changes made elsewhere show up.
func (m *Modal) Cancel(ctx context.Context) ([]models.Project, error) {
	return m.close(ctx)
}

func (m *Modal) close(ctx context.Context) ([]models.Project, error) {
	m.mu.Lock()
	form := m.active
	m.active = FormNone
	m.target = 0
	m.prefill = nil
	m.mu.Unlock()

	m.logger.Debug("form closed", "form", form)

	list, err := m.catalog.Refresh(ctx)
	if err != nil {
		m.notice.SetMessage(MsgProjectsLoadFailed, err, "list projects")
		return nil, err
	}
	return list, nil
}

func (m *Modal) expect(form Form) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != form {
		return 0, domain.NewValidationError(fmt.Sprintf("The %s form is not open", form))
	}
	return m.target, nil
}

// SubmitProject creates (no target) or updates the project. On failure the
// form stays open and the notice shows the reason.
func (m *Modal) SubmitProject(ctx context.Context, fields models.ProjectFields) (*models.Project, error) {
	target, err := m.expect(FormProject)
	if err != nil {
		return nil, err
	}

	svc := m.catalog.Service()
	var project *models.Project
	if target == 0 {
		project, err = svc.Create(ctx, fields)
	} else {
		project, err = svc.Update(ctx, target, fields)
	}
	if err != nil {
		m.notice.Set(err, "save project")
		return nil, err
	}

	_, err = m.close(ctx)
	return project, err
}

// SubmitClickUp links the target project to a ClickUp list.
func (m *Modal) SubmitClickUp(ctx context.Context, apiToken, listID string) (map[string]any, error) {
	target, err := m.expect(FormClickUp)
	if err != nil {
		return nil, err
	}

	status, err := m.integrations.LinkClickUp(ctx, target, apiToken, listID)
	if err != nil {
		m.showIntegrationError(err, MsgClickUpFailed, "link clickup")
		return nil, err
	}

	_, err = m.close(ctx)
	return status, err
}

// SubmitSlack configures Slack for the target project and returns the
// authorization URL to open. The form closes once both steps succeed.
func (m *Modal) SubmitSlack(ctx context.Context, cfg models.SlackAppConfig) (string, error) {
	target, err := m.expect(FormSlack)
	if err != nil {
		return "", err
	}

	if err := m.integrations.ConfigureSlack(ctx, target, cfg); err != nil {
		m.showIntegrationError(err, MsgSlackFailed, "configure slack")
		return "", err
	}
	authURL, err := m.integrations.RequestOAuthURL(ctx, target)
	if err != nil {
		m.showIntegrationError(err, MsgSlackFailed, "slack authorization url")
		return "", err
	}

	_, err = m.close(ctx)
	return authURL, err
}

// Reset closes the form without reloading, used on sign-out.
func (m *Modal) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = FormNone
	m.target = 0
	m.prefill = nil
}

// showIntegrationError keeps local validation text; anything else gets the form's message.
func (m *Modal) showIntegrationError(err error, message, operation string) {
	if errors.Is(err, domain.ErrValidation) {
		m.notice.Set(err, operation)
		return
	}
	m.notice.SetMessage(message, err, operation)
}
