package commands

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"projectdesk/internal/domain"
	"projectdesk/internal/domain/models"

	"github.com/spf13/cobra"
)

func parseProjectID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(fmt.Sprintf("Invalid project id %q", arg))
	}
	return id, nil
}

func printProjects(w io.Writer, list []models.Project) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No projects found")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDEPARTMENT\tCLIENT\tDEADLINE\tUPDATED")
	for _, p := range list {
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Department, p.Client, p.Deadline, updated)
	}
	_ = tw.Flush()
}

func printProject(w io.Writer, p *models.Project) {
	fmt.Fprintf(w, "ID:          %d\n", p.ID)
	fmt.Fprintf(w, "Name:        %s\n", p.Name)
	fmt.Fprintf(w, "Department:  %s\n", p.Department)
	fmt.Fprintf(w, "Client:      %s\n", p.Client)
	fmt.Fprintf(w, "Deadline:    %s\n", p.Deadline)
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:     %s\n", p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
}

// projectFlags are the editable fields; only flags that were set are applied.
type projectFlags struct {
	name, department, client, deadline, description string
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "Project name")
	cmd.Flags().StringVar(&f.department, "department", "", "Department")
	cmd.Flags().StringVar(&f.client, "client", "", "Client (optional)")
	cmd.Flags().StringVar(&f.deadline, "deadline", "", "Deadline, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.description, "description", "", "Description (optional)")
}

func (f *projectFlags) apply(cmd *cobra.Command, fields *models.ProjectFields) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		fields.Name = f.name
	}
	if changed("department") {
		fields.Department = f.department
	}
	if changed("client") {
		fields.Client = f.client
	}
	if changed("description") {
		fields.Description = f.description
	}
	if changed("deadline") {
		d, err := models.ParseDate(f.deadline)
		if err != nil {
			return domain.NewValidationError(err.Error())
		}
		fields.Deadline = d
	}
	return nil
}

// NewProjectsCommand creates the projects command group
func NewProjectsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List, create, update and delete projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := rt.ws.Catalog.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			printProjects(cmd.OutOrStdout(), list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show one project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			p, err := rt.ws.Catalog.Service().Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printProject(cmd.OutOrStdout(), p)
			return nil
		},
	})

	cmd.AddCommand(newProjectCreateCommand(rt))
	cmd.AddCommand(newProjectUpdateCommand(rt))

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			if err := rt.ws.Catalog.Delete(cmd.Context(), id); err != nil {
				return err
			}
			if err := rt.ws.Integrations.ForgetProject(cmd.Context(), id); err != nil {
				rt.logger.Warn("could not clear slack state", "project_id", id, "error", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %d\n", id)
			printProjects(cmd.OutOrStdout(), rt.ws.Catalog.Projects())
			return nil
		},
	})

	return cmd
}

func newProjectCreateCommand(rt *runtime) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields models.ProjectFields
			if err := flags.apply(cmd, &fields); err != nil {
				return err
			}

			modal := rt.ws.Modal
			if err := modal.OpenCreateProject(); err != nil {
				return err
			}
			p, err := modal.SubmitProject(cmd.Context(), fields)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Created project %d\n", p.ID)
			printProjects(cmd.OutOrStdout(), rt.ws.Catalog.Projects())
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newProjectUpdateCommand(rt *runtime) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a project; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}

			modal := rt.ws.Modal
			if err := modal.OpenEditProject(cmd.Context(), id); err != nil {
				_, _ = modal.Cancel(cmd.Context())
				return err
			}
			fields, _ := modal.Prefill()
			if err := flags.apply(cmd, &fields); err != nil {
				_, _ = modal.Cancel(cmd.Context())
				return err
			}

			p, err := modal.SubmitProject(cmd.Context(), fields)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %d\n", p.ID)
			printProjects(cmd.OutOrStdout(), rt.ws.Catalog.Projects())
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}
