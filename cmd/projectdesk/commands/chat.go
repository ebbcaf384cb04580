package commands

import (
	"fmt"
	"io"
	"strings"

	"projectdesk/internal/domain/models"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// renderMarkdown renders assistant replies for the terminal. Raw text is
// returned when rendering is disabled or fails.
func renderMarkdown(md string, raw bool) string {
	if raw {
		return md
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func printMessage(w io.Writer, msg models.ChatMessage, raw bool) {
	scope := "general"
	if msg.ProjectID != nil {
		scope = fmt.Sprintf("project %d", *msg.ProjectID)
	}
	fmt.Fprintf(w, "> %s  (%s)\n", msg.Query, scope)
	fmt.Fprintln(w, renderMarkdown(msg.Response, raw))
}

// NewChatCommand creates the chat command group
func NewChatCommand(rt *runtime) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask the AI assistant and browse past answers",
	}
	cmd.PersistentFlags().BoolVar(&raw, "raw", false, "Print replies without markdown rendering")

	var last int
	history := &cobra.Command{
		Use:   "history",
		Short: "Show your chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, err := rt.ws.Chat.LoadHistory(cmd.Context())
			if err != nil {
				return err
			}
			if len(messages) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No chat history")
				return nil
			}
			if last > 0 && last < len(messages) {
				messages = messages[len(messages)-last:]
			}
			for _, msg := range messages {
				printMessage(cmd.OutOrStdout(), msg, raw)
			}
			return nil
		},
	}
	history.Flags().IntVarP(&last, "last", "n", 0, "Only show the last n messages")
	cmd.AddCommand(history)

	var project string
	ask := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a general question, or one about a project with --project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch := rt.ws.Chat
			mode := models.ModeGeneral
			if cmd.Flags().Changed("project") {
				mode = models.ModeProject
			}
			if err := orch.SetMode(mode); err != nil {
				return err
			}
			orch.Select(project)
			orch.SetDraft(strings.Join(args, " "))

			msg, err := orch.Send(cmd.Context())
			if err != nil {
				return err
			}
			if msg == nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "Nothing to send: select a project with --project <id>")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderMarkdown(orch.LastResponse(), raw))
			return nil
		},
	}
	ask.Flags().StringVar(&project, "project", "", "Project id to ask about")
	cmd.AddCommand(ask)

	return cmd
}
