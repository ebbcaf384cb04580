package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"projectdesk/internal/domain"
	"projectdesk/internal/telemetry"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command
func NewRootCommand(rt *runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "projectdesk",
		Short: "Manage projects, chat with the assistant and connect ClickUp and Slack",
		Long: `projectdesk is a command-line client for the project-management backend.
It keeps you signed in between runs, manages projects and links them to
ClickUp and Slack, and sends questions to the AI assistant.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.open(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.configPath, "config", "", "Path to a YAML config file (default $PROJECTDESK_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&rt.apiURL, "api-url", "", "Backend base URL (overrides PROJECTDESK_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Write debug-level logs")

	rootCmd.AddCommand(NewLoginCommand(rt))
	rootCmd.AddCommand(NewRegisterCommand(rt))
	rootCmd.AddCommand(NewLogoutCommand(rt))
	rootCmd.AddCommand(NewWhoamiCommand(rt))
	rootCmd.AddCommand(NewStatusCommand(rt))
	rootCmd.AddCommand(NewProjectsCommand(rt))
	rootCmd.AddCommand(NewClickUpCommand(rt))
	rootCmd.AddCommand(NewSlackCommand(rt))
	rootCmd.AddCommand(NewChatCommand(rt))

	return rootCmd
}

// Execute runs the root command
func Execute() {
	defer telemetry.RecoverPanic()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rt := &runtime{}
	err := NewRootCommand(rt).ExecuteContext(ctx)
	rt.close()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", displayError(err))
		os.Exit(1)
	}
}

// noticeError carries the workspace notice set for a failed form submit,
// which is what the user should see instead of the raw cause.
type noticeError struct {
	notice string
	err    error
}

func (e *noticeError) Error() string { return e.notice + ": " + e.err.Error() }
func (e *noticeError) Unwrap() error { return e.err }

// withNotice attaches the current notice to err, if one is set.
func withNotice(rt *runtime, err error) error {
	msg := rt.ws.Notice.Message()
	if msg == "" {
		return err
	}
	return &noticeError{notice: msg, err: err}
}

// displayError prefers the notice, then the display text of domain errors;
// other errors (flags, arguments, local I/O) are shown as they are.
func displayError(err error) string {
	var ne *noticeError
	if errors.As(err, &ne) {
		return ne.notice
	}
	for _, sentinel := range []error{
		domain.ErrValidation,
		domain.ErrUnauthorized,
		domain.ErrNotFound,
		domain.ErrServer,
		domain.ErrNetwork,
	} {
		if errors.Is(err, sentinel) {
			return domain.Message(err)
		}
	}
	return err.Error()
}
