package commands

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	goruntime "runtime"
	"sort"
	"text/tabwriter"
	"time"

	"projectdesk/internal/callback"
	"projectdesk/internal/domain/models"

	"github.com/spf13/cobra"
)

// NewClickUpCommand creates the clickup command group
func NewClickUpCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clickup",
		Short: "Link projects to ClickUp",
	}

	var token, listID string
	link := &cobra.Command{
		Use:   "link <project-id>",
		Short: "Link a project to a ClickUp list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			modal := rt.ws.Modal
			if err := modal.OpenClickUp(id); err != nil {
				return err
			}
			status, err := modal.SubmitClickUp(cmd.Context(), token, listID)
			if err != nil {
				return withNotice(rt, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Linked project %d to ClickUp list %s\n", id, listID)
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}
	link.Flags().StringVar(&token, "token", "", "ClickUp API token")
	link.Flags().StringVar(&listID, "list", "", "ClickUp list ID")
	cmd.AddCommand(link)

	return cmd
}

func printStatus(w io.Writer, status map[string]any) {
	keys := make([]string, 0, len(status))
	for k := range status {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %v\n", k, status[k])
	}
}

// openBrowser asks the desktop to open url. Failure is reported, not fatal.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// slackFlow holds the flags shared by the commands that start an authorization.
type slackFlow struct {
	open    bool
	listen  bool
	timeout time.Duration
}

func (f *slackFlow) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.open, "open", false, "Open the authorization URL in the browser")
	cmd.Flags().BoolVar(&f.listen, "listen", false, "Wait for the Slack redirect on the local callback address")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 5*time.Minute, "How long --listen waits for the redirect")
}

// follow prints the authorization URL and optionally completes the handshake locally.
func (f *slackFlow) follow(cmd *cobra.Command, rt *runtime, projectID int64, authURL string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Authorize Slack for project %d:\n  %s\n", projectID, authURL)

	if !f.listen {
		if f.open {
			if err := openBrowser(authURL); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Could not open a browser: %v\n", err)
			}
		}
		fmt.Fprintf(out, "Then run: projectdesk slack callback %d <code>\n", projectID)
		return nil
	}

	l := callback.New(rt.ws.Integrations, rt.cfg.CORSOrigins, rt.logger)
	if err := l.Start(rt.cfg.CallbackAddr); err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Shutdown(ctx)
	}()

	if f.open {
		if err := openBrowser(authURL); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open a browser: %v\n", err)
		}
	}
	fmt.Fprintf(out, "Waiting for the redirect on http://%s/slack/callback ...\n", l.Addr())

	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()
	result, err := l.Wait(ctx)
	if err != nil {
		return fmt.Errorf("no redirect received: %w", err)
	}
	if result.Err != nil {
		return result.Err
	}
	fmt.Fprintf(out, "Slack connected for project %d\n", result.ProjectID)
	return nil
}

// NewSlackCommand creates the slack command group
func NewSlackCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slack",
		Short: "Connect projects to a Slack workspace",
		Long: `Connecting Slack takes three steps: configure the Slack app for the project,
authorize in the browser, then hand the returned code back (either with
"slack callback" or automatically with --listen).`,
	}

	cmd.AddCommand(newSlackConfigureCommand(rt))
	cmd.AddCommand(newSlackConnectCommand(rt))

	cmd.AddCommand(&cobra.Command{
		Use:   "callback <project-id> <code>",
		Short: "Complete the authorization with the code Slack returned",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			result, err := rt.ws.Integrations.HandleOAuthCallback(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Slack connected for project %d\n", id)
			printStatus(cmd.OutOrStdout(), result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status <project-id>",
		Short: "Show the Slack connection state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			conn, err := rt.ws.Integrations.SlackStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			printConnection(cmd.OutOrStdout(), conn)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "channels <project-id>",
		Short: "List the channels of the connected workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			channels, err := rt.ws.Integrations.ListSlackChannels(cmd.Context(), id)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME")
			for _, ch := range channels {
				fmt.Fprintf(tw, "%s\t#%s\n", ch.ID, ch.Name)
			}
			return tw.Flush()
		},
	})

	var timeout time.Duration
	listen := &cobra.Command{
		Use:   "listen",
		Short: "Serve the OAuth redirect and status endpoints until one redirect arrives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := callback.New(rt.ws.Integrations, rt.cfg.CORSOrigins, rt.logger)
			if err := l.Start(rt.cfg.CallbackAddr); err != nil {
				return err
			}
			defer func() { _ = l.Shutdown(context.Background()) }()

			fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", l.Addr())
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			result, err := l.Wait(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %d: %s\n", result.ProjectID, result.State)
			return result.Err
		},
	}
	listen.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "How long to wait")
	cmd.AddCommand(listen)

	return cmd
}

func newSlackConfigureCommand(rt *runtime) *cobra.Command {
	var (
		cfg  models.SlackAppConfig
		flow slackFlow
	)

	cmd := &cobra.Command{
		Use:   "configure <project-id>",
		Short: "Store the Slack app credentials and start the authorization",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			if cfg.RedirectURI == "" {
				cfg.RedirectURI = "http://" + rt.cfg.CallbackAddr + "/slack/callback"
			}

			modal := rt.ws.Modal
			if err := modal.OpenSlack(id); err != nil {
				return err
			}
			authURL, err := modal.SubmitSlack(cmd.Context(), cfg)
			if err != nil {
				return withNotice(rt, err)
			}
			return flow.follow(cmd, rt, id, authURL)
		},
	}

	cmd.Flags().StringVar(&cfg.ClientID, "client-id", "", "Slack app client ID")
	cmd.Flags().StringVar(&cfg.ClientSecret, "client-secret", "", "Slack app client secret")
	cmd.Flags().StringVar(&cfg.RedirectURI, "redirect-uri", "", "Redirect URI registered with the Slack app (default: the local callback address)")
	flow.register(cmd)
	return cmd
}

func newSlackConnectCommand(rt *runtime) *cobra.Command {
	var flow slackFlow

	cmd := &cobra.Command{
		Use:   "connect <project-id>",
		Short: "Request a new authorization URL for a configured project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProjectID(args[0])
			if err != nil {
				return err
			}
			authURL, err := rt.ws.Integrations.RequestOAuthURL(cmd.Context(), id)
			if err != nil {
				return err
			}
			return flow.follow(cmd, rt, id, authURL)
		},
	}

	flow.register(cmd)
	return cmd
}

func printConnection(w io.Writer, conn *models.SlackConnection) {
	fmt.Fprintf(w, "Project:  %d\n", conn.ProjectID)
	fmt.Fprintf(w, "State:    %s\n", conn.State)
	if conn.AuthURL != "" {
		fmt.Fprintf(w, "Auth URL: %s\n", conn.AuthURL)
	}
	if conn.LastError != "" {
		fmt.Fprintf(w, "Error:    %s\n", conn.LastError)
	}
	if !conn.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated:  %s\n", conn.UpdatedAt.Local().Format(time.RFC1123))
	}
}
