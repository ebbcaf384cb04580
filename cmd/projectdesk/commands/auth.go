package commands

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"projectdesk/internal/auth"

	"github.com/spf13/cobra"
)

// readSecret returns flagValue, or the next line of in when it is empty.
func readSecret(cmd *cobra.Command, in io.Reader, flagValue, prompt string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(prompt, ": "), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// NewLoginCommand creates the login command
func NewLoginCommand(rt *runtime) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Sign in and remember the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(cmd, cmd.InOrStdin(), password, "Password: ")
			if err != nil {
				return err
			}
			if err := rt.ws.Auth.Login(cmd.Context(), args[0], pw); err != nil {
				return err
			}
			rt.ws.Wait()
			printSignedIn(cmd, rt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (read from stdin when omitted)")
	return cmd
}

// NewRegisterCommand creates the register command
func NewRegisterCommand(rt *runtime) *cobra.Command {
	var password, confirm string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and sign in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			pw, err := readSecret(cmd, in, password, "Password: ")
			if err != nil {
				return err
			}
			again, err := readSecret(cmd, in, confirm, "Confirm password: ")
			if err != nil {
				return err
			}
			if err := rt.ws.Auth.Register(cmd.Context(), args[0], pw, again); err != nil {
				return err
			}
			rt.ws.Wait()
			printSignedIn(cmd, rt)
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "Password, more than 5 characters")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password again")
	return cmd
}

func printSignedIn(cmd *cobra.Command, rt *runtime) {
	out := cmd.OutOrStdout()
	if user, ok := rt.ws.Profile(); ok {
		fmt.Fprintf(out, "Logged in as %s\n", user.Username)
	} else {
		fmt.Fprintln(out, "Logged in")
	}
	if msg := rt.ws.Notice.Message(); msg != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", msg)
		return
	}
	fmt.Fprintf(out, "%d project(s), %d chat message(s)\n",
		len(rt.ws.Catalog.Projects()), len(rt.ws.Chat.History()))
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.ws.Session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			rt.ws.Auth.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command
func NewWhoamiCommand(rt *runtime) *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			user, err := rt.ws.Auth.CurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s (id %d)\n", user.Username, user.ID)

			if claims, err := rt.ws.Session.Claims(); err == nil && claims.ExpiresAt != nil {
				fmt.Fprintf(out, "Session expires %s\n", claims.ExpiresAt.Local().Format(time.RFC1123))
			}

			if !verify {
				return nil
			}
			if rt.cfg.JWKSURL == "" {
				return fmt.Errorf("--verify needs PROJECTDESK_JWKS_URL")
			}
			verifier, err := auth.NewJWTVerifier(cmd.Context(), rt.cfg.JWKSURL, rt.logger)
			if err != nil {
				return err
			}
			defer verifier.Close()

			credential, _ := rt.ws.Session.Credential()
			if _, err := verifier.VerifyToken(cmd.Context(), credential); err != nil {
				return err
			}
			fmt.Fprintln(out, "Credential signature verified")
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Verify the credential signature against the JWKS endpoint")
	return cmd
}

// NewStatusCommand creates the status command
func NewStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the session's profile, projects and chat history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !rt.ws.Session.Authenticated() {
				fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
				return nil
			}
			rt.ws.Start(cmd.Context())
			rt.ws.Wait()
			printSignedIn(cmd, rt)
			return nil
		},
	}
}
