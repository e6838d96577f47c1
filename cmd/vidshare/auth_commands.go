package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vidshare/client/internal/session"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := ctx.loggerContext(cmd.Context())
			if err != nil {
				return err
			}

			if email == "" {
				return errors.New("--email is required")
			}
			if password == "" {
				password, err = readLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			err = ctx.sessions.Login(cmdCtx, email, password)
			if errors.Is(err, session.ErrMFARequired) {
				fmt.Fprintln(cmd.OutOrStdout(), "Additional verification required; finish it on your registered device and sign in again.")
				return nil
			}
			if err != nil {
				return err
			}

			if profile, ok := ctx.sessions.Profile(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", profile.Name, profile.Email)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Signed in.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")

	return cmd
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var name string
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Request a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := ctx.loggerContext(cmd.Context())
			if err != nil {
				return err
			}

			if name == "" || email == "" {
				return errors.New("--name and --email are required")
			}
			if password == "" {
				password, err = readLine(cmd, "Password: ")
				if err != nil {
					return err
				}
			}

			if err := ctx.sessions.Register(cmdCtx, name, email, password); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Registration accepted. Check your email to confirm the account, then sign in.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted when omitted)")

	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Invalidate the session and clear local state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx, err := ctx.loggerContext(cmd.Context())
			if err != nil {
				return err
			}

			if err := ctx.sessions.Logout(cmdCtx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := ctx.requireSession(cmd.Context()); err != nil {
				return err
			}

			profile, ok := ctx.sessions.Profile()
			if !ok {
				return session.ErrNotLoggedIn
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s <%s>\n", profile.Name, profile.Email)
			return nil
		},
	}
}

func readLine(cmd *cobra.Command, prompt string) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
