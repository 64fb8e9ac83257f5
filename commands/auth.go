package commands

import (
	"bufio"
	"clementus360/agent-client/types"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// RegisterAuthCommands registers signin, signup, signout and whoami
func RegisterAuthCommands(root *cobra.Command, rt *Runtime) {
	root.AddCommand(newSigninCmd(rt))
	root.AddCommand(newSignupCmd(rt))
	root.AddCommand(newSignoutCmd(rt))
	root.AddCommand(newWhoamiCmd(rt))
}

func newSigninCmd(rt *Runtime) *cobra.Command {
	var req types.SigninRequest
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Email == "" {
				return errors.New("--email is required")
			}
			if req.Password == "" {
				password, err := readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				if err != nil {
					return err
				}
				req.Password = password
			}

			a := rt.App()
			resp, err := a.API.Signin(cmd.Context(), req)
			if err != nil {
				a.Notifier.Error("Sign in failed", err)
				return err
			}
			return rt.storeAuth(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password (prompted when omitted)")
	return cmd
}

func newSignupCmd(rt *Runtime) *cobra.Command {
	var req types.SignupRequest
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Email == "" || req.Username == "" {
				return errors.New("--email and --username are required")
			}
			if req.Password == "" {
				password, err := readSecret(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ")
				if err != nil {
					return err
				}
				req.Password = password
			}

			a := rt.App()
			resp, err := a.API.Signup(cmd.Context(), req)
			if err != nil {
				a.Notifier.Error("Sign up failed", err)
				return err
			}
			return rt.storeAuth(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&req.Username, "username", "u", "", "username")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "account password (prompted when omitted)")
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "last name")
	return cmd
}

func (rt *Runtime) storeAuth(out io.Writer, resp types.AuthResponse) error {
	a := rt.App()
	if resp.AccessToken == "" {
		return errors.New("no access token in response")
	}
	user := resp.User
	if err := a.Creds.Set(resp.AccessToken, &user); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	a.Notifier.Success("Signed in as " + displayName(user))
	return nil
}

func newSignoutCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := rt.App()
			if err := a.Creds.Clear(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}
			if err := saveActiveSession(a.Config, ""); err != nil {
				return err
			}
			a.Notifier.Success("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd(rt *Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := rt.App()
			if a.Creds.Token() == "" {
				return errors.New("not signed in")
			}
			verified, err := a.API.VerifyToken(cmd.Context())
			if err != nil {
				return err
			}
			if !verified.Valid {
				return errors.New("stored token is no longer valid")
			}
			user, err := a.API.Profile(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return rt.render(out, user, func() {
				fmt.Fprintln(out, displayName(user))
			})
		},
	}
}

func displayName(u types.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	switch {
	case name != "" && u.Email != "":
		return name + " <" + u.Email + ">"
	case u.Email != "":
		return u.Email
	default:
		return u.Username
	}
}

// readSecret reads one line from in. Terminal echo is not suppressed.
func readSecret(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
