package handler

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Astemirdum/bookstore-client/storefront/internal/form"
	"github.com/Astemirdum/bookstore-client/storefront/internal/model"
)

func (h *Handler) loginCmd() *cobra.Command {
	var f form.LoginForm
	cmd := &cobra.Command{
		Use:         "login",
		Short:       "Log in and keep the session for later commands",
		Args:        cobra.NoArgs,
		Annotations: public(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.Password == "" && strings.TrimSpace(f.Email) != "" {
				pw, err := h.password(cmd, "Password: ")
				if err != nil {
					return fail(err, "", "Failed to read password")
				}
				f.Password = pw
			}
			res, err := f.Submit(cmd.Context(), h.authSvc)
			if err != nil {
				return failLogin(err, "Login failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", userLabel(res.User))
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&f.Password, "password", "p", "", "password, prompted for when omitted")
	return cmd
}

func (h *Handler) registerCmd() *cobra.Command {
	var f form.RegisterForm
	cmd := &cobra.Command{
		Use:         "register",
		Short:       "Create an account and log in",
		Args:        cobra.NoArgs,
		Annotations: public(),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.Password == "" {
				pw, err := h.password(cmd, "Password: ")
				if err != nil {
					return fail(err, "", "Failed to read password")
				}
				f.Password = pw
			}
			if f.PasswordConfirmation == "" {
				pw, err := h.password(cmd, "Confirm password: ")
				if err != nil {
					return fail(err, "", "Failed to read password")
				}
				f.PasswordConfirmation = pw
			}
			res, err := f.Submit(cmd.Context(), h.authSvc)
			if err != nil {
				return failLogin(err, "Registration failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s\n", userLabel(res.User))
			return nil
		},
	}
	cmd.Flags().StringVarP(&f.Name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&f.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&f.Password, "password", "p", "", "password, prompted for when omitted")
	cmd.Flags().StringVar(&f.PasswordConfirmation, "password-confirmation", "", "password again, prompted for when omitted")
	return cmd
}

func (h *Handler) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := h.authSvc.Logout(cmd.Context()); err != nil {
				return fail(err, "", "Logout failed")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func (h *Handler) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, _ := h.authSvc.CurrentUser()
			fmt.Fprintln(cmd.OutOrStdout(), userLabel(u))
			return nil
		},
	}
}

func userLabel(u model.User) string {
	if u.Name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s>", u.Name, u.Email)
}
