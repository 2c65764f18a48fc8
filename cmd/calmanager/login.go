package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Give access to the calendars of a Google account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.google == nil {
				return errors.New("google is not configured, check google.credentials_file")
			}

			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			token, err := a.google.Login(ctx, func(authURL string) {
				fmt.Fprintf(w, "Go to the following link in your browser\n%s\n", authURL)
			})
			if err != nil {
				return fmt.Errorf("google: logging in: %v", err)
			}
			email, err := a.google.Email(ctx, token)
			if err != nil {
				return fmt.Errorf("google: getting email: %v", err)
			}

			fmt.Fprintf(w, "Saving account %q...\n", email)
			if err := a.google.SaveToken(ctx, email, token); err != nil {
				return fmt.Errorf("saving account: %v", err)
			}
			a.logger.Info("google account logged in", zap.String("account_name", email))
			return nil
		},
	}
}
