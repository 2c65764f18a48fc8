package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilherme-santos/calmanager/internal"
)

func newAddCmd() *cobra.Command {
	var acc internal.Account

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a calendar account to the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if acc.DisplayName == "" || acc.AccountName == "" {
				return errors.New("--name and --account are required")
			}
			if acc.OwnerName == "" {
				acc.OwnerName = acc.AccountName
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			acc.Platform = internal.PlatformLocal
			if err := a.storage.AddAccount(cmd.Context(), &acc); err != nil {
				return fmt.Errorf("saving calendar account: %v", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s with id %d.\n", acc.Label(), acc.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&acc.DisplayName, "name", "", "display name of the calendar")
	cmd.Flags().StringVar(&acc.AccountName, "account", "", "account the calendar belongs to")
	cmd.Flags().StringVar(&acc.OwnerName, "owner", "", "owner of the calendar (default the account)")
	return cmd
}
