package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/confirm"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

var (
	// countdownTick is how long one second of the confirmation countdown lasts.
	countdownTick = time.Second
	clock         = time.Now
)

func newDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a calendar account after a countdown",
		Long: `Delete the calendar account with the given id. The deletion can only be
confirmed once a 3 second countdown is over.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			vm, err := a.viewModel(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st := vm.FetchIfError(ctx)
			if st.Status == viewmodel.Error {
				return fmt.Errorf("listing calendar accounts: %w", st.Err)
			}
			acc, err := findAccount(st.Accounts, id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			ctrl := confirm.New(confirm.WithClock(clock))
			snap := ctrl.Open(acc)
			fmt.Fprintf(w, "Delete %s? This cannot be undone.\n", acc.Label())
			fmt.Fprintf(w, "Confirm(%d)", snap.Remaining)
			err = ctrl.Countdown(ctx, snap.Session, countdownTick, func(snap confirm.Snapshot) {
				if snap.CanConfirm() {
					fmt.Fprintln(w)
					return
				}
				fmt.Fprintf(w, " %d", snap.Remaining)
			})
			if err != nil {
				fmt.Fprintln(w)
				return err
			}

			if !yes {
				fmt.Fprint(w, "Are you sure? (y/N): ")
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					ctrl.Dismiss()
					fmt.Fprintln(w, "Deletion cancelled.")
					return nil
				}
			}

			target, err := ctrl.Confirm()
			if err != nil {
				return err
			}
			st, err = vm.Delete(ctx, target.ID)
			if err != nil {
				return err
			}
			a.logger.Info("calendar account deleted", internal.AccountFields(target)...)
			fmt.Fprintf(w, "Deleted %s.\n", target.Label())
			if st.Status == viewmodel.Success {
				printAccounts(w, st.Accounts)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask once the countdown is over")
	return cmd
}
