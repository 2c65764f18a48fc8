package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/tui"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the calendar accounts of the configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			vm, err := a.viewModel(cmd)
			if err != nil {
				return err
			}
			st := vm.FetchIfError(cmd.Context())
			if st.Status == viewmodel.Error {
				return fmt.Errorf("listing calendar accounts: %w", st.Err)
			}
			printAccounts(cmd.OutOrStdout(), st.Accounts)
			return nil
		},
	}
}

// viewModel returns the view model of the configured source, failing when
// access to it was not granted.
func (a *app) viewModel(cmd *cobra.Command) (*viewmodel.ViewModel, error) {
	source, gate, err := a.source(a.cfg.Source)
	if err != nil {
		return nil, err
	}
	granted, err := gate.Granted(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, fmt.Errorf("%s: %w, run `calmanager login` first", a.cfg.Source, internal.ErrNotGranted)
	}
	return viewmodel.New(source, a.logger), nil
}

func printAccounts(w io.Writer, accs []internal.Account) {
	if len(accs) == 0 {
		fmt.Fprintln(w, tui.EmptyText)
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "NAME", "ACCOUNT", "OWNER")
	for _, acc := range accs {
		t.Row(strconv.FormatInt(acc.ID, 10), acc.DisplayName, acc.AccountName, acc.OwnerName)
	}
	fmt.Fprintln(w, t.Render())
}

func findAccount(accs []internal.Account, id int64) (internal.Account, error) {
	for _, acc := range accs {
		if acc.ID == id {
			return acc, nil
		}
	}
	return internal.Account{}, fmt.Errorf("id %d: %w", id, internal.ErrAccountNotFound)
}
