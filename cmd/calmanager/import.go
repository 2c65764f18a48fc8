package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilherme-santos/calmanager/internal"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [platform]",
		Short: "Copy the calendar accounts of a remote source into the local store",
		Long: `Fetch the calendar accounts of a remote source (google or caldav, default
the configured source) and record them in the local store, where the local
source lists them.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{internal.PlatformGoogle, internal.PlatformCalDAV},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			platform := a.cfg.Source
			if len(args) > 0 {
				platform = args[0]
			}
			if platform == internal.PlatformLocal {
				return fmt.Errorf("nothing to import from the %s source", platform)
			}

			source, gate, err := a.source(platform)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			granted, err := gate.Granted(ctx)
			if err != nil {
				return err
			}
			if !granted {
				return fmt.Errorf("%s: %w", platform, internal.ErrNotGranted)
			}

			accs, err := source.ListAccounts(ctx)
			if err != nil {
				return fmt.Errorf("%s: listing calendar accounts: %w", platform, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d calendar accounts from %s.\n", len(accs), platform)
			printAccounts(cmd.OutOrStdout(), accs)
			return nil
		},
	}
}
