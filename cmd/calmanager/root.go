package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/guilherme-santos/calmanager/internal/tui"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calmanager",
		Short: "List and delete calendar accounts",
		Long: `calmanager lists the calendar accounts of a calendar source (the local
store, Google Calendar or a CalDAV server) and deletes them after a short
confirmation countdown.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			source, gate, err := a.source(a.cfg.Source)
			if err != nil {
				return err
			}
			vm := viewmodel.New(source, a.logger)
			m := tui.New(cmd.Context(), vm, gate, tui.WithLogger(a.logger))
			defer m.Close()

			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.String("config", "", "configuration file (default ./calmanager.toml or <config dir>/calmanager/calmanager.toml)")
	flags.String("source", "", "calendar source: local, google or caldav")
	flags.String("db", "", "sqlite database file")
	flags.BoolP("verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newListCmd(),
		newDeleteCmd(),
		newAddCmd(),
		newLoginCmd(),
		newImportCmd(),
		newConfigCmd(),
	)
	return cmd
}
