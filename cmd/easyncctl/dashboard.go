package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/JMS-tesoy/EASync/internal/config"
	"github.com/JMS-tesoy/EASync/internal/protection"
	"github.com/JMS-tesoy/EASync/internal/registry"
	"github.com/JMS-tesoy/EASync/internal/trust"
	"github.com/JMS-tesoy/EASync/internal/tui"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the live operator dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		pgClient, err := registry.OpenPostgres(cfg.PostgresDSN, nil)
		if err != nil {
			return err
		}
		defer pgClient.Close()

		store := registry.NewStore(pgClient)
		scores := trust.NewPostgresScoreStore(pgClient.DB())
		protectionStore := protection.NewStore(pgClient.DB())

		source := tui.NewStoreSource(store, scores, protectionStore)
		program := tea.NewProgram(tui.NewModel(source), tea.WithAltScreen())
		_, err = program.Run()
		return err
	},
}
