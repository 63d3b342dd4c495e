package cmd

import (
	"github.com/darshan-golchha/code-complexity/internal/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live dashboard in the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFrom(cmd.Context())
		if err != nil {
			return err
		}

		session, err := openSession(cfg)
		if err != nil {
			return err
		}

		session.Mount(cmd.Context())
		defer session.Unmount()

		return tui.RunDashboard("riskguard", session)
	},
}
