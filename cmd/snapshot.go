package cmd

import (
	"github.com/darshan-golchha/code-complexity/cmd/snapshot"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage the cached metrics snapshot",
}

func init() {
	snapshotCmd.AddCommand(snapshot.ShowCmd)
	snapshotCmd.AddCommand(snapshot.ExportCmd)
	snapshotCmd.AddCommand(snapshot.ImportCmd)
	snapshotCmd.AddCommand(snapshot.ClearCmd)
}
