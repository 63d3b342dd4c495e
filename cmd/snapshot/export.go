package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/darshan-golchha/code-complexity/internal/dashboard"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var ExportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the cached snapshot to a file",
	Long:  "Write the cached snapshot to a file usable as the static_path of a static-mode config.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		snap, err := loadCached(c)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshot: %w", err)
		}
		if err := util.WriteFileAtomic(args[0], data); err != nil {
			return fmt.Errorf("failed to export snapshot: %w", err)
		}
		log.Infof("exported snapshot to %s", args[0])
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot exported to", args[0])
		return nil
	},
}

var ImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the cached snapshot with the contents of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read snapshot file: %w", err)
		}
		snap, err := snapshot.Parse(data)
		if err != nil {
			return err
		}
		if err := c.Set(dashboard.CacheKey, snap); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Snapshot imported from", args[0])
		return nil
	},
}
