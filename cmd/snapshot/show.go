package snapshot

import (
	"encoding/json"
	"fmt"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/dashboard"
	"github.com/darshan-golchha/code-complexity/internal/store"
	"github.com/darshan-golchha/code-complexity/internal/tui"
	"github.com/spf13/cobra"
)

var showJSON bool

var ShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cached snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		snap, err := loadCached(c)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if showJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		status := dashboard.Status{Source: store.SourceCache}
		if cfg := config.FromContext(cmd.Context()); cfg != nil {
			status.Mode = cfg.Mode
		}
		fmt.Fprint(out, tui.Plain(dashboard.Assemble(snap, status)))
		return nil
	},
}

func init() {
	ShowCmd.Flags().BoolVar(&showJSON, "json", false, "print the raw snapshot as JSON")
}
