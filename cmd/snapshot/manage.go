package snapshot

import (
	"errors"
	"fmt"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/dashboard"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/util"
	"github.com/spf13/cobra"
)

type cache = util.FileCache[snapshot.Snapshot]

func openCache(cmd *cobra.Command) (*cache, error) {
	cfg := config.FromContext(cmd.Context())
	if cfg == nil {
		return nil, fmt.Errorf("configuration not found in context; run `riskguard init` first")
	}
	return dashboard.OpenCache(cfg)
}

func loadCached(c *cache) (snapshot.Snapshot, error) {
	snap, err := c.Get(dashboard.CacheKey)
	if errors.Is(err, util.ErrCacheMiss) {
		return snapshot.Snapshot{}, fmt.Errorf("no cached snapshot; run `riskguard refresh` first")
	}
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	return *snap, nil
}

var ClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the cached snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openCache(cmd)
		if err != nil {
			return err
		}
		if err := c.Delete(dashboard.CacheKey); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Cached snapshot cleared")
		return nil
	},
}
