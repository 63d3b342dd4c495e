package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/darshan-golchha/code-complexity/internal/dashboard"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/tui"
	"github.com/darshan-golchha/code-complexity/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	refreshJSON    bool
	refreshTimeout time.Duration
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Run one refresh exchange and print the result",
	Long: "Run one refresh exchange. In push mode the last cached snapshot is\n" +
		"uploaded; in pull and static mode the latest snapshot is fetched.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := configFrom(cmd.Context())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if refreshTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, refreshTimeout)
			defer cancel()
		}

		var seed *snapshot.Snapshot
		cache, cacheErr := dashboard.OpenCache(cfg)
		if cacheErr == nil {
			cached, err := cache.Get(dashboard.CacheKey)
			switch {
			case err == nil:
				seed = cached
			case !errors.Is(err, util.ErrCacheMiss):
				log.Warnf("ignoring unreadable cached snapshot: %v", err)
			}
		}

		view, snap, err := dashboard.RefreshOnce(ctx, cfg, seed, log.WithField("command", "refresh"))
		if err != nil {
			return err
		}
		if cacheErr == nil {
			if err := cache.Set(dashboard.CacheKey, snap); err != nil {
				log.Warnf("failed to cache snapshot: %v", err)
			}
		}

		out := cmd.OutOrStdout()
		if refreshJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		fmt.Fprint(out, tui.Plain(view))
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshJSON, "json", false, "print the snapshot as JSON")
	refreshCmd.Flags().DurationVar(&refreshTimeout, "timeout", 0, "give up after this long")
}
