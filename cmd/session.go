package cmd

import (
	"context"
	"fmt"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/dashboard"
	log "github.com/sirupsen/logrus"
)

func configFrom(ctx context.Context) (*config.Config, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not found in context; run `riskguard init` first")
	}
	return cfg, nil
}

// openSession builds a session that caches every snapshot it shows.
func openSession(cfg *config.Config) (*dashboard.Session, error) {
	logger := log.WithField("config", cfg.ConfigPath)

	var opts []dashboard.Option
	cache, err := dashboard.OpenCache(cfg)
	if err != nil {
		logger.Warnf("snapshot cache disabled: %v", err)
	} else {
		opts = append(opts, dashboard.WithCache(cache))
	}

	return dashboard.NewSession(cfg, logger, opts...)
}
