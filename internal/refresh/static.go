package refresh

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
	"github.com/darshan-golchha/code-complexity/internal/util"
)

const ExchangeStatic = "static"

func init() {
	Register(ExchangeStatic, func(cfg *config.Config) (Exchanger, error) {
		if cfg.StaticPath == "" {
			return nil, fmt.Errorf("static_path is required for %s", ExchangeStatic)
		}
		path := cfg.StaticPath
		if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
			timeout, err := cfg.Timeout()
			if err != nil {
				return nil, err
			}
			return NewHTTPExchanger(ExchangePull, path, timeout), nil
		}
		return NewStaticExchanger(util.ResolvePath(cfg.ConfigPath, path)), nil
	})
}

// StaticExchanger reads a snapshot from a local JSON file. It stands in
// for the backend when no live service is configured.
type StaticExchanger struct {
	path string
}

func NewStaticExchanger(path string) *StaticExchanger {
	return &StaticExchanger{path: path}
}

func (s *StaticExchanger) Name() string {
	return ExchangeStatic
}

func (s *StaticExchanger) Exchange(ctx context.Context, _ snapshot.Snapshot) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &RequestError{Exchange: ExchangeStatic, Err: err}
	}
	if !util.FileExists(s.path) {
		return nil, &RequestError{Exchange: ExchangeStatic, Err: fmt.Errorf("snapshot file %s not found", s.path)}
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &RequestError{Exchange: ExchangeStatic, Err: err}
	}
	return data, nil
}
