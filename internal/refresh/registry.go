package refresh

import (
	"context"
	"fmt"
	"sort"

	"github.com/darshan-golchha/code-complexity/internal/config"
	"github.com/darshan-golchha/code-complexity/internal/snapshot"
)

// Exchanger performs one request/response round against the backend and
// returns the raw response body.
type Exchanger interface {
	Exchange(ctx context.Context, current snapshot.Snapshot) ([]byte, error)
	Name() string
}

type exchangerConstructor func(cfg *config.Config) (Exchanger, error)

var exchangerRegistry = make(map[string]exchangerConstructor)

func Register(name string, constructor exchangerConstructor) {
	exchangerRegistry[name] = constructor
}

func New(name string, cfg *config.Config) (Exchanger, error) {
	constructor, ok := exchangerRegistry[name]
	if !ok {
		return nil, fmt.Errorf("unknown exchanger type: %s", name)
	}
	return constructor(cfg)
}

func Registered() []string {
	names := make([]string, 0, len(exchangerRegistry))
	for name := range exchangerRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
