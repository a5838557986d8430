package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/finsight-ai/finsight/pkg/apperrors"
	"github.com/finsight-ai/finsight/pkg/config"
)

// Factory builds a connector from the datasource configuration.
type Factory func(ctx context.Context, cfg *config.DatasourceConfig) (Connector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register is called by each connector's init function.
// Thread-safe for concurrent init() calls.
func Register(dsType string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[dsType] = factory
}

// Open creates the connector configured by cfg.Type.
func Open(ctx context.Context, cfg *config.DatasourceConfig) (Connector, error) {
	registryMu.RLock()
	factory, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDatasource, cfg.Type)
	}
	return factory(ctx, cfg)
}

// Registered returns the registered connector types, sorted.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
