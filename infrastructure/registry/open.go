package registry

import (
	"context"
	"fmt"

	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/config"
	"github.com/Anakin-Sudo/Credit-Scoring-MLOps/internal/ports"
)

// Open builds the registry configured by cfg. The returned close
// function releases the index's resources and is never nil.
func Open(ctx context.Context, cfg config.RegistrySettings, store ports.BlobStore, codec ports.ModelCodec) (*Registry, func() error, error) {
	switch cfg.Backend {
	case "", "blob":
		return New(store, NewBlobIndex(store), codec), func() error { return nil }, nil
	case "postgres":
		idx, err := OpenPostgresIndex(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return New(store, idx, codec), idx.Close, nil
	default:
		return nil, nil, ports.NewConfigError("REGISTRY_BACKEND", fmt.Errorf("unknown registry backend %q", cfg.Backend))
	}
}
