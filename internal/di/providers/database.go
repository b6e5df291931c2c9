package providers

import (
	"github.com/samber/do/v2"

	"github.com/blueprintstore/blueprintstore-server/internal/config"
	"github.com/blueprintstore/blueprintstore-server/internal/logger"
	"github.com/blueprintstore/blueprintstore-server/internal/store"
	"github.com/blueprintstore/blueprintstore-server/internal/store/sqlite"
)

// StoreHandle wraps the local catalog store with Shutdownable. Catalog is nil
// when persistence is disabled.
type StoreHandle struct {
	Catalog store.Catalog
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	if h.Catalog == nil {
		return nil
	}
	return h.Catalog.Close()
}

// ProvideStore provides the SQLite catalog cache when enabled.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Store.Enabled {
		log.Info("Local catalog store disabled, serving live from forum")
		return &StoreHandle{}, nil
	}

	s, err := sqlite.Open(cfg.Store.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Local catalog store opened", "path", cfg.Store.Path)
	return &StoreHandle{Catalog: s}, nil
}
