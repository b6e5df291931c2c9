package providers

import (
	"github.com/samber/do/v2"

	"github.com/blueprintstore/blueprintstore-server/internal/config"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/logger"
	"github.com/blueprintstore/blueprintstore-server/internal/refresh"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
	"github.com/blueprintstore/blueprintstore-server/internal/taxonomy"
)

// RefresherHandle wraps the background refresher with Shutdownable. Refresher
// is nil when the local store is disabled.
type RefresherHandle struct {
	*refresh.Refresher
	crawlSession *session.Session
}

// Shutdown implements do.Shutdownable.
func (h *RefresherHandle) Shutdown() error {
	if h.Refresher != nil {
		h.Refresher.Stop()
	}
	if h.crawlSession != nil {
		h.crawlSession.Close()
	}
	return nil
}

// ProvideRefresher provides the background catalog refresher. The refresher
// gets its own session: a crawl run must not supersede interactive runs.
func ProvideRefresher(i do.Injector) (*RefresherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	if storeHandle.Catalog == nil {
		return &RefresherHandle{}, nil
	}

	client := do.MustInvoke[*forum.Client](i)
	classifier := do.MustInvoke[*taxonomy.Classifier](i)

	crawlSession := session.New(session.Options{
		Pager:             client,
		Classifier:        classifier,
		Logger:            log.Logger,
		MaxPages:          cfg.Forum.MaxPages,
		ScanCap:           cfg.Forum.ScanCap,
		IDRecencyFallback: true,
	})

	r := refresh.New(refresh.Options{
		Session:    crawlSession,
		Catalog:    storeHandle.Catalog,
		Logger:     log.Logger,
		Interval:   cfg.Store.RefreshInterval,
		PruneAfter: cfg.Store.PruneAfter,
	})
	r.Start()

	log.Info("Catalog refresher started", "interval", cfg.Store.RefreshInterval)
	return &RefresherHandle{Refresher: r, crawlSession: crawlSession}, nil
}
