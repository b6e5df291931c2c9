package providers

import (
	"github.com/samber/do/v2"

	"github.com/blueprintstore/blueprintstore-server/internal/config"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/logger"
	"github.com/blueprintstore/blueprintstore-server/internal/service"
	"github.com/blueprintstore/blueprintstore-server/internal/taxonomy"
)

// ProvideCatalogService provides the catalog service behind the HTTP API.
func ProvideCatalogService(i do.Injector) (*service.CatalogService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*forum.Client](i)
	classifier := do.MustInvoke[*taxonomy.Classifier](i)
	sessHandle := do.MustInvoke[*SessionHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)

	return service.NewCatalogService(
		client,
		sessHandle.Session,
		storeHandle.Catalog,
		classifier,
		cfg.Forum.SiteURL,
		log.Logger,
	), nil
}
