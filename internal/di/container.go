// Package di provides dependency injection configuration for the Blueprint Store server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/blueprintstore/blueprintstore-server/internal/config"
	"github.com/blueprintstore/blueprintstore-server/internal/di/providers"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/logger"
	"github.com/blueprintstore/blueprintstore-server/internal/service"
	"github.com/blueprintstore/blueprintstore-server/internal/taxonomy"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Forum layer
	do.Provide(injector, providers.ProvideForumClient)
	do.Provide(injector, providers.ProvideClassifier)
	do.Provide(injector, providers.ProvideSession)

	// Business services
	do.Provide(injector, providers.ProvideCatalogService)

	// Workers
	do.Provide(injector, providers.ProvideRefresher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle
// management. This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*forum.Client](injector)
	_ = do.MustInvoke[*taxonomy.Classifier](injector)
	_ = do.MustInvoke[*providers.SessionHandle](injector)
	_ = do.MustInvoke[*service.CatalogService](injector)
	_ = do.MustInvoke[*providers.RefresherHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
