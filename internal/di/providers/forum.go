package providers

import (
	"github.com/samber/do/v2"

	"github.com/blueprintstore/blueprintstore-server/internal/config"
	"github.com/blueprintstore/blueprintstore-server/internal/forum"
	"github.com/blueprintstore/blueprintstore-server/internal/logger"
	"github.com/blueprintstore/blueprintstore-server/internal/session"
	"github.com/blueprintstore/blueprintstore-server/internal/taxonomy"
)

// ProvideForumClient provides the forum catalog API client.
func ProvideForumClient(i do.Injector) (*forum.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return forum.New(forum.Options{
		BaseURL:   cfg.Forum.BaseURL,
		UserAgent: cfg.Forum.UserAgent,
		Timeout:   cfg.Forum.Timeout,
		RateLimit: cfg.Forum.RateLimit,
		Retry: forum.RetryPolicy{
			Attempts: cfg.Forum.RetryAttempts,
			Base:     cfg.Forum.RetryBase,
			Factor:   cfg.Forum.RetryFactor,
			Ceiling:  cfg.Forum.RetryCeiling,
		},
	}, log.Logger)
}

// ProvideClassifier provides the keyword taxonomy classifier.
func ProvideClassifier(i do.Injector) (*taxonomy.Classifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return taxonomy.New(taxonomy.DefaultCategories, cfg.Forum.TagThreshold), nil
}

// SessionHandle wraps the request-facing session with Shutdownable.
type SessionHandle struct {
	*session.Session
}

// Shutdown implements do.Shutdownable.
func (h *SessionHandle) Shutdown() error {
	h.Session.Close()
	return nil
}

// ProvideSession provides the session that serves interactive API requests.
func ProvideSession(i do.Injector) (*SessionHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	client := do.MustInvoke[*forum.Client](i)
	classifier := do.MustInvoke[*taxonomy.Classifier](i)

	sess := session.New(session.Options{
		Pager:             client,
		Classifier:        classifier,
		Logger:            log.Logger,
		MaxPages:          cfg.Forum.MaxPages,
		ScanCap:           cfg.Forum.ScanCap,
		IDRecencyFallback: true,
	})
	return &SessionHandle{Session: sess}, nil
}
