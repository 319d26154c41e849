package router

import (
	"github.com/quillhq/quill/internal/application"
	"github.com/quillhq/quill/internal/container"
	pginfra "github.com/quillhq/quill/internal/infrastructure/postgres"
	handlers "github.com/quillhq/quill/internal/interface/http"
	"github.com/quillhq/quill/internal/router/modules"
)

// InitModules builds repositories, services and handlers from the
// container singletons and registers every feature module. Called once
// during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	sessions := container.GetSessions()

	users := pginfra.NewUserRepository(container.GetPGPool())
	posts := pginfra.NewPostRepository(container.GetPGPool())

	// A nil *RabbitPublisher inside the interface would dodge the
	// service's nil check, so only assign when one was actually built.
	var mailQueue application.MailQueue
	if pub := container.GetRabbitPub(); pub != nil {
		mailQueue = pub
	}

	userSvc := application.NewUserService(
		users,
		sessions,
		container.GetResetSigner(),
		cfg.ResetTokenMaxAge,
		container.GetGCS(),
		cfg.GCSBucket,
		mailQueue,
		logger,
		cfg.BaseURL,
		cfg.MailSendEnabled,
	)
	postSvc := application.NewPostService(posts, users, logger)

	userHandler := handlers.NewUserHandler(userSvc, logger, cfg.CookieDomain, cfg.CookieSecure)
	authHandler := handlers.NewAuthHandler(userSvc, logger)
	postHandler := handlers.NewPostHandler(postSvc, logger)

	r.Add(modules.NewUserModule(userHandler, sessions, users))
	r.Add(modules.NewAuthModule(authHandler))
	r.Add(modules.NewPostModule(postHandler, sessions, users))
	if cfg.MetricsEnabled {
		r.Add(modules.NewMetricsModule())
	}
}
